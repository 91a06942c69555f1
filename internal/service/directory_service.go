package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/pkg/directory"
)

type directoryClient interface {
	Configured() bool
	Panchayaths(ctx context.Context) ([]directory.Panchayath, error)
	Wards(ctx context.Context, panchayathID string) ([]directory.Ward, error)
	Agents(ctx context.Context, panchayathID string) ([]directory.Agent, error)
}

// DirectoryService proxies the external panchayath directory. Failures
// degrade to empty lists so the registration form keeps working.
type DirectoryService struct {
	client directoryClient
	logger *zap.Logger
}

// NewDirectoryService constructs the proxy.
func NewDirectoryService(client directoryClient, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{client: client, logger: logger}
}

func (s *DirectoryService) enabled() bool {
	return s.client != nil && s.client.Configured()
}

// FetchPanchayaths lists external panchayaths.
func (s *DirectoryService) FetchPanchayaths(ctx context.Context) []directory.Panchayath {
	if !s.enabled() {
		return []directory.Panchayath{}
	}
	items, err := s.client.Panchayaths(ctx)
	if err != nil {
		s.logger.Warn("directory panchayaths unavailable", zap.Error(err))
		return []directory.Panchayath{}
	}
	return items
}

// FetchWards lists the wards of a panchayath.
func (s *DirectoryService) FetchWards(ctx context.Context, panchayathID string) []directory.Ward {
	if !s.enabled() || panchayathID == "" {
		return []directory.Ward{}
	}
	items, err := s.client.Wards(ctx, panchayathID)
	if err != nil {
		s.logger.Warn("directory wards unavailable", zap.String("panchayath_id", panchayathID), zap.Error(err))
		return []directory.Ward{}
	}
	return items
}

// FetchAgents lists field agents, optionally for one panchayath.
func (s *DirectoryService) FetchAgents(ctx context.Context, panchayathID string) []directory.Agent {
	if !s.enabled() {
		return []directory.Agent{}
	}
	items, err := s.client.Agents(ctx, panchayathID)
	if err != nil {
		s.logger.Warn("directory agents unavailable", zap.String("panchayath_id", panchayathID), zap.Error(err))
		return []directory.Agent{}
	}
	return items
}
