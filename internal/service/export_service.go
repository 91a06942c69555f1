package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/pkg/export"
	"github.com/noah-isme/sep-portal-api/pkg/storage"
)

const exportDateLayout = "02/01/2006"

type registrationExportSource interface {
	ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error)
	ListPending(ctx context.Context) ([]models.RegistrationDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	AlertWindowDays int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds registration datasets and persists rendered files.
type ExportService struct {
	registrations registrationExportSource
	storage       fileStorage
	renderers     map[models.ReportFormat]datasetRenderer
	signer        *storage.SignedURLSigner
	logger        *zap.Logger
	cfg           ExportConfig
	now           func() time.Time
}

// NewExportService constructs an ExportService with csv, pdf and xlsx renderers.
func NewExportService(registrations registrationExportSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.AlertWindowDays <= 0 {
		cfg.AlertWindowDays = DefaultAlertWindowDays
	}
	return &ExportService{
		registrations: registrations,
		storage:       files,
		renderers: map[models.ReportFormat]datasetRenderer{
			models.ReportFormatCSV:  export.NewCSVExporter(),
			models.ReportFormatPDF:  export.NewPDFExporter(),
			models.ReportFormatXLSX: export.NewXLSXExporter(),
		},
		signer: signer,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Generate builds the dataset for job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Format)
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("export rendered", zap.String("job_id", job.ID), zap.Int("rows", len(dataset.Rows)), zap.String("path", relPath))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s.%s", job.ID, strings.ReplaceAll(string(job.Kind), "_", "-"), timestamp, job.Format)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Kind {
	case models.ExportKindRegistrations:
		return s.buildRegistrationsDataset(ctx, job.Filters)
	case models.ExportKindExpiryAlerts:
		return s.buildExpiryDataset(ctx)
	case models.ExportKindPaidReport:
		return s.buildPaidDataset(ctx, job.Filters)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export kind %s", job.Kind)
	}
}

func (s *ExportService) buildRegistrationsDataset(ctx context.Context, filters models.ExportFilters) (export.Dataset, string, error) {
	rows, err := s.registrations.ListAll(ctx, models.RegistrationFilter{
		Search:             filters.Search,
		Status:             filters.Status,
		CategoryID:         filters.CategoryID,
		PanchayathID:       filters.PanchayathID,
		ExpiringWithinDays: filters.ExpiringWithinDays,
		Now:                s.now().UTC(),
	})
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Name", "Mobile Number", "Ward", "Panchayath", "Category", "Registered Date", "Expiry Date"}
	data := make([]map[string]string, 0, len(rows))
	for _, reg := range rows {
		data = append(data, map[string]string{
			"Name":            reg.FullName,
			"Mobile Number":   reg.MobileNumber,
			"Ward":            reg.Ward,
			"Panchayath":      deref(reg.PanchayathName),
			"Category":        deref(reg.CategoryName),
			"Registered Date": formatExportDate(reg.CreatedAt),
			"Expiry Date":     formatExportDate(detailExpiry(reg)),
		})
	}
	title := fmt.Sprintf("Registrations %s", formatExportDate(s.now()))
	return export.Dataset{Headers: headers, Rows: data}, title, nil
}

func (s *ExportService) buildExpiryDataset(ctx context.Context) (export.Dataset, string, error) {
	pending, err := s.registrations.ListPending(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	now := s.now().UTC()
	classified := ClassifyByExpiry(pending, nil, now, s.cfg.AlertWindowDays)
	entries := append(append([]models.ExpiryEntry{}, classified.Expired...), classified.ExpiringSoon...)

	headers := []string{"Name", "Mobile Number", "Panchayath", "Category", "Created Date", "Expiry Date"}
	data := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		reg := entry.Registration
		data = append(data, map[string]string{
			"Name":          reg.FullName,
			"Mobile Number": reg.MobileNumber,
			"Panchayath":    deref(reg.PanchayathName),
			"Category":      deref(reg.CategoryName),
			"Created Date":  formatExportDate(reg.CreatedAt),
			"Expiry Date":   formatExportDate(entry.EffectiveExpiry),
		})
	}
	title := fmt.Sprintf("Expiry Alerts %s", formatExportDate(now))
	return export.Dataset{Headers: headers, Rows: data}, title, nil
}

func (s *ExportService) buildPaidDataset(ctx context.Context, filters models.ExportFilters) (export.Dataset, string, error) {
	if filters.From == nil || filters.To == nil {
		return export.Dataset{}, "", fmt.Errorf("paid report requires from and to dates")
	}
	from, to := startOfDay(*filters.From), endOfDay(*filters.To)
	approved := models.RegistrationApproved
	rows, err := s.registrations.ListAll(ctx, models.RegistrationFilter{
		Status:       &approved,
		PaidOnly:     true,
		ApprovedFrom: &from,
		ApprovedTo:   &to,
		SortBy:       "approved_date",
		SortOrder:    "asc",
	})
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Name", "Mobile Number", "Category", "Fee Paid", "Approved By", "Approved Date"}
	data := make([]map[string]string, 0, len(rows))
	for _, reg := range rows {
		approvedDate := "N/A"
		if reg.ApprovedDate != nil {
			approvedDate = formatExportDate(*reg.ApprovedDate)
		}
		data = append(data, map[string]string{
			"Name":          reg.FullName,
			"Mobile Number": reg.MobileNumber,
			"Category":      deref(reg.CategoryName),
			"Fee Paid":      reg.Fee.StringFixed(2),
			"Approved By":   deref(reg.ApprovedBy),
			"Approved Date": approvedDate,
		})
	}
	title := fmt.Sprintf("Paid Registrations %s - %s", formatExportDate(from), formatExportDate(to))
	return export.Dataset{Headers: headers, Rows: data}, title, nil
}

func detailExpiry(reg models.RegistrationDetail) time.Time {
	return EffectiveExpiry(reg.Registration, &models.Category{ExpiryDays: reg.CategoryExpiryDays})
}

func formatExportDate(t time.Time) string {
	return t.Format(exportDateLayout)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
