package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

const exportJobKeyPrefix = "sep:export_job:"

// ExportJobRepository keeps export job state. Jobs live in Redis when it is
// configured, otherwise in process memory; either way they expire after ttl.
type ExportJobRepository struct {
	cache *CacheRepository
	ttl   time.Duration

	mu     sync.RWMutex
	memory map[string]memoryJob
}

type memoryJob struct {
	job       models.ExportJob
	expiresAt time.Time
}

// NewExportJobRepository builds the store. A zero ttl keeps jobs for 24h.
func NewExportJobRepository(cache *CacheRepository, ttl time.Duration) *ExportJobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportJobRepository{cache: cache, ttl: ttl, memory: make(map[string]memoryJob)}
}

// Save writes the job, replacing any previous state.
func (r *ExportJobRepository) Save(ctx context.Context, job *models.ExportJob) error {
	if r.cache.Enabled() {
		return r.cache.Set(ctx, exportJobKeyPrefix+job.ID, job, r.ttl)
	}
	r.mu.Lock()
	r.memory[job.ID] = memoryJob{job: *job, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	return nil
}

// FindByID returns the job or sql.ErrNoRows.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if r.cache.Enabled() {
		var job models.ExportJob
		if err := r.cache.Get(ctx, exportJobKeyPrefix+id, &job); err != nil {
			if err == appErrors.ErrCacheMiss {
				return nil, sql.ErrNoRows
			}
			return nil, err
		}
		return &job, nil
	}
	r.mu.RLock()
	entry, ok := r.memory[id]
	r.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, sql.ErrNoRows
	}
	job := entry.job
	return &job, nil
}

// Prune drops expired in-memory jobs. Redis expires its own keys.
func (r *ExportJobRepository) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, entry := range r.memory {
		if now.After(entry.expiresAt) {
			delete(r.memory, id)
			removed++
		}
	}
	return removed
}
