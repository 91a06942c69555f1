package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/internal/repository"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/jobs"
)

// ExportJobType tags export jobs on the shared queue.
const ExportJobType = "export"

type paidSummarySource interface {
	PaidSummary(ctx context.Context, from, to time.Time) (*repository.PaidSummary, error)
	PendingAmount(ctx context.Context) (decimal.Decimal, error)
}

type exportJobStore interface {
	Save(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	Prune(now time.Time) int
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ReportService computes the paid registrations summary and orchestrates
// export jobs.
type ReportService struct {
	registrations paidSummarySource
	verified      verifiedTotaler
	jobs          exportJobStore
	queue         jobDispatcher
	exporter      *ExportService
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(registrations paidSummarySource, verified verifiedTotaler, jobStore exportJobStore, queue jobDispatcher, exporter *ExportService, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		registrations: registrations,
		verified:      verified,
		jobs:          jobStore,
		queue:         queue,
		exporter:      exporter,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Summary aggregates paid approved registrations whose approval falls within
// the whole days from..to. Either bound may be omitted.
func (s *ReportService) Summary(ctx context.Context, from, to *time.Time) (*models.ReportSummary, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, appErrors.Validation("from date must not be after to date")
	}
	lower := time.Unix(0, 0).UTC()
	if from != nil {
		lower = startOfDay(*from)
	}
	upper := endOfDay(s.now().UTC())
	if to != nil {
		upper = endOfDay(*to)
	}

	var (
		paid     *repository.PaidSummary
		pending  decimal.Decimal
		verified decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		paid, err = s.registrations.PaidSummary(gctx, lower, upper)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.registrations.PendingAmount(gctx)
		return err
	})
	g.Go(func() error {
		if s.verified == nil {
			return nil
		}
		var err error
		verified, err = s.verified.VerifiedAmount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Store(err, "failed to compute report summary")
	}

	return &models.ReportSummary{
		From:                from,
		To:                  to,
		TotalRegistrations:  paid.Total,
		TotalFeesCollected:  paid.Fees,
		DistinctCategories:  paid.Categories,
		DistinctPanchayaths: paid.Panchayaths,
		PendingAmount:       pending,
		TotalVerifiedAmount: verified,
	}, nil
}

// CreateExport validates the request, stores a queued job and hands it to
// the worker queue.
func (s *ReportService) CreateExport(ctx context.Context, req dto.ExportRequest, actor string) (*dto.ExportJobResponse, error) {
	if err := validateExportRequest(req); err != nil {
		return nil, err
	}
	job := &models.ExportJob{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Format:    req.Format,
		Filters:   req.Filters,
		Status:    models.ReportStatusQueued,
		CreatedBy: actor,
		CreatedAt: s.now().UTC(),
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, appErrors.Store(err, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
		msg := "failed to enqueue job"
		now := s.now().UTC()
		job.Status = models.ReportStatusFailed
		job.ErrorMessage = &msg
		job.FinishedAt = &now
		_ = s.jobs.Save(ctx, job)
		s.metrics.RecordExportJob(string(job.Kind), string(job.Format), string(job.Status))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.metrics.RecordExportJob(string(job.Kind), string(job.Format), string(job.Status))
	s.logger.Info("export queued", zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)), zap.String("format", string(job.Format)))
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// ExportStatus exposes job progress.
func (s *ReportService) ExportStatus(ctx context.Context, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.job(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.ExportStatusResponse{
		ID:        job.ID,
		Kind:      job.Kind,
		Format:    job.Format,
		Status:    job.Status,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// Cleanup purges expired export files and stale job state. It is run by the
// scheduler.
func (s *ReportService) Cleanup(ctx context.Context) error {
	deleted, err := s.exporter.Cleanup(0)
	if err != nil {
		return fmt.Errorf("cleanup exports: %w", err)
	}
	pruned := s.jobs.Prune(s.now())
	if len(deleted) > 0 || pruned > 0 {
		s.logger.Info("export cleanup", zap.Int("files", len(deleted)), zap.Int("jobs", pruned))
	}
	return nil
}

func (s *ReportService) job(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Store(err, "failed to load export job")
	}
	return job, nil
}

func validateExportRequest(req dto.ExportRequest) error {
	switch req.Kind {
	case models.ExportKindRegistrations, models.ExportKindExpiryAlerts, models.ExportKindPaidReport:
	default:
		return appErrors.Validation("unsupported export kind")
	}
	switch req.Format {
	case models.ReportFormatCSV, models.ReportFormatPDF, models.ReportFormatXLSX:
	default:
		return appErrors.Validation("unsupported export format")
	}
	from, to := req.Filters.From, req.Filters.To
	if req.Kind == models.ExportKindPaidReport && (from == nil || to == nil) {
		return appErrors.Validation("please select both from and to dates to export")
	}
	if from != nil && to != nil && from.After(*to) {
		return appErrors.Validation("from date must not be after to date")
	}
	if req.Filters.Status != nil && !req.Filters.Status.Valid() {
		return appErrors.Validation("invalid status filter")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	jobs       exportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(jobStore exportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		jobs:       jobStore,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.jobs.FindByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Warn("export job expired before processing", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	record.Status = models.ReportStatusProcessing
	if err := w.jobs.Save(ctx, record); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		record.ErrorMessage = &msg
		if job.Attempt >= w.maxRetries {
			now := time.Now().UTC()
			record.Status = models.ReportStatusFailed
			record.FinishedAt = &now
			w.metrics.RecordExportJob(string(record.Kind), string(record.Format), string(record.Status))
		} else {
			record.Status = models.ReportStatusQueued
		}
		if saveErr := w.jobs.Save(ctx, record); saveErr != nil {
			w.logger.Warn("failed to record export failure", zap.String("job_id", job.ID), zap.Error(saveErr))
		}
		return err
	}

	now := time.Now().UTC()
	url := result.URL
	record.Status = models.ReportStatusFinished
	record.ResultURL = &url
	record.ErrorMessage = nil
	record.FinishedAt = &now
	if err := w.jobs.Save(ctx, record); err != nil {
		w.logger.Warn("failed to mark export finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordExportJob(string(record.Kind), string(record.Format), string(record.Status))
	return nil
}
