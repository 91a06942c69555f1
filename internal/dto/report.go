package dto

import "github.com/noah-isme/sep-portal-api/internal/models"

// ExportRequest captures POST /admin/reports/exports payload.
type ExportRequest struct {
	Kind    models.ExportKind    `json:"kind" validate:"required"`
	Format  models.ReportFormat  `json:"format" validate:"required"`
	Filters models.ExportFilters `json:"filters"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Kind      models.ExportKind   `json:"kind"`
	Format    models.ReportFormat `json:"format"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
