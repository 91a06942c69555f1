package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExportKind enumerates the datasets that can be exported.
type ExportKind string

const (
	ExportKindRegistrations ExportKind = "registrations"
	ExportKindExpiryAlerts  ExportKind = "expiry_alerts"
	ExportKindPaidReport    ExportKind = "paid_report"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ExportFilters are the dataset options persisted with the job.
type ExportFilters struct {
	From               *time.Time          `json:"from,omitempty"`
	To                 *time.Time          `json:"to,omitempty"`
	Status             *RegistrationStatus `json:"status,omitempty"`
	CategoryID         string              `json:"category_id,omitempty"`
	PanchayathID       string              `json:"panchayath_id,omitempty"`
	Search             string              `json:"search,omitempty"`
	ExpiringWithinDays *int                `json:"expiring_within_days,omitempty"`
}

// ExportJob is the state of one asynchronous export.
type ExportJob struct {
	ID           string        `json:"id"`
	Kind         ExportKind    `json:"kind"`
	Format       ReportFormat  `json:"format"`
	Filters      ExportFilters `json:"filters"`
	Status       ReportStatus  `json:"status"`
	ResultURL    *string       `json:"result_url,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// ReportSummary aggregates paid registrations over an approval window.
type ReportSummary struct {
	From                *time.Time      `json:"from,omitempty"`
	To                  *time.Time      `json:"to,omitempty"`
	TotalRegistrations  int             `json:"total_registrations"`
	TotalFeesCollected  decimal.Decimal `json:"total_fees_collected"`
	DistinctCategories  int             `json:"distinct_categories"`
	DistinctPanchayaths int             `json:"distinct_panchayaths"`
	PendingAmount       decimal.Decimal `json:"pending_amount"`
	TotalVerifiedAmount decimal.Decimal `json:"total_verified_amount"`
}
