package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

const transferColumns = `id, registration_id, from_category_id, to_category_id, customer_id, full_name, mobile_number, reason, status, requested_at, processed_at, processed_by, created_at, updated_at`

// TransferRepository persists category transfer requests.
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository creates a new repository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// FindPendingByRegistration returns the open request for a registration.
func (r *TransferRepository) FindPendingByRegistration(ctx context.Context, registrationID string) (*models.CategoryTransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM category_transfer_requests WHERE registration_id = $1 AND status = 'pending' LIMIT 1`
	var req models.CategoryTransferRequest
	if err := r.db.GetContext(ctx, &req, query, registrationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pending transfer: %w", err)
	}
	return &req, nil
}

// FindByID returns a request by id.
func (r *TransferRepository) FindByID(ctx context.Context, id string) (*models.CategoryTransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM category_transfer_requests WHERE id = $1`
	var req models.CategoryTransferRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find transfer request: %w", err)
	}
	return &req, nil
}

// Create inserts a pending request. The partial unique index on
// (registration_id) WHERE status = 'pending' rejects a second open request.
func (r *TransferRepository) Create(ctx context.Context, req *models.CategoryTransferRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = now
	}
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Status = models.TransferPending
	const query = `INSERT INTO category_transfer_requests (` + transferColumns + `)
VALUES (:id, :registration_id, :from_category_id, :to_category_id, :customer_id, :full_name, :mobile_number, :reason, :status, :requested_at, :processed_at, :processed_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create transfer request: %w", err)
	}
	return nil
}

// List returns requests ordered newest first.
func (r *TransferRepository) List(ctx context.Context, filter models.TransferFilter) ([]models.CategoryTransferRequest, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.RegistrationID != "" {
		conditions = append(conditions, fmt.Sprintf("registration_id = $%d", len(args)+1))
		args = append(args, filter.RegistrationID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM category_transfer_requests WHERE %s ORDER BY requested_at DESC LIMIT %d OFFSET %d", transferColumns, strings.Join(conditions, " AND "), limit, offset)
	var items []models.CategoryTransferRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list transfer requests: %w", err)
	}
	return items, nil
}

// TransferApproval describes an accepted transfer.
type TransferApproval struct {
	RequestID   string
	NewFee      decimal.Decimal
	ProcessedBy string
	ProcessedAt time.Time
}

// Approve applies the transfer to the registration and closes the request in
// one transaction. The request row is locked first; it reports false when
// the request was no longer pending, leaving both rows untouched.
func (r *TransferRepository) Approve(ctx context.Context, approval TransferApproval) (ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve transfer: %w", err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
		}
	}()

	var req models.CategoryTransferRequest
	lockQuery := `SELECT ` + transferColumns + ` FROM category_transfer_requests WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &req, lockQuery, approval.RequestID); err != nil {
		if err == sql.ErrNoRows {
			return false, err
		}
		return false, fmt.Errorf("lock transfer request: %w", err)
	}
	if req.Status != models.TransferPending {
		return false, nil
	}

	res, err := tx.ExecContext(ctx, `UPDATE registrations SET category_id = $2, fee = $3, updated_at = $4 WHERE id = $1`,
		req.RegistrationID, req.ToCategoryID, approval.NewFee, approval.ProcessedAt)
	if err != nil {
		return false, fmt.Errorf("apply transfer to registration: %w", err)
	}
	if err = expectAffected(res); err != nil {
		return false, err
	}

	res, err = tx.ExecContext(ctx, `UPDATE category_transfer_requests SET status = 'approved', processed_at = $2, processed_by = $3, updated_at = $2 WHERE id = $1 AND status = 'pending'`,
		approval.RequestID, approval.ProcessedAt, approval.ProcessedBy)
	if err != nil {
		return false, fmt.Errorf("close transfer request: %w", err)
	}
	if ok, err = affectedOne(res); err != nil || !ok {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve transfer: %w", err)
	}
	return true, nil
}

// Reject closes a pending request without touching the registration.
func (r *TransferRepository) Reject(ctx context.Context, id, processedBy string, at time.Time) (bool, error) {
	const query = `UPDATE category_transfer_requests SET status = 'rejected', processed_at = $2, processed_by = $3, updated_at = $2 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, at, processedBy)
	if err != nil {
		return false, fmt.Errorf("reject transfer request: %w", err)
	}
	return affectedOne(res)
}
