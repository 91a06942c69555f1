package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

const verificationColumns = `id, registration_id, verified, verified_by, verified_at, restored_by, restored_at, created_at, updated_at`

// VerificationRepository stores the fee reconciliation ledger.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository creates a new repository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Upsert writes the ledger row for a registration, creating it on first use.
// The stored id and created_at are copied back into v. Errors are wrapped
// with %w so missing-table failures stay detectable.
func (r *VerificationRepository) Upsert(ctx context.Context, v *models.RegistrationVerification) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	const query = `INSERT INTO registration_verifications (` + verificationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (registration_id) DO UPDATE SET verified = EXCLUDED.verified, verified_by = EXCLUDED.verified_by, verified_at = EXCLUDED.verified_at,
restored_by = EXCLUDED.restored_by, restored_at = EXCLUDED.restored_at, updated_at = EXCLUDED.updated_at
RETURNING ` + verificationColumns
	var stored models.RegistrationVerification
	if err := r.db.GetContext(ctx, &stored, query, v.ID, v.RegistrationID, v.Verified, v.VerifiedBy, v.VerifiedAt, v.RestoredBy, v.RestoredAt, v.CreatedAt, v.UpdatedAt); err != nil {
		return fmt.Errorf("upsert registration verification: %w", err)
	}
	*v = stored
	return nil
}

// FindByRegistration returns the ledger row for one registration.
func (r *VerificationRepository) FindByRegistration(ctx context.Context, registrationID string) (*models.RegistrationVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM registration_verifications WHERE registration_id = $1`
	var v models.RegistrationVerification
	if err := r.db.GetContext(ctx, &v, query, registrationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration verification: %w", err)
	}
	return &v, nil
}

// ListByRegistrations returns ledger rows for the given registrations.
func (r *VerificationRepository) ListByRegistrations(ctx context.Context, ids []string) ([]models.RegistrationVerification, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + verificationColumns + ` FROM registration_verifications WHERE registration_id = ANY($1)`
	var items []models.RegistrationVerification
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list registration verifications: %w", err)
	}
	return items, nil
}

// VerifiedAmount sums the fee of every registration whose ledger row is verified.
func (r *VerificationRepository) VerifiedAmount(ctx context.Context) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(r.fee), 0) FROM registrations r JOIN registration_verifications v ON v.registration_id = r.id WHERE v.verified = TRUE`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return decimal.Zero, fmt.Errorf("verified amount: %w", err)
	}
	return total, nil
}
