package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

// PanchayathRepository handles persistence for panchayaths.
type PanchayathRepository struct {
	db *sqlx.DB
}

// NewPanchayathRepository creates a new repository.
func NewPanchayathRepository(db *sqlx.DB) *PanchayathRepository {
	return &PanchayathRepository{db: db}
}

// List returns panchayaths ordered by name.
func (r *PanchayathRepository) List(ctx context.Context, activeOnly bool) ([]models.Panchayath, error) {
	query := `SELECT id, name, district, is_active, created_at, updated_at FROM panchayaths`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	var items []models.Panchayath
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list panchayaths: %w", err)
	}
	return items, nil
}

// FindByID returns a panchayath by id.
func (r *PanchayathRepository) FindByID(ctx context.Context, id string) (*models.Panchayath, error) {
	const query = `SELECT id, name, district, is_active, created_at, updated_at FROM panchayaths WHERE id = $1`
	var p models.Panchayath
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find panchayath: %w", err)
	}
	return &p, nil
}

// Create inserts a panchayath.
func (r *PanchayathRepository) Create(ctx context.Context, p *models.Panchayath) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	const query = `INSERT INTO panchayaths (id, name, district, is_active, created_at, updated_at) VALUES (:id, :name, :district, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("create panchayath: %w", err)
	}
	return nil
}

// Update writes name, district and active flag.
func (r *PanchayathRepository) Update(ctx context.Context, p *models.Panchayath) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE panchayaths SET name = :name, district = :district, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("update panchayath: %w", err)
	}
	return expectAffected(res)
}

// SetActive toggles the active flag.
func (r *PanchayathRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE panchayaths SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set panchayath active: %w", err)
	}
	return expectAffected(res)
}
