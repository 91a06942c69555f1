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

// UtilityRepository persists public utility links.
type UtilityRepository struct {
	db *sqlx.DB
}

// NewUtilityRepository creates the repository.
func NewUtilityRepository(db *sqlx.DB) *UtilityRepository {
	return &UtilityRepository{db: db}
}

// List returns utilities ordered by name; limit <= 0 means no limit.
func (r *UtilityRepository) List(ctx context.Context, activeOnly bool, limit int) ([]models.Utility, error) {
	query := `SELECT id, name, url, description, is_active, created_at, updated_at FROM utilities`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var items []models.Utility
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list utilities: %w", err)
	}
	return items, nil
}

// FindByID returns a utility.
func (r *UtilityRepository) FindByID(ctx context.Context, id string) (*models.Utility, error) {
	const query = `SELECT id, name, url, description, is_active, created_at, updated_at FROM utilities WHERE id = $1`
	var u models.Utility
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find utility: %w", err)
	}
	return &u, nil
}

// Create inserts a utility.
func (r *UtilityRepository) Create(ctx context.Context, u *models.Utility) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	const query = `INSERT INTO utilities (id, name, url, description, is_active, created_at, updated_at) VALUES (:id, :name, :url, :description, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return fmt.Errorf("create utility: %w", err)
	}
	return nil
}

// Update writes every mutable column.
func (r *UtilityRepository) Update(ctx context.Context, u *models.Utility) error {
	u.UpdatedAt = time.Now().UTC()
	const query = `UPDATE utilities SET name = :name, url = :url, description = :description, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		return fmt.Errorf("update utility: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a utility.
func (r *UtilityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM utilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete utility: %w", err)
	}
	return expectAffected(res)
}
