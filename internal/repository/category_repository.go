package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

const categoryColumns = `id, name_english, name_malayalam, description, actual_fee, offer_fee, expiry_days, offer_start_date, offer_end_date, is_active, qr_code_url, created_at, updated_at`

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories ordered by English name.
func (r *CategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.NameLike != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name_english) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.NameLike)+"%")
	}
	query := fmt.Sprintf("SELECT %s FROM categories WHERE %s ORDER BY name_english ASC", categoryColumns, strings.Join(conditions, " AND "))
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID returns a category by id.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// FindByIDs returns the categories with the given ids, in no particular order.
func (r *CategoryRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ANY($1)`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find categories by ids: %w", err)
	}
	return categories, nil
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO categories (` + categoryColumns + `)
VALUES (:id, :name_english, :name_malayalam, :description, :actual_fee, :offer_fee, :expiry_days, :offer_start_date, :offer_end_date, :is_active, :qr_code_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update writes every mutable column.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name_english = :name_english, name_malayalam = :name_malayalam, description = :description, actual_fee = :actual_fee,
offer_fee = :offer_fee, expiry_days = :expiry_days, offer_start_date = :offer_start_date, offer_end_date = :offer_end_date, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectAffected(res)
}

// SetActive toggles the soft-delete flag.
func (r *CategoryRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	return expectAffected(res)
}

// SetQRCodeURL stores the payment QR location.
func (r *CategoryRepository) SetQRCodeURL(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET qr_code_url = $2, updated_at = $3 WHERE id = $1`, id, url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set category qr code: %w", err)
	}
	return expectAffected(res)
}
