package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

const adminUserColumns = `id, username, full_name, email, password_hash, is_active, last_login, created_by, created_at, updated_at`

// AdminUserRepository provides database access for admin accounts and grants.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates a new instance of AdminUserRepository.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// FindByUsername returns an admin by username (case-insensitive).
func (r *AdminUserRepository) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE LOWER(username) = LOWER($1) LIMIT 1`
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by username: %w", err)
	}
	return &user, nil
}

// FindByID returns an admin by identifier.
func (r *AdminUserRepository) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE id = $1 LIMIT 1`
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin stamps a successful login.
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE admin_users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// PermissionNames returns the active permission names granted to an admin.
func (r *AdminUserRepository) PermissionNames(ctx context.Context, adminID string) ([]string, error) {
	const query = `SELECT p.name FROM admin_user_permissions up JOIN admin_permissions p ON p.id = up.permission_id
WHERE up.admin_user_id = $1 AND p.is_active = TRUE ORDER BY p.name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, adminID); err != nil {
		return nil, fmt.Errorf("load admin permissions: %w", err)
	}
	return names, nil
}

// List returns every admin ordered by username.
func (r *AdminUserRepository) List(ctx context.Context, search string) ([]models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users`
	var args []interface{}
	if s := strings.TrimSpace(search); s != "" {
		query += ` WHERE LOWER(username) LIKE $1 OR LOWER(full_name) LIKE $1`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	query += ` ORDER BY username ASC`
	var users []models.AdminUser
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	return users, nil
}

// ListPermissions returns the active permission catalog.
func (r *AdminUserRepository) ListPermissions(ctx context.Context) ([]models.AdminPermission, error) {
	const query = `SELECT id, name, description, is_active, created_at FROM admin_permissions WHERE is_active = TRUE ORDER BY name`
	var perms []models.AdminPermission
	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, fmt.Errorf("list admin permissions: %w", err)
	}
	return perms, nil
}

// Create inserts an admin and its grants in one transaction.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser, permissionIDs []string, grantedBy string) (err error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create admin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO admin_users (` + adminUserColumns + `)
VALUES (:id, :username, :full_name, :email, :password_hash, :is_active, :last_login, :created_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	if err = insertGrants(ctx, tx, user.ID, permissionIDs, grantedBy, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create admin: %w", err)
	}
	return nil
}

// Update writes profile fields, the active flag and the password hash in one
// statement so a failed edit never leaves a partial change behind.
func (r *AdminUserRepository) Update(ctx context.Context, user *models.AdminUser) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE admin_users SET full_name = :full_name, email = :email, password_hash = :password_hash, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update admin user: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an admin and, through the foreign key, its grants.
func (r *AdminUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete admin user: %w", err)
	}
	return expectAffected(res)
}

// ReplacePermissions deletes every grant of the admin and inserts the new set
// as one unit.
func (r *AdminUserRepository) ReplacePermissions(ctx context.Context, adminID string, permissionIDs []string, grantedBy string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace permissions: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM admin_user_permissions WHERE admin_user_id = $1`, adminID); err != nil {
		return fmt.Errorf("clear admin permissions: %w", err)
	}
	if err = insertGrants(ctx, tx, adminID, permissionIDs, grantedBy, time.Now().UTC()); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace permissions: %w", err)
	}
	return nil
}

func insertGrants(ctx context.Context, tx *sqlx.Tx, adminID string, permissionIDs []string, grantedBy string, at time.Time) error {
	const query = `INSERT INTO admin_user_permissions (id, admin_user_id, permission_id, granted_at, granted_by) VALUES ($1, $2, $3, $4, $5)`
	var by *string
	if grantedBy != "" {
		by = &grantedBy
	}
	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), adminID, permID, at, by); err != nil {
			return fmt.Errorf("grant admin permission: %w", err)
		}
	}
	return nil
}
