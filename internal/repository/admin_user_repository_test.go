package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

func TestAdminFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "full_name", "email", "password_hash", "is_active", "last_login", "created_by", "created_at", "updated_at"}).
		AddRow("1", "eva", "Eva", nil, "hash", true, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM admin_users WHERE LOWER(username) = LOWER($1) LIMIT 1")).
		WithArgs("eva").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "eva")
	require.NoError(t, err)
	assert.Equal(t, "eva", user.Username)
	assert.True(t, user.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminPermissionNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	mock.ExpectQuery("SELECT p.name FROM admin_user_permissions up JOIN admin_permissions p").
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("manage_registrations").AddRow("reports_read"))

	names, err := repo.PermissionNames(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"manage_registrations", "reports_read"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePermissionsDeletesThenInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM admin_user_permissions WHERE admin_user_id = $1")).WithArgs("1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO admin_user_permissions").WithArgs(sqlmock.AnyArg(), "1", "p1", sqlmock.AnyArg(), "eva").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_user_permissions").WithArgs(sqlmock.AnyArg(), "1", "p2", sqlmock.AnyArg(), "eva").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplacePermissions(context.Background(), "1", []string{"p1", "p2"}, "eva"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePermissionsRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM admin_user_permissions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_user_permissions").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.ReplacePermissions(context.Background(), "1", []string{"bogus"}, "eva")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpdateWritesPasswordHashInSameStatement(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	mock.ExpectExec(`UPDATE admin_users SET full_name = .+, email = .+, password_hash = .+, is_active = .+ WHERE id = `).
		WithArgs("Eva K", sqlmock.AnyArg(), "new-hash", true, sqlmock.AnyArg(), "1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.AdminUser{ID: "1", Username: "eva", FullName: "Eva K", PasswordHash: "new-hash", IsActive: true}
	require.NoError(t, repo.Update(context.Background(), user))
	assert.False(t, user.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
