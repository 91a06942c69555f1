package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

var registrationDetailRowColumns = []string{
	"id", "customer_id", "full_name", "mobile_number", "address", "ward", "agent", "category_id", "preference_category_id", "panchayath_id",
	"fee", "status", "approved_date", "approved_by", "expiry_date", "created_at", "updated_at",
	"category_name", "category_name_malayalam", "category_expiry_days", "category_qr_code_url", "panchayath_name", "panchayath_district",
}

func TestRegistrationApproveUsesConditionalUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, 45)
	mock.ExpectExec(regexp.QuoteMeta("expiry_date = COALESCE(expiry_date, $4)")+".*"+regexp.QuoteMeta("WHERE id = $1 AND status = 'pending'")).
		WithArgs("reg-1", now, "eva", expiry).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Approve(context.Background(), models.ApproveParams{ID: "reg-1", ApprovedAt: now, ApprovedBy: "eva", ExpiryDate: expiry})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationApproveReportsLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec("UPDATE registrations SET status = 'approved'").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Approve(context.Background(), models.ApproveParams{ID: "reg-1", ApprovedAt: time.Now(), ApprovedBy: "eva", ExpiryDate: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationBulkApproveCommitsWhenAllRowsMatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	params := models.BulkApproveParams{
		IDs:        []string{"a", "b"},
		ApprovedAt: now,
		ApprovedBy: "eva",
		ExpiryDates: map[string]time.Time{
			"a": now.AddDate(0, 0, 30),
			"b": now.AddDate(0, 0, 60),
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::timestamptz[]) AS expiry) v")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), now, "eva").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	affected, applied, err := repo.BulkApprove(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationBulkApproveRollsBackOnPartialMatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE registrations r SET status = 'approved'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	affected, applied, err := repo.BulkApprove(context.Background(), models.BulkApproveParams{IDs: []string{"a", "b"}, ApprovedAt: time.Now(), ApprovedBy: "eva"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRestoreKeepsExpiry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = 'pending', approved_date = NULL, approved_by = NULL, updated_at = $3 WHERE id = $1 AND status = $2")).
		WithArgs("reg-1", "approved", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Restore(context.Background(), "reg-1", models.RegistrationApproved, at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationListAppliesExpiryFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	days := 3
	created := now.AddDate(0, 0, -28)
	rows := sqlmock.NewRows(registrationDetailRowColumns).
		AddRow("reg-1", "ESEP9876543210A", "Anu", "9876543210", "Addr", "5", nil, "cat-1", nil, "p-1",
			"150.00", "pending", nil, nil, nil, created, created,
			"Tailoring", "തയ്യൽ", 30, nil, "Kuttiady", "Kozhikode")

	mock.ExpectQuery(`WHERE 1=1 AND r.status = 'pending' AND CEIL\(EXTRACT\(EPOCH FROM .* BETWEEN 0 AND \$2 ORDER BY r.created_at DESC LIMIT 50 OFFSET 0`).
		WithArgs(now, days).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations r")).
		WithArgs(now, days).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.RegistrationFilter{ExpiringWithinDays: &days, Now: now})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.True(t, decimal.RequireFromString("150").Equal(items[0].Fee))
	require.NotNil(t, items[0].CategoryName)
	assert.Equal(t, "Tailoring", *items[0].CategoryName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationListExpiredOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now().UTC()
	zero := 0
	mock.ExpectQuery(`86400\) <= 0 ORDER BY`).WithArgs(now).WillReturnRows(sqlmock.NewRows(registrationDetailRowColumns))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WithArgs(now).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.RegistrationFilter{ExpiringWithinDays: &zero, Now: now})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM registrations WHERE id = $1")).WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationPaidSummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.status = 'approved' AND r.fee > 0 AND r.approved_date >= $1 AND r.approved_date <= $2")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"total", "fees", "categories", "panchayaths"}).AddRow(4, "600.00", 2, 3))

	summary, err := repo.PaidSummary(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.True(t, decimal.NewFromInt(600).Equal(summary.Fees))
	assert.Equal(t, 3, summary.Panchayaths)
	assert.NoError(t, mock.ExpectationsWereMet())
}
