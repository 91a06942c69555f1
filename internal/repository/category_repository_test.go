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

var categoryRowColumns = []string{"id", "name_english", "name_malayalam", "description", "actual_fee", "offer_fee", "expiry_days", "offer_start_date", "offer_end_date", "is_active", "qr_code_url", "created_at", "updated_at"}

func TestCategoryListActiveOrderedByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(categoryRowColumns).
		AddRow("cat-1", "Job Card", "ജോബ് കാർഡ്", nil, "200.00", "150.00", 45, nil, nil, true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE 1=1 AND is_active = TRUE AND LOWER(name_english) LIKE $1 ORDER BY name_english ASC")).
		WithArgs("%job card%").
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), models.CategoryFilter{ActiveOnly: true, NameLike: "Job Card"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, decimal.NewFromInt(150).Equal(items[0].ChargeableFee()))
	assert.Equal(t, 45, items[0].ValidityDays())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategorySetActiveMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories SET is_active = $2")).WithArgs("missing", false, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), "missing", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
