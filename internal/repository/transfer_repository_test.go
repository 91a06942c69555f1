package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

var transferRowColumns = []string{"id", "registration_id", "from_category_id", "to_category_id", "customer_id", "full_name", "mobile_number", "reason", "status", "requested_at", "processed_at", "processed_by", "created_at", "updated_at"}

func transferRow(status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(transferRowColumns).
		AddRow("req-1", "reg-1", "cat-a", "cat-b", "ESEP9876543210A", "Anu", "9876543210", nil, status, now, nil, nil, now, now)
}

func TestTransferApproveRunsInOneTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)

	at := time.Now().UTC()
	fee := decimal.NewFromInt(150)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM category_transfer_requests WHERE id = $1 FOR UPDATE")).WithArgs("req-1").WillReturnRows(transferRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET category_id = $2, fee = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("reg-1", "cat-b", fee, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE category_transfer_requests SET status = 'approved'")).
		WithArgs("req-1", at, "eva").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.Approve(context.Background(), TransferApproval{RequestID: "req-1", NewFee: fee, ProcessedBy: "eva", ProcessedAt: at})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferApproveLeavesRequestPendingWhenRegistrationUpdateFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(transferRow("pending"))
	mock.ExpectExec("UPDATE registrations SET category_id").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	ok, err := repo.Approve(context.Background(), TransferApproval{RequestID: "req-1", NewFee: decimal.NewFromInt(150), ProcessedBy: "eva", ProcessedAt: time.Now()})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "apply transfer to registration")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferApproveSkipsProcessedRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(transferRow("rejected"))
	mock.ExpectRollback()

	ok, err := repo.Approve(context.Background(), TransferApproval{RequestID: "req-1", ProcessedBy: "eva", ProcessedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferListOrdersNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 ORDER BY requested_at DESC LIMIT 100 OFFSET 0")).WillReturnRows(transferRow("pending"))

	items, err := repo.List(context.Background(), models.TransferFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
