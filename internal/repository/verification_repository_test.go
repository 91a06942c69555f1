package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/pkg/database"
)

func TestVerificationUpsertReturnsStoredRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	by := "alice"
	at := time.Now().UTC()
	firstVerified := at.Add(-48 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "registration_id", "verified", "verified_by", "verified_at", "restored_by", "restored_at", "created_at", "updated_at"}).
		AddRow("ver-existing", "reg-1", true, by, at, nil, nil, firstVerified, at)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (registration_id) DO UPDATE SET verified = EXCLUDED.verified")).
		WillReturnRows(rows)

	v := &models.RegistrationVerification{RegistrationID: "reg-1", Verified: true, VerifiedBy: &by, VerifiedAt: &at}
	err := repo.Upsert(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "ver-existing", v.ID)
	assert.True(t, firstVerified.Equal(v.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationUpsertKeepsUndefinedTableDetectable(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	mock.ExpectQuery("INSERT INTO registration_verifications").WillReturnError(&pq.Error{Code: "42P01"})

	err := repo.Upsert(context.Background(), &models.RegistrationVerification{RegistrationID: "reg-1"})
	require.Error(t, err)
	assert.True(t, database.IsUndefinedTable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifiedAmountJoinsVerifiedRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(r.fee), 0) FROM registrations r JOIN registration_verifications v ON v.registration_id = r.id WHERE v.verified = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("350.50"))

	total, err := repo.VerifiedAmount(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("350.50").Equal(total))
	assert.NoError(t, mock.ExpectationsWereMet())
}
