package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/pkg/storage"
)

type registrationExportStub struct {
	all        []models.RegistrationDetail
	pending    []models.RegistrationDetail
	lastFilter models.RegistrationFilter
}

func (r *registrationExportStub) ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	r.lastFilter = filter
	return r.all, nil
}

func (r *registrationExportStub) ListPending(ctx context.Context) ([]models.RegistrationDetail, error) {
	return r.pending, nil
}

func strPtr(s string) *string { return &s }

func exportDetail(name string, created time.Time, expiryDays int) models.RegistrationDetail {
	return models.RegistrationDetail{
		Registration: models.Registration{
			ID:           "reg-" + name,
			FullName:     name,
			MobileNumber: "9876543210",
			Ward:         "4",
			Status:       models.RegistrationPending,
			Fee:          decimal.NewFromInt(300),
			CreatedAt:    created,
		},
		CategoryName:       strPtr("Job Card"),
		CategoryExpiryDays: intPtr(expiryDays),
		PanchayathName:     strPtr("Kodur"),
	}
}

func newExportServiceForTest(t *testing.T, source registrationExportSource) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(source, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func readCSV(t *testing.T, store *storage.LocalStorage, relPath string) [][]string {
	t.Helper()
	f, err := store.Open(relPath)
	require.NoError(t, err)
	defer f.Close()
	raw, err := io.ReadAll(f)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\uFEFF"))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportServiceRegistrationsCSV(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	source := &registrationExportStub{all: []models.RegistrationDetail{exportDetail("Anu", created, 10)}}
	svc, store := newExportServiceForTest(t, source)

	pending := models.RegistrationPending
	result, err := svc.Generate(context.Background(), &models.ExportJob{
		ID:      "job-1",
		Kind:    models.ExportKindRegistrations,
		Format:  models.ReportFormatCSV,
		Filters: models.ExportFilters{Status: &pending, CategoryID: catTailoringID},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))
	assert.Equal(t, catTailoringID, source.lastFilter.CategoryID)
	require.NotNil(t, source.lastFilter.Status)

	records := readCSV(t, store, result.RelativePath)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Name", "Mobile Number", "Ward", "Panchayath", "Category", "Registered Date", "Expiry Date"}, records[0])
	assert.Equal(t, []string{"Anu", "9876543210", "4", "Kodur", "Job Card", "01/05/2024", "11/05/2024"}, records[1])
}

func TestExportServiceExpiryAlertsOnlyFlaggedRows(t *testing.T) {
	source := &registrationExportStub{pending: []models.RegistrationDetail{
		exportDetail("Expired", testNow.AddDate(0, 0, -40), 30),
		exportDetail("Soon", testNow.AddDate(0, 0, -28), 30),
		exportDetail("Fresh", testNow.AddDate(0, 0, -1), 30),
	}}
	svc, store := newExportServiceForTest(t, source)

	result, err := svc.Generate(context.Background(), &models.ExportJob{ID: "job-2", Kind: models.ExportKindExpiryAlerts, Format: models.ReportFormatCSV})
	require.NoError(t, err)

	records := readCSV(t, store, result.RelativePath)
	require.Len(t, records, 3)
	assert.Equal(t, "Created Date", records[0][4])
	assert.Equal(t, "Expired", records[1][0])
	assert.Equal(t, "Soon", records[2][0])
}

func TestExportServicePaidReportUsesWholeDays(t *testing.T) {
	approvedAt := time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC)
	row := exportDetail("Paid", testNow, 30)
	row.Status = models.RegistrationApproved
	row.ApprovedDate = &approvedAt
	row.ApprovedBy = strPtr("manu")
	source := &registrationExportStub{all: []models.RegistrationDetail{row}}
	svc, store := newExportServiceForTest(t, source)

	from := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	result, err := svc.Generate(context.Background(), &models.ExportJob{
		ID:      "job-3",
		Kind:    models.ExportKindPaidReport,
		Format:  models.ReportFormatCSV,
		Filters: models.ExportFilters{From: &from, To: &to},
	})
	require.NoError(t, err)

	f := source.lastFilter
	assert.True(t, f.PaidOnly)
	require.NotNil(t, f.ApprovedFrom)
	require.NotNil(t, f.ApprovedTo)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *f.ApprovedFrom)
	assert.Equal(t, time.Date(2024, 5, 3, 23, 59, 59, 999999999, time.UTC), *f.ApprovedTo)

	records := readCSV(t, store, result.RelativePath)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Paid", "9876543210", "Job Card", "300.00", "manu", "03/05/2024"}, records[1])
}

func TestExportServicePaidReportRequiresDates(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &registrationExportStub{})
	_, err := svc.Generate(context.Background(), &models.ExportJob{ID: "job-4", Kind: models.ExportKindPaidReport, Format: models.ReportFormatPDF})
	require.Error(t, err)
}

func TestExportServiceRendersPDFAndXLSX(t *testing.T) {
	source := &registrationExportStub{all: []models.RegistrationDetail{exportDetail("Anu", testNow, 30)}}
	svc, store := newExportServiceForTest(t, source)

	for _, format := range []models.ReportFormat{models.ReportFormatPDF, models.ReportFormatXLSX} {
		result, err := svc.Generate(context.Background(), &models.ExportJob{ID: "job-" + string(format), Kind: models.ExportKindRegistrations, Format: format})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(result.RelativePath, "."+string(format)))
		f, err := store.Open(result.RelativePath)
		require.NoError(t, err)
		info, err := f.Stat()
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
		f.Close()
	}
}
