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
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

const registrationColumns = `r.id, r.customer_id, r.full_name, r.mobile_number, r.address, r.ward, r.agent, r.category_id, r.preference_category_id, r.panchayath_id, r.fee, r.status, r.approved_date, r.approved_by, r.expiry_date, r.created_at, r.updated_at`

const registrationDetailColumns = registrationColumns + `, c.name_english AS category_name, c.name_malayalam AS category_name_malayalam, c.expiry_days AS category_expiry_days, c.qr_code_url AS category_qr_code_url, p.name AS panchayath_name, p.district AS panchayath_district`

const registrationJoins = `FROM registrations r LEFT JOIN categories c ON c.id = r.category_id LEFT JOIN panchayaths p ON p.id = r.panchayath_id`

// effectiveExpirySQL mirrors the in-process fallback: stored expiry, else
// creation time plus the category policy (30 days when unset).
const effectiveExpirySQL = `COALESCE(r.expiry_date, r.created_at + make_interval(days => COALESCE(NULLIF(c.expiry_days, 0), 30)))`

// RegistrationRepository persists citizen registrations and owns the
// conditional status updates used by the lifecycle engine.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository creates a new repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a pending registration.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = now
	if reg.Status == "" {
		reg.Status = models.RegistrationPending
	}
	const query = `INSERT INTO registrations (id, customer_id, full_name, mobile_number, address, ward, agent, category_id, preference_category_id, panchayath_id, fee, status, expiry_date, created_at, updated_at)
VALUES (:id, :customer_id, :full_name, :mobile_number, :address, :ward, :agent, :category_id, :preference_category_id, :panchayath_id, :fee, :status, :expiry_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// FindByID returns the bare registration row.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.id = $1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

// FindByIDs returns the bare rows for ids; missing ids are simply absent.
func (r *RegistrationRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Registration, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.id = ANY($1)`
	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find registrations by ids: %w", err)
	}
	return regs, nil
}

// GetDetail returns a registration joined with category and panchayath names.
func (r *RegistrationRepository) GetDetail(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	query := `SELECT ` + registrationDetailColumns + ` ` + registrationJoins + ` WHERE r.id = $1`
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get registration detail: %w", err)
	}
	return &detail, nil
}

// FindByMobileOrCustomerID returns the newest registration matching either
// identifier exactly.
func (r *RegistrationRepository) FindByMobileOrCustomerID(ctx context.Context, q string) (*models.RegistrationDetail, error) {
	query := `SELECT ` + registrationDetailColumns + ` ` + registrationJoins + ` WHERE r.mobile_number = $1 OR UPPER(r.customer_id) = UPPER($1) ORDER BY r.created_at DESC LIMIT 1`
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, q); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration by mobile or customer id: %w", err)
	}
	return &detail, nil
}

func buildRegistrationWhere(filter models.RegistrationFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.full_name) LIKE $%d OR r.mobile_number LIKE $%d OR LOWER(r.customer_id) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(filter.Search))+"%")
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("r.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.PanchayathID != "" {
		conditions = append(conditions, fmt.Sprintf("r.panchayath_id = $%d", len(args)+1))
		args = append(args, filter.PanchayathID)
	}
	if filter.ExpiringWithinDays != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		daysLeft := fmt.Sprintf("CEIL(EXTRACT(EPOCH FROM (%s - $%d::timestamptz)) / 86400)", effectiveExpirySQL, len(args)+1)
		args = append(args, now)
		conditions = append(conditions, "r.status = 'pending'")
		if *filter.ExpiringWithinDays <= 0 {
			conditions = append(conditions, daysLeft+" <= 0")
		} else {
			conditions = append(conditions, fmt.Sprintf("%s BETWEEN 0 AND $%d", daysLeft, len(args)+1))
			args = append(args, *filter.ExpiringWithinDays)
		}
	}
	if filter.ApprovedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("r.approved_date >= $%d", len(args)+1))
		args = append(args, *filter.ApprovedFrom)
	}
	if filter.ApprovedTo != nil {
		conditions = append(conditions, fmt.Sprintf("r.approved_date <= $%d", len(args)+1))
		args = append(args, *filter.ApprovedTo)
	}
	if filter.PaidOnly {
		conditions = append(conditions, "r.fee > 0")
	}
	return strings.Join(conditions, " AND "), args
}

func registrationOrder(filter models.RegistrationFilter) string {
	allowed := map[string]string{
		"created_at":    "r.created_at",
		"updated_at":    "r.updated_at",
		"full_name":     "r.full_name",
		"approved_date": "r.approved_date",
		"expiry_date":   effectiveExpirySQL,
	}
	sortBy, ok := allowed[filter.SortBy]
	if !ok {
		sortBy = "r.created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}
	return sortBy + " " + sortOrder
}

// List returns a page of registrations with the total match count.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	where, args := buildRegistrationWhere(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d", registrationDetailColumns, registrationJoins, where, registrationOrder(filter), pageSize, offset)
	var items []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", registrationJoins, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return items, total, nil
}

// ListAll returns every registration matching filter, unpaginated. Used by exports.
func (r *RegistrationRepository) ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	where, args := buildRegistrationWhere(filter)
	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s", registrationDetailColumns, registrationJoins, where, registrationOrder(filter))
	var items []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list all registrations: %w", err)
	}
	return items, nil
}

// ListPending returns pending registrations with their category policy for
// expiry classification.
func (r *RegistrationRepository) ListPending(ctx context.Context) ([]models.RegistrationDetail, error) {
	query := `SELECT ` + registrationDetailColumns + ` ` + registrationJoins + ` WHERE r.status = 'pending' ORDER BY r.created_at ASC`
	var items []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	return items, nil
}

// Update writes the admin-editable fields. Status and approval fields are
// owned by the lifecycle transitions and are not touched here.
func (r *RegistrationRepository) Update(ctx context.Context, reg *models.Registration) error {
	reg.UpdatedAt = time.Now().UTC()
	const query = `UPDATE registrations SET full_name = :full_name, mobile_number = :mobile_number, address = :address, ward = :ward, agent = :agent,
category_id = :category_id, preference_category_id = :preference_category_id, panchayath_id = :panchayath_id, fee = :fee, expiry_date = :expiry_date, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, reg)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a registration.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return expectAffected(res)
}

// Approve moves a pending registration to approved. The stored expiry date
// wins over the supplied one. It reports false when the row was no longer
// pending.
func (r *RegistrationRepository) Approve(ctx context.Context, params models.ApproveParams) (bool, error) {
	const query = `UPDATE registrations SET status = 'approved', approved_date = $2, approved_by = $3, expiry_date = COALESCE(expiry_date, $4), updated_at = $2
WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, params.ID, params.ApprovedAt, params.ApprovedBy, params.ExpiryDate)
	if err != nil {
		return false, fmt.Errorf("approve registration: %w", err)
	}
	return affectedOne(res)
}

// BulkApprove approves every id in one statement inside one transaction. When
// fewer rows than ids were pending the transaction is rolled back and the
// matched count returned with applied=false.
func (r *RegistrationRepository) BulkApprove(ctx context.Context, params models.BulkApproveParams) (affected int64, applied bool, err error) {
	ids := make([]string, 0, len(params.IDs))
	expiries := make([]string, 0, len(params.IDs))
	for _, id := range params.IDs {
		ids = append(ids, id)
		expiries = append(expiries, params.ExpiryDates[id].UTC().Format(time.RFC3339))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin bulk approve: %w", err)
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE registrations r SET status = 'approved', approved_date = $3, approved_by = $4, expiry_date = COALESCE(r.expiry_date, v.expiry), updated_at = $3
FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::timestamptz[]) AS expiry) v
WHERE r.id = v.id AND r.status = 'pending'`
	res, err := tx.ExecContext(ctx, query, pq.Array(ids), pq.Array(expiries), params.ApprovedAt, params.ApprovedBy)
	if err != nil {
		return 0, false, fmt.Errorf("bulk approve registrations: %w", err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("bulk approve rows affected: %w", err)
	}
	if affected != int64(len(ids)) {
		return affected, false, nil
	}
	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit bulk approve: %w", err)
	}
	applied = true
	return affected, true, nil
}

// Reject moves a pending registration to rejected.
func (r *RegistrationRepository) Reject(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE registrations SET status = 'rejected', updated_at = $2 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("reject registration: %w", err)
	}
	return affectedOne(res)
}

// Restore returns an approved or rejected registration to pending, clearing
// the approval fields and keeping expiry_date.
func (r *RegistrationRepository) Restore(ctx context.Context, id string, from models.RegistrationStatus, at time.Time) (bool, error) {
	const query = `UPDATE registrations SET status = 'pending', approved_date = NULL, approved_by = NULL, updated_at = $3 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, string(from), at)
	if err != nil {
		return false, fmt.Errorf("restore registration: %w", err)
	}
	return affectedOne(res)
}

// PaidSummary aggregates paid approved registrations in the window.
func (r *RegistrationRepository) PaidSummary(ctx context.Context, from, to time.Time) (*PaidSummary, error) {
	const query = `SELECT COUNT(*) AS total, COALESCE(SUM(r.fee), 0) AS fees, COUNT(DISTINCT r.category_id) AS categories, COUNT(DISTINCT r.panchayath_id) AS panchayaths
FROM registrations r WHERE r.status = 'approved' AND r.fee > 0 AND r.approved_date >= $1 AND r.approved_date <= $2`
	var summary PaidSummary
	if err := r.db.GetContext(ctx, &summary, query, from, to); err != nil {
		return nil, fmt.Errorf("paid registration summary: %w", err)
	}
	return &summary, nil
}

// PendingAmount sums the fees of pending registrations.
func (r *RegistrationRepository) PendingAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(fee), 0) FROM registrations WHERE status = 'pending'`); err != nil {
		return decimal.Zero, fmt.Errorf("pending registration amount: %w", err)
	}
	return total, nil
}

// PaidSummary is the aggregate row behind the reports summary.
type PaidSummary struct {
	Total       int             `db:"total"`
	Fees        decimal.Decimal `db:"fees"`
	Categories  int             `db:"categories"`
	Panchayaths int             `db:"panchayaths"`
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
