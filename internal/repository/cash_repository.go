package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

// ErrInsufficientBalance is returned when a debit would take an account below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

const cashTransactionColumns = `t.id, t.account_id, t.amount, t.type, t.description, t.reference_number, t.created_by, t.created_at, t.updated_at, a.name AS account_name`

// CashRepository persists accounts and keeps balances in step with their
// transactions.
type CashRepository struct {
	db *sqlx.DB
}

// NewCashRepository creates the repository.
func NewCashRepository(db *sqlx.DB) *CashRepository {
	return &CashRepository{db: db}
}

// ListAccounts returns accounts ordered by name.
func (r *CashRepository) ListAccounts(ctx context.Context, activeOnly bool) ([]models.CashAccount, error) {
	query := `SELECT id, name, balance, is_active, created_at, updated_at FROM cash_accounts`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	var items []models.CashAccount
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list cash accounts: %w", err)
	}
	return items, nil
}

// FindAccount returns an account.
func (r *CashRepository) FindAccount(ctx context.Context, id string) (*models.CashAccount, error) {
	const query = `SELECT id, name, balance, is_active, created_at, updated_at FROM cash_accounts WHERE id = $1`
	var a models.CashAccount
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find cash account: %w", err)
	}
	return &a, nil
}

// CreateAccount inserts an account.
func (r *CashRepository) CreateAccount(ctx context.Context, a *models.CashAccount) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	const query = `INSERT INTO cash_accounts (id, name, balance, is_active, created_at, updated_at) VALUES (:id, :name, :balance, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create cash account: %w", err)
	}
	return nil
}

// UpdateAccount writes name and active flag. Balances only move through
// transactions or SetBalance.
func (r *CashRepository) UpdateAccount(ctx context.Context, a *models.CashAccount) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `UPDATE cash_accounts SET name = :name, is_active = :is_active, updated_at = :updated_at WHERE id = :id`, a)
	if err != nil {
		return fmt.Errorf("update cash account: %w", err)
	}
	return expectAffected(res)
}

// SetBalance overwrites an account balance.
func (r *CashRepository) SetBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE cash_accounts SET balance = $2, updated_at = $3 WHERE id = $1`, id, balance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set cash account balance: %w", err)
	}
	return expectAffected(res)
}

// ListTransactions returns the newest transactions across accounts.
func (r *CashRepository) ListTransactions(ctx context.Context, limit int) ([]models.CashTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM cash_transactions t JOIN cash_accounts a ON a.id = t.account_id ORDER BY t.created_at DESC LIMIT %d`, cashTransactionColumns, limit)
	var items []models.CashTransaction
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list cash transactions: %w", err)
	}
	return items, nil
}

// FindTransaction returns a transaction.
func (r *CashRepository) FindTransaction(ctx context.Context, id string) (*models.CashTransaction, error) {
	query := `SELECT ` + cashTransactionColumns + ` FROM cash_transactions t JOIN cash_accounts a ON a.id = t.account_id WHERE t.id = $1`
	var tr models.CashTransaction
	if err := r.db.GetContext(ctx, &tr, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find cash transaction: %w", err)
	}
	return &tr, nil
}

// CreateTransaction records a movement and applies it to the account balance.
func (r *CashRepository) CreateTransaction(ctx context.Context, tr *models.CashTransaction) error {
	return r.withTx(ctx, "create cash transaction", func(tx *sqlx.Tx) error {
		return insertCashTransaction(ctx, tx, tr)
	})
}

// UpdateTransaction reverses the previous amount and applies the new one.
func (r *CashRepository) UpdateTransaction(ctx context.Context, previous, next *models.CashTransaction) error {
	return r.withTx(ctx, "update cash transaction", func(tx *sqlx.Tx) error {
		if err := adjustBalance(ctx, tx, previous.AccountID, previous.Amount.Neg()); err != nil {
			return err
		}
		next.UpdatedAt = time.Now().UTC()
		const query = `UPDATE cash_transactions SET account_id = :account_id, amount = :amount, type = :type, description = :description, reference_number = :reference_number, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, next)
		if err != nil {
			return fmt.Errorf("update cash transaction: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		return adjustBalance(ctx, tx, next.AccountID, next.Amount)
	})
}

// DeleteTransaction removes a transaction and reverses its effect.
func (r *CashRepository) DeleteTransaction(ctx context.Context, tr *models.CashTransaction) error {
	return r.withTx(ctx, "delete cash transaction", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM cash_transactions WHERE id = $1`, tr.ID)
		if err != nil {
			return fmt.Errorf("delete cash transaction: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		return adjustBalance(ctx, tx, tr.AccountID, tr.Amount.Neg())
	})
}

// Transfer moves money between accounts, recording the transfer and one
// transaction on each side.
func (r *CashRepository) Transfer(ctx context.Context, t *models.CashTransfer) error {
	return r.withTx(ctx, "cash transfer", func(tx *sqlx.Tx) error {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.CreatedAt = time.Now().UTC()
		const query = `INSERT INTO cash_transfers (id, from_account_id, to_account_id, amount, description, reference_number, created_by, created_at)
VALUES (:id, :from_account_id, :to_account_id, :amount, :description, :reference_number, :created_by, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
			return fmt.Errorf("insert cash transfer: %w", err)
		}
		out := &models.CashTransaction{AccountID: t.FromAccountID, Amount: t.Amount.Abs().Neg(), Type: "transfer_out", Description: t.Description, ReferenceNumber: t.ReferenceNumber, CreatedBy: t.CreatedBy}
		if err := insertCashTransaction(ctx, tx, out); err != nil {
			return err
		}
		in := &models.CashTransaction{AccountID: t.ToAccountID, Amount: t.Amount.Abs(), Type: "transfer_in", Description: t.Description, ReferenceNumber: t.ReferenceNumber, CreatedBy: t.CreatedBy}
		return insertCashTransaction(ctx, tx, in)
	})
}

// RecordExpense debits an account and stores the expense.
func (r *CashRepository) RecordExpense(ctx context.Context, e *models.Expense) error {
	return r.withTx(ctx, "record expense", func(tx *sqlx.Tx) error {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.CreatedAt = time.Now().UTC()
		const query = `INSERT INTO expenses (id, account_id, amount, category, description, reference_number, created_by, created_at)
VALUES (:id, :account_id, :amount, :category, :description, :reference_number, :created_by, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		debit := &models.CashTransaction{AccountID: e.AccountID, Amount: e.Amount.Abs().Neg(), Type: "expense", Description: e.Description, ReferenceNumber: e.ReferenceNumber, CreatedBy: e.CreatedBy}
		return insertCashTransaction(ctx, tx, debit)
	})
}

func (r *CashRepository) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

func insertCashTransaction(ctx context.Context, tx *sqlx.Tx, tr *models.CashTransaction) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tr.CreatedAt = now
	tr.UpdatedAt = now
	const query = `INSERT INTO cash_transactions (id, account_id, amount, type, description, reference_number, created_by, created_at, updated_at)
VALUES (:id, :account_id, :amount, :type, :description, :reference_number, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, tr); err != nil {
		return fmt.Errorf("insert cash transaction: %w", err)
	}
	return adjustBalance(ctx, tx, tr.AccountID, tr.Amount)
}

// adjustBalance adds delta to the balance; negative deltas must not overdraw.
func adjustBalance(ctx context.Context, tx *sqlx.Tx, accountID string, delta decimal.Decimal) error {
	query := `UPDATE cash_accounts SET balance = balance + $2, updated_at = $3 WHERE id = $1`
	if delta.IsNegative() {
		query += ` AND balance + $2 >= 0`
	}
	res, err := tx.ExecContext(ctx, query, accountID, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adjust cash balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust cash balance: %w", err)
	}
	if n == 0 {
		if delta.IsNegative() {
			return ErrInsufficientBalance
		}
		return sql.ErrNoRows
	}
	return nil
}
