package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CashAccount is a ledger account tracked by the accounts tab.
type CashAccount struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// IsMain reports whether the account is the main cash account whose balance
// mirrors the verified fee total.
func (a *CashAccount) IsMain() bool {
	if a == nil {
		return false
	}
	name := strings.ToLower(a.Name)
	return strings.Contains(name, "main") || strings.Contains(name, "cash")
}

// CashTransaction is a movement on an account. Debits are stored negative.
type CashTransaction struct {
	ID              string          `db:"id" json:"id"`
	AccountID       string          `db:"account_id" json:"account_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Type            string          `db:"type" json:"type"`
	Description     *string         `db:"description" json:"description,omitempty"`
	ReferenceNumber *string         `db:"reference_number" json:"reference_number,omitempty"`
	CreatedBy       *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	AccountName     *string         `db:"account_name" json:"account_name,omitempty"`
}

// SignedAmount normalises an amount for a transaction type: debit and
// withdrawal types are negative, everything else positive.
func SignedAmount(txType string, amount decimal.Decimal) decimal.Decimal {
	t := strings.ToLower(txType)
	if strings.Contains(t, "debit") || strings.Contains(t, "withdrawal") {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// CashTransfer records a movement between two accounts.
type CashTransfer struct {
	ID              string          `db:"id" json:"id"`
	FromAccountID   string          `db:"from_account_id" json:"from_account_id"`
	ToAccountID     string          `db:"to_account_id" json:"to_account_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Description     *string         `db:"description" json:"description,omitempty"`
	ReferenceNumber *string         `db:"reference_number" json:"reference_number,omitempty"`
	CreatedBy       *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Expense records money spent from an account.
type Expense struct {
	ID              string          `db:"id" json:"id"`
	AccountID       string          `db:"account_id" json:"account_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Category        string          `db:"category" json:"category"`
	Description     *string         `db:"description" json:"description,omitempty"`
	ReferenceNumber *string         `db:"reference_number" json:"reference_number,omitempty"`
	CreatedBy       *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
