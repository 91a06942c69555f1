package dto

import "github.com/shopspring/decimal"

// CashAccountRequest creates or edits an account.
type CashAccountRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	IsActive *bool            `json:"is_active,omitempty"`
}

// CashTransactionRequest records a movement on an account.
type CashTransactionRequest struct {
	AccountID       string          `json:"account_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type" validate:"required,max=50"`
	Description     *string         `json:"description,omitempty"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
}

// CashTransferRequest moves money between two accounts.
type CashTransferRequest struct {
	FromAccountID   string          `json:"from_account_id" validate:"required,uuid"`
	ToAccountID     string          `json:"to_account_id" validate:"required,uuid,nefield=FromAccountID"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description,omitempty"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
}

// ExpenseRequest debits an account for spending.
type ExpenseRequest struct {
	AccountID       string          `json:"account_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"`
	Category        string          `json:"category" validate:"required,max=100"`
	Description     *string         `json:"description,omitempty"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
}
