package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/internal/repository"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

const recentTransactionsLimit = 50

type cashStore interface {
	ListAccounts(ctx context.Context, activeOnly bool) ([]models.CashAccount, error)
	FindAccount(ctx context.Context, id string) (*models.CashAccount, error)
	CreateAccount(ctx context.Context, a *models.CashAccount) error
	UpdateAccount(ctx context.Context, a *models.CashAccount) error
	SetBalance(ctx context.Context, id string, balance decimal.Decimal) error
	ListTransactions(ctx context.Context, limit int) ([]models.CashTransaction, error)
	FindTransaction(ctx context.Context, id string) (*models.CashTransaction, error)
	CreateTransaction(ctx context.Context, tr *models.CashTransaction) error
	UpdateTransaction(ctx context.Context, previous, next *models.CashTransaction) error
	DeleteTransaction(ctx context.Context, tr *models.CashTransaction) error
	Transfer(ctx context.Context, t *models.CashTransfer) error
	RecordExpense(ctx context.Context, e *models.Expense) error
}

// verifiedTotaler reports the sum of verified registration fees.
type verifiedTotaler interface {
	VerifiedAmount(ctx context.Context) (decimal.Decimal, error)
}

// CashService runs the accounts tab: balances, movements, transfers and
// expenses.
type CashService struct {
	repo      cashStore
	verified  verifiedTotaler
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCashService constructs the service.
func NewCashService(repo cashStore, verified verifiedTotaler, validate *validator.Validate, logger *zap.Logger) *CashService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CashService{repo: repo, verified: verified, validator: validate, logger: logger}
}

// ListAccounts returns active accounts.
func (s *CashService) ListAccounts(ctx context.Context) ([]models.CashAccount, error) {
	rows, err := s.repo.ListAccounts(ctx, true)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list cash accounts")
	}
	return rows, nil
}

// CreateAccount opens an account with an optional starting balance.
func (s *CashService) CreateAccount(ctx context.Context, req dto.CashAccountRequest) (*models.CashAccount, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(&req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	account := &models.CashAccount{Name: req.Name, Balance: decimal.Zero, IsActive: true}
	if req.Balance != nil {
		if req.Balance.IsNegative() {
			return nil, appErrors.Validation("opening balance cannot be negative")
		}
		account.Balance = *req.Balance
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, appErrors.Store(err, "failed to create cash account")
	}
	return account, nil
}

// UpdateAccount renames or toggles an account. The balance is left alone.
func (s *CashService) UpdateAccount(ctx context.Context, id string, req dto.CashAccountRequest) (*models.CashAccount, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(&req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	account, err := s.account(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Name = req.Name
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, s.cashError(err, "failed to update cash account")
	}
	return account, nil
}

// ListTransactions returns the most recent movements.
func (s *CashService) ListTransactions(ctx context.Context) ([]models.CashTransaction, error) {
	rows, err := s.repo.ListTransactions(ctx, recentTransactionsLimit)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list cash transactions")
	}
	return rows, nil
}

// CreateTransaction records a movement and adjusts the account balance.
func (s *CashService) CreateTransaction(ctx context.Context, req dto.CashTransactionRequest, actor string) (*models.CashTransaction, error) {
	if err := s.validateTransaction(&req); err != nil {
		return nil, err
	}
	if _, err := s.account(ctx, req.AccountID); err != nil {
		return nil, err
	}
	tr := &models.CashTransaction{
		AccountID:       req.AccountID,
		Amount:          models.SignedAmount(req.Type, req.Amount),
		Type:            req.Type,
		Description:     trimmedOrNil(req.Description),
		ReferenceNumber: trimmedOrNil(req.ReferenceNumber),
		CreatedBy:       trimmedOrNil(&actor),
	}
	if err := s.repo.CreateTransaction(ctx, tr); err != nil {
		return nil, s.cashError(err, "failed to create cash transaction")
	}
	return tr, nil
}

// UpdateTransaction rewrites a movement, reversing its old effect first.
func (s *CashService) UpdateTransaction(ctx context.Context, id string, req dto.CashTransactionRequest) (*models.CashTransaction, error) {
	if err := s.validateTransaction(&req); err != nil {
		return nil, err
	}
	previous, err := s.transaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AccountID != previous.AccountID {
		if _, err := s.account(ctx, req.AccountID); err != nil {
			return nil, err
		}
	}
	next := *previous
	next.AccountID = req.AccountID
	next.Amount = models.SignedAmount(req.Type, req.Amount)
	next.Type = req.Type
	next.Description = trimmedOrNil(req.Description)
	next.ReferenceNumber = trimmedOrNil(req.ReferenceNumber)
	next.AccountName = nil
	if err := s.repo.UpdateTransaction(ctx, previous, &next); err != nil {
		return nil, s.cashError(err, "failed to update cash transaction")
	}
	return &next, nil
}

// DeleteTransaction removes a movement and reverses it on the balance.
func (s *CashService) DeleteTransaction(ctx context.Context, id string) error {
	tr, err := s.transaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTransaction(ctx, tr); err != nil {
		return s.cashError(err, "failed to delete cash transaction")
	}
	return nil
}

// Transfer moves money between two accounts.
func (s *CashService) Transfer(ctx context.Context, req dto.CashTransferRequest, actor string) (*models.CashTransfer, error) {
	if err := s.validator.Struct(&req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Validation("amount must be positive")
	}
	for _, id := range []string{req.FromAccountID, req.ToAccountID} {
		if _, err := s.account(ctx, id); err != nil {
			return nil, err
		}
	}
	t := &models.CashTransfer{
		FromAccountID:   req.FromAccountID,
		ToAccountID:     req.ToAccountID,
		Amount:          req.Amount,
		Description:     trimmedOrNil(req.Description),
		ReferenceNumber: trimmedOrNil(req.ReferenceNumber),
		CreatedBy:       trimmedOrNil(&actor),
	}
	if err := s.repo.Transfer(ctx, t); err != nil {
		return nil, s.cashError(err, "failed to transfer between accounts")
	}
	return t, nil
}

// RecordExpense debits an account for spending.
func (s *CashService) RecordExpense(ctx context.Context, req dto.ExpenseRequest, actor string) (*models.Expense, error) {
	req.Category = strings.TrimSpace(req.Category)
	if err := s.validator.Struct(&req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Validation("amount must be positive")
	}
	if _, err := s.account(ctx, req.AccountID); err != nil {
		return nil, err
	}
	e := &models.Expense{
		AccountID:       req.AccountID,
		Amount:          req.Amount,
		Category:        req.Category,
		Description:     trimmedOrNil(req.Description),
		ReferenceNumber: trimmedOrNil(req.ReferenceNumber),
		CreatedBy:       trimmedOrNil(&actor),
	}
	if err := s.repo.RecordExpense(ctx, e); err != nil {
		return nil, s.cashError(err, "failed to record expense")
	}
	return e, nil
}

// SyncMainAccount sets the main account balance to the verified fee total.
// It is a no-op when no main account exists.
func (s *CashService) SyncMainAccount(ctx context.Context) error {
	if s.verified == nil {
		return nil
	}
	accounts, err := s.repo.ListAccounts(ctx, true)
	if err != nil {
		return appErrors.Store(err, "failed to list cash accounts")
	}
	var main *models.CashAccount
	for i := range accounts {
		if accounts[i].IsMain() {
			main = &accounts[i]
			break
		}
	}
	if main == nil {
		s.logger.Debug("no main cash account to sync")
		return nil
	}
	total, err := s.verified.VerifiedAmount(ctx)
	if err != nil {
		return appErrors.Store(err, "failed to compute verified amount")
	}
	if main.Balance.Equal(total) {
		return nil
	}
	if err := s.repo.SetBalance(ctx, main.ID, total); err != nil {
		return s.cashError(err, "failed to sync main cash account")
	}
	s.logger.Info("main cash account synced",
		zap.String("account_id", main.ID),
		zap.String("previous", main.Balance.StringFixed(2)),
		zap.String("balance", total.StringFixed(2)),
	)
	return nil
}

func (s *CashService) validateTransaction(req *dto.CashTransactionRequest) error {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transaction payload")
	}
	if req.Amount.IsZero() {
		return appErrors.Validation("amount must not be zero")
	}
	return nil
}

func (s *CashService) account(ctx context.Context, id string) (*models.CashAccount, error) {
	a, err := s.repo.FindAccount(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cash account not found")
		}
		return nil, appErrors.Store(err, "failed to load cash account")
	}
	return a, nil
}

func (s *CashService) transaction(ctx context.Context, id string) (*models.CashTransaction, error) {
	tr, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cash transaction not found")
		}
		return nil, appErrors.Store(err, "failed to load cash transaction")
	}
	return tr, nil
}

func (s *CashService) cashError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return appErrors.Validation("insufficient balance")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "cash account not found")
	default:
		return appErrors.Store(err, message)
	}
}
