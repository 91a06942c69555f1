package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

type cashService interface {
	ListAccounts(ctx context.Context) ([]models.CashAccount, error)
	CreateAccount(ctx context.Context, req dto.CashAccountRequest) (*models.CashAccount, error)
	UpdateAccount(ctx context.Context, id string, req dto.CashAccountRequest) (*models.CashAccount, error)
	ListTransactions(ctx context.Context) ([]models.CashTransaction, error)
	CreateTransaction(ctx context.Context, req dto.CashTransactionRequest, actor string) (*models.CashTransaction, error)
	UpdateTransaction(ctx context.Context, id string, req dto.CashTransactionRequest) (*models.CashTransaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	Transfer(ctx context.Context, req dto.CashTransferRequest, actor string) (*models.CashTransfer, error)
	RecordExpense(ctx context.Context, req dto.ExpenseRequest, actor string) (*models.Expense, error)
	SyncMainAccount(ctx context.Context) error
}

// CashHandler exposes cash account bookkeeping.
type CashHandler struct {
	cash cashService
}

// NewCashHandler constructs CashHandler.
func NewCashHandler(cash cashService) *CashHandler {
	return &CashHandler{cash: cash}
}

// ListAccounts godoc
// @Summary List active cash accounts
// @Tags Cash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/cash/accounts [get]
func (h *CashHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.cash.ListAccounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, nil)
}

// CreateAccount godoc
// @Summary Create cash account
// @Tags Cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CashAccountRequest true "Account"
// @Success 201 {object} response.Envelope
// @Router /admin/cash/accounts [post]
func (h *CashHandler) CreateAccount(c *gin.Context) {
	var req dto.CashAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	account, err := h.cash.CreateAccount(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// UpdateAccount godoc
// @Summary Update cash account
// @Tags Cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param payload body dto.CashAccountRequest true "Account"
// @Success 200 {object} response.Envelope
// @Router /admin/cash/accounts/{id} [put]
func (h *CashHandler) UpdateAccount(c *gin.Context) {
	var req dto.CashAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	account, err := h.cash.UpdateAccount(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// ListTransactions godoc
// @Summary Most recent cash transactions
// @Tags Cash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/cash/transactions [get]
func (h *CashHandler) ListTransactions(c *gin.Context) {
	items, err := h.cash.ListTransactions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateTransaction godoc
// @Summary Record a cash transaction
// @Tags Cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CashTransactionRequest true "Transaction"
// @Success 201 {object} response.Envelope
// @Router /admin/cash/transactions [post]
func (h *CashHandler) CreateTransaction(c *gin.Context) {
	var req dto.CashTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tx, err := h.cash.CreateTransaction(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tx)
}

// UpdateTransaction godoc
// @Summary Edit a cash transaction
// @Tags Cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param payload body dto.CashTransactionRequest true "Transaction"
// @Success 200 {object} response.Envelope
// @Router /admin/cash/transactions/{id} [put]
func (h *CashHandler) UpdateTransaction(c *gin.Context) {
	var req dto.CashTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	tx, err := h.cash.UpdateTransaction(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tx, nil)
}

// DeleteTransaction godoc
// @Summary Delete a cash transaction
// @Tags Cash
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 204
// @Router /admin/cash/transactions/{id} [delete]
func (h *CashHandler) DeleteTransaction(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.cash.DeleteTransaction(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transfer godoc
// @Summary Move money between accounts
// @Tags Cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CashTransferRequest true "Transfer"
// @Success 201 {object} response.Envelope
// @Router /admin/cash/transfers [post]
func (h *CashHandler) Transfer(c *gin.Context) {
	var req dto.CashTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	transfer, err := h.cash.Transfer(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transfer)
}

// RecordExpense godoc
// @Summary Record an expense
// @Tags Cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ExpenseRequest true "Expense"
// @Success 201 {object} response.Envelope
// @Router /admin/cash/expenses [post]
func (h *CashHandler) RecordExpense(c *gin.Context) {
	var req dto.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	expense, err := h.cash.RecordExpense(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// Sync godoc
// @Summary Set the main account balance to the verified amount
// @Tags Cash
// @Security BearerAuth
// @Success 204
// @Router /admin/cash/sync [post]
func (h *CashHandler) Sync(c *gin.Context) {
	if err := h.cash.SyncMainAccount(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
