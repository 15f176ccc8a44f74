package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/middleware"
	"github.com/bankdata/bankcore/internal/models"
)

// defaultTop bounds transaction listings when no top parameter is given.
const defaultTop = 50

// TransactionCommander defines the balance-mutating operations used by
// TransactionHandler.
type TransactionCommander interface {
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error)
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error)
	Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal, description string) (*models.Transaction, *models.Transaction, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	GetTransactions(ctx context.Context, accountNumber string, take int) ([]models.Transaction, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

// Amount is a pointer so a request that omits it fails required
// validation instead of sliding through as a zero decimal.
type AmountRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description string           `json:"description"`
}

type TransferRequest struct {
	FromAccount string           `json:"fromAccount" validate:"required"`
	ToAccount   string           `json:"toAccount" validate:"required"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description string           `json:"description"`
}

type TransferResponse struct {
	Debit  *models.Transaction `json:"debit"`
	Credit *models.Transaction `json:"credit"`
}

type ListTransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) Deposit(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	txn, err := h.commands.Deposit(c.Request.Context(), accountNumber, *req.Amount, req.Description)
	if err != nil {
		respondLedgerError(c, err, "Failed to deposit")
		return
	}

	c.JSON(http.StatusCreated, txn)
}

func (h *TransactionHandler) Withdraw(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	txn, err := h.commands.Withdraw(c.Request.Context(), accountNumber, *req.Amount, req.Description)
	if err != nil {
		respondLedgerError(c, err, "Failed to withdraw")
		return
	}

	c.JSON(http.StatusCreated, txn)
}

func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	debit, credit, err := h.commands.Transfer(c.Request.Context(), req.FromAccount, req.ToAccount, *req.Amount, req.Description)
	if err != nil {
		respondLedgerError(c, err, "Failed to transfer")
		return
	}

	c.JSON(http.StatusCreated, TransferResponse{Debit: debit, Credit: credit})
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	top := defaultTop
	if raw := c.Query("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid top parameter")
			return
		}
		top = parsed
	}

	txns, err := h.queries.GetTransactions(c.Request.Context(), accountNumber, top)
	if err != nil {
		respondLedgerError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: txns})
}
