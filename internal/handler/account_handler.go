package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/middleware"
	"github.com/bankdata/bankcore/internal/models"
	"github.com/bankdata/bankcore/internal/utils"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(ctx context.Context, accountNumber string, accountType models.AccountType, ownerRef string, openingBalance decimal.Decimal) (*models.Account, error)
	UpdateAccountType(ctx context.Context, accountNumber string, newType models.AccountType) (*models.Account, error)
	DeleteAccount(ctx context.Context, accountNumber string) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetByNumber(ctx context.Context, accountNumber string) (*models.AccountView, error)
	ListAll(ctx context.Context) ([]models.AccountView, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	AccountNumber  string             `json:"accountNumber"`
	AccountType    models.AccountType `json:"accountType" validate:"required,oneof=1 2"`
	OwnerRef       string             `json:"ownerRef"`
	OpeningBalance decimal.Decimal    `json:"openingBalance"`
}

type UpdateAccountRequest struct {
	AccountType models.AccountType `json:"accountType" validate:"required,oneof=1 2"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	accountNumber := req.AccountNumber
	if accountNumber == "" {
		accountNumber = utils.GenerateAccountNumber()
	} else if !utils.ValidateAccountNumber(accountNumber) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account number format")
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), accountNumber, req.AccountType, req.OwnerRef, req.OpeningBalance)
	if err != nil {
		respondLedgerError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	views, err := h.queries.ListAll(c.Request.Context())
	if err != nil {
		respondLedgerError(c, err, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	view, err := h.queries.GetByNumber(c.Request.Context(), accountNumber)
	if err != nil {
		respondLedgerError(c, err, "Failed to get account")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.UpdateAccountType(c.Request.Context(), accountNumber, req.AccountType)
	if err != nil {
		respondLedgerError(c, err, "Failed to update account")
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	if err := h.commands.DeleteAccount(c.Request.Context(), accountNumber); err != nil {
		respondLedgerError(c, err, "Failed to delete account")
		return
	}

	c.Status(http.StatusNoContent)
}
