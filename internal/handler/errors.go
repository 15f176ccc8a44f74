package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bankdata/bankcore/internal/ledger"
	"github.com/bankdata/bankcore/internal/middleware"
	"github.com/bankdata/bankcore/internal/store"
)

// respondLedgerError maps the typed ledger and store errors to status
// codes. Anything unrecognised is a 500 with the endpoint's fallback
// message.
func respondLedgerError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Amount must be greater than zero")
	case errors.Is(err, ledger.ErrInvalidTransfer):
		middleware.RespondWithError(c, http.StatusBadRequest, "Transfer accounts must differ")
	case errors.Is(err, store.ErrAccountNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
	case errors.Is(err, store.ErrDuplicateAccountNumber):
		middleware.RespondWithError(c, http.StatusConflict, "Account number already exists")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Insufficient funds")
	case errors.Is(err, store.ErrConcurrencyConflict):
		middleware.RespondWithError(c, http.StatusConflict, "Operation conflicted with a concurrent update, please retry")
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}
