package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bankdata/bankcore/internal/ledger"
	"github.com/bankdata/bankcore/internal/models"
	"github.com/bankdata/bankcore/internal/store"
)

// ---- mock implementations ----

type mockTransactionCommander struct {
	depositFn  func(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error)
	withdrawFn func(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error)
	transferFn func(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal, description string) (*models.Transaction, *models.Transaction, error)
}

func (m *mockTransactionCommander) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if m.depositFn != nil {
		return m.depositFn(ctx, accountNumber, amount, description)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockTransactionCommander) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, accountNumber, amount, description)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockTransactionCommander) Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal, description string) (*models.Transaction, *models.Transaction, error) {
	if m.transferFn != nil {
		return m.transferFn(ctx, fromAccount, toAccount, amount, description)
	}
	return nil, nil, fmt.Errorf("not configured")
}

type mockTransactionQuerier struct {
	listFn func(ctx context.Context, accountNumber string, take int) ([]models.Transaction, error)
}

func (m *mockTransactionQuerier) GetTransactions(ctx context.Context, accountNumber string, take int) ([]models.Transaction, error) {
	if m.listFn != nil {
		return m.listFn(ctx, accountNumber, take)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTransactionTestRouter(cmds TransactionCommander, qrys TransactionQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTransactionHandler(cmds, qrys)
	v1 := r.Group("/v1")
	v1.POST("/accounts/:accountNumber/deposit", h.Deposit)
	v1.POST("/accounts/:accountNumber/withdraw", h.Withdraw)
	v1.GET("/accounts/:accountNumber/transactions", h.ListTransactions)
	v1.POST("/transfers", h.Transfer)
	return r
}

// ---- test data ----

var aTestTransaction = &models.Transaction{
	ID: "b7f9c2d4-0000-0000-0000-000000000001", AccountNumber: "01234567",
	Sequence: 1, Kind: models.KindDeposit,
	Amount: decimal.NewFromInt(100), BalanceAfter: decimal.NewFromInt(100),
	CreatedAt: time.Now(),
}

func anAmountBody(amount int64) map[string]interface{} {
	return map[string]interface{}{"amount": amount, "description": "test"}
}

// ---- tests ----

func TestDeposit(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		depositFn      func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: anAmountBody(100),
			depositFn: func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error) {
				return aTestTransaction, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing amount",
			body:           map[string]interface{}{"description": "no amount"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - non-positive amount",
			body: anAmountBody(-5),
			depositFn: func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error) {
				return nil, ledger.ErrInvalidAmount
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found",
			body: anAmountBody(100),
			depositFn: func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error) {
				return nil, store.ErrAccountNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "conflict - retry budget exhausted",
			body: anAmountBody(100),
			depositFn: func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error) {
				return nil, store.ErrConcurrencyConflict
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockTransactionCommander{depositFn: tt.depositFn}
			router := newTransactionTestRouter(cmds, &mockTransactionQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/accounts/01234567/deposit", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestWithdraw(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		withdrawFn     func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: anAmountBody(40),
			withdrawFn: func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error) {
				return aTestTransaction, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "unprocessable - insufficient funds",
			body: anAmountBody(150),
			withdrawFn: func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error) {
				return nil, ledger.ErrInsufficientFunds
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockTransactionCommander{withdrawFn: tt.withdrawFn}
			router := newTransactionTestRouter(cmds, &mockTransactionQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/accounts/01234567/withdraw", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestTransfer(t *testing.T) {
	validBody := map[string]interface{}{
		"fromAccount": "01234567", "toAccount": "01765432", "amount": 60,
	}
	tests := []struct {
		name           string
		body           interface{}
		transferFn     func(context.Context, string, string, decimal.Decimal, string) (*models.Transaction, *models.Transaction, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: validBody,
			transferFn: func(context.Context, string, string, decimal.Decimal, string) (*models.Transaction, *models.Transaction, error) {
				return aTestTransaction, aTestTransaction, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing destination",
			body:           map[string]interface{}{"fromAccount": "01234567", "amount": 60},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - same account both legs",
			body: map[string]interface{}{"fromAccount": "01234567", "toAccount": "01234567", "amount": 60},
			transferFn: func(context.Context, string, string, decimal.Decimal, string) (*models.Transaction, *models.Transaction, error) {
				return nil, nil, ledger.ErrInvalidTransfer
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unprocessable - insufficient funds",
			body: validBody,
			transferFn: func(context.Context, string, string, decimal.Decimal, string) (*models.Transaction, *models.Transaction, error) {
				return nil, nil, ledger.ErrInsufficientFunds
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockTransactionCommander{transferFn: tt.transferFn}
			router := newTransactionTestRouter(cmds, &mockTransactionQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/transfers", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		listFn         func(context.Context, string, int) ([]models.Transaction, error)
		expectedStatus int
		expectedTake   int
	}{
		{
			name: "success - default top",
			url:  "/v1/accounts/01234567/transactions",
			listFn: func(_ context.Context, _ string, take int) ([]models.Transaction, error) {
				return []models.Transaction{*aTestTransaction}, nil
			},
			expectedStatus: http.StatusOK,
			expectedTake:   defaultTop,
		},
		{
			name: "success - explicit top",
			url:  "/v1/accounts/01234567/transactions?top=5",
			listFn: func(_ context.Context, _ string, take int) ([]models.Transaction, error) {
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			expectedTake:   5,
		},
		{
			name:           "bad request - non-numeric top",
			url:            "/v1/accounts/01234567/transactions?top=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - non-positive top",
			url:            "/v1/accounts/01234567/transactions?top=0",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found",
			url:  "/v1/accounts/01234567/transactions",
			listFn: func(context.Context, string, int) ([]models.Transaction, error) {
				return nil, store.ErrAccountNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTake int
			qrys := &mockTransactionQuerier{}
			if tt.listFn != nil {
				listFn := tt.listFn
				qrys.listFn = func(ctx context.Context, number string, take int) ([]models.Transaction, error) {
					gotTake = take
					return listFn(ctx, number, take)
				}
			}
			router := newTransactionTestRouter(&mockTransactionCommander{}, qrys)
			w := doRequest(router, http.MethodGet, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedTake != 0 && gotTake != tt.expectedTake {
				t.Errorf("take = %d, want %d", gotTake, tt.expectedTake)
			}
		})
	}
}

func TestDepositResponseBody(t *testing.T) {
	cmds := &mockTransactionCommander{
		depositFn: func(context.Context, string, decimal.Decimal, string) (*models.Transaction, error) {
			return aTestTransaction, nil
		},
	}
	router := newTransactionTestRouter(cmds, &mockTransactionQuerier{})

	w := doRequest(router, http.MethodPost, "/v1/accounts/01234567/deposit", anAmountBody(100))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var got models.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.ID != aTestTransaction.ID || !got.BalanceAfter.Equal(aTestTransaction.BalanceAfter) {
		t.Errorf("response = %+v, want %+v", got, aTestTransaction)
	}
}
