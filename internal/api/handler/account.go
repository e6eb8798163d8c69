package handler

import (
	"net/http"
	"time"

	"github.com/ayo6706/wheelbet/internal/api/problem"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

type AccountResponse struct {
	ID          uuid.UUID       `json:"id"`
	Balance     decimal.Decimal `json:"balance"`
	BalanceKobo int64           `json:"balance_kobo"`
	Currency    string          `json:"currency"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func accountResponse(a models.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Balance:     naira(a.Balance),
		BalanceKobo: a.Balance,
		Currency:    "NGN",
		UpdatedAt:   a.UpdatedAt,
	}
}

// CreateAccount handles POST /v1/accounts (admin).
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.CreateAccount(r.Context())
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, accountResponse(acc))
}

// GetAccount handles GET /v1/account.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	acc, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, accountResponse(acc))
}

type TransactionResponse struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Status     string          `json:"status"`
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	AmountKobo int64           `json:"amount_kobo"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ListTransactions handles GET /v1/transactions.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	page, pageSize := queryInt(r, "page"), queryInt(r, "page_size")
	txs, err := h.svc.History(r.Context(), accountID, page, pageSize)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionResponse{
			ID:         tx.ID,
			Kind:       tx.Kind,
			Status:     tx.Status,
			Reference:  tx.Reference,
			Amount:     naira(tx.Amount),
			AmountKobo: tx.Amount,
			CreatedAt:  tx.CreatedAt,
			UpdatedAt:  tx.UpdatedAt,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"page":         max(page, 1),
	})
}
