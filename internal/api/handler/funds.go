package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/wheelbet/internal/api/problem"
	"github.com/ayo6706/wheelbet/internal/gateway"
	"github.com/ayo6706/wheelbet/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type FundsHandler struct {
	svc *service.FundsService
}

func NewFundsHandler(svc *service.FundsService) *FundsHandler {
	return &FundsHandler{svc: svc}
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Email  string          `json:"email" validate:"omitempty,email"`
	Name   string          `json:"name" validate:"omitempty,max=120"`
}

type DepositResponse struct {
	Reference   string          `json:"reference"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	AmountKobo  int64           `json:"amount_kobo"`
	Message     string          `json:"message,omitempty"`
}

// InitiateDeposit handles POST /v1/deposits.
func (h *FundsHandler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := parseNaira(w, r, req.Amount)
	if !ok {
		return
	}

	payer := gateway.Payer{Email: req.Email, Name: req.Name}
	if payer.Email == "" {
		payer.Email = accountID.String() + "@accounts.wheelbet.ng"
	}
	init, err := h.svc.InitiateDeposit(r.Context(), accountID, amount, payer)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, DepositResponse{
		Reference:   init.Reference,
		CheckoutURL: init.CheckoutURL,
		Status:      "pending",
		Amount:      naira(init.Amount),
		AmountKobo:  init.Amount,
	})
}

// ConfirmDeposit handles GET /v1/deposits/{reference}. Calling it again
// after the deposit settled returns the same outcome.
func (h *FundsHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if reference == "" {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-reference", "reference is required")
		return
	}
	out, err := h.svc.ConfirmDeposit(r.Context(), &accountID, reference)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, DepositResponse{
		Reference:  out.Reference,
		Status:     out.Status,
		Amount:     naira(out.Amount),
		AmountKobo: out.Amount,
		Message:    out.Message,
	})
}

type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	DestinationID string          `json:"destination_id" validate:"required,uuid"`
}

type WithdrawalResponse struct {
	Reference  string          `json:"reference"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	AmountKobo int64           `json:"amount_kobo"`
	Message    string          `json:"message"`
}

// InitiateWithdrawal handles POST /v1/withdrawals. A declined transfer is a
// 200 with status failed and the funds back on the balance.
func (h *FundsHandler) InitiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := parseNaira(w, r, req.Amount)
	if !ok {
		return
	}
	destinationID, ok := pathUUID(w, r, req.DestinationID, "destination_id")
	if !ok {
		return
	}

	out, err := h.svc.InitiateWithdrawal(r.Context(), accountID, amount, destinationID)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, WithdrawalResponse{
		Reference:  out.Reference,
		Status:     out.Status,
		Amount:     naira(out.Amount),
		AmountKobo: out.Amount,
		Message:    out.Message,
	})
}
