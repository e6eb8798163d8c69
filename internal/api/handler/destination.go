package handler

import (
	"net/http"

	"github.com/ayo6706/wheelbet/internal/api/problem"
	"github.com/ayo6706/wheelbet/internal/service"
	"github.com/go-chi/chi/v5"
)

type DestinationHandler struct {
	svc *service.DestinationService
}

func NewDestinationHandler(svc *service.DestinationService) *DestinationHandler {
	return &DestinationHandler{svc: svc}
}

type AddBankAccountRequest struct {
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
	BankCode      string `json:"bank_code" validate:"required,numeric,min=3,max=6"`
}

// List handles GET /v1/destinations.
func (h *DestinationHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	dests, err := h.svc.List(r.Context(), accountID)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"destinations": dests})
}

// Add handles POST /v1/destinations.
func (h *DestinationHandler) Add(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	var req AddBankAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dest, err := h.svc.AddBankAccount(r.Context(), accountID, req.AccountNumber, req.BankCode)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, dest)
}

// Delete handles DELETE /v1/destinations/{id}.
func (h *DestinationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, chi.URLParam(r, "id"), "destination id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), accountID, id); err != nil {
		problem.FromError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefault handles PUT /v1/destinations/{id}/default.
func (h *DestinationHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, chi.URLParam(r, "id"), "destination id")
	if !ok {
		return
	}
	if err := h.svc.SetDefault(r.Context(), accountID, id); err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListBanks handles GET /v1/banks.
func (h *DestinationHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.svc.ListBanks(r.Context())
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"banks": banks})
}
