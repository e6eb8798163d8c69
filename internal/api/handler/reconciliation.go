package handler

import (
	"net/http"

	"github.com/ayo6706/wheelbet/internal/api/problem"
	"github.com/ayo6706/wheelbet/internal/service"
	"github.com/go-chi/chi/v5"
)

// ReconciliationHandler serves the manual review queue to admins.
type ReconciliationHandler struct {
	svc *service.ReconciliationService
}

func NewReconciliationHandler(svc *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{svc: svc}
}

type ResolveCaseRequest struct {
	Resolution string `json:"resolution" validate:"required,max=1000"`
}

// ListCases handles GET /v1/admin/reconciliation-cases?status=open|resolved.
func (h *ReconciliationHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != "open" && status != "resolved" {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-status", "status must be open or resolved")
		return
	}
	cases, err := h.svc.ListCases(r.Context(), status, queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

// ResolveCase handles POST /v1/admin/reconciliation-cases/{id}/resolve.
func (h *ReconciliationHandler) ResolveCase(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, chi.URLParam(r, "id"), "case id")
	if !ok {
		return
	}
	var req ResolveCaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resolved, err := h.svc.ResolveCase(r.Context(), id, req.Resolution, &actorID)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, resolved)
}
