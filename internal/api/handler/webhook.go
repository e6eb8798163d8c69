package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/wheelbet/internal/api/problem"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler receives payment notifications from the gateway.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// HandleGatewayWebhook handles POST /v1/webhooks/gateway.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	resp, err := h.webhookSvc.HandleGatewayWebhook(r.Context(), body, r.Header.Get("X-Webhook-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			zap.L().Warn("gateway webhook rejected", zap.String("reason", "invalid signature"))
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrGatewayUnavailable):
			problem.FromError(w, r, err)
		default:
			zap.L().Warn("gateway webhook rejected", zap.Error(err))
			RespondError(w, r, http.StatusBadRequest, "webhook/invalid-payload", err.Error())
		}
		return
	}
	RespondJSON(w, http.StatusOK, resp)
}
