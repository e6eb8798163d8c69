package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid signature")

// WebhookService handles payment notifications pushed by the gateway.
type WebhookService struct {
	funds   *FundsService
	hmacKey []byte
	skipSig bool
}

// NewWebhookService creates a new WebhookService instance.
func NewWebhookService(funds *FundsService, hmacKey string, skipSignature bool) *WebhookService {
	return &WebhookService{
		funds:   funds,
		hmacKey: []byte(hmacKey),
		skipSig: skipSignature,
	}
}

// GatewayWebhookPayload is the notification body. Only the reference is
// trusted; the payment state is always re-read from the gateway.
type GatewayWebhookPayload struct {
	EventType        string `json:"event_type"`
	PaymentReference string `json:"payment_reference"`
}

// HandleGatewayWebhook verifies the signature and confirms the named deposit.
// Retries of the same notification are harmless.
func (s *WebhookService) HandleGatewayWebhook(ctx context.Context, payload []byte, signature string) (*DepositOutcome, error) {
	if !s.verifyHMAC(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var evt GatewayWebhookPayload
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	evt.PaymentReference = strings.TrimSpace(evt.PaymentReference)
	if evt.PaymentReference == "" {
		return nil, errors.New("payment_reference is required")
	}

	return s.funds.ConfirmDeposit(ctx, nil, evt.PaymentReference)
}

// verifyHMAC verifies the HMAC signature of the payload.
func (s *WebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	h := hmac.New(sha256.New, s.hmacKey)
	h.Write(payload)
	expectedSig := "sha256=" + hex.EncodeToString(h.Sum(nil))

	// Use hmac.Equal for constant-time comparison
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
