package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

func TestGatewayWebhookConfirmsDeposit(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	funds := NewFundsService(store, gw, nil, testLimits(), time.Second)
	svc := NewWebhookService(funds, "secret", false)
	accountID := seedAccount(t, store, 0)
	ctx := context.Background()

	init, err := funds.InitiateDeposit(ctx, accountID, 7_500, testPayer)
	require.NoError(t, err)
	require.NoError(t, gw.Complete(init.Reference, gateway.PaymentPaid, 7_500, nil))

	body, err := json.Marshal(GatewayWebhookPayload{EventType: "payment.success", PaymentReference: init.Reference})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		out, err := svc.HandleGatewayWebhook(ctx, body, signPayload("secret", body))
		require.NoError(t, err)
		assert.Equal(t, domain.TxStatusCompleted, out.Status)
	}
	assert.Equal(t, int64(7_500), balanceOf(t, store, accountID))
}

func TestGatewayWebhookRejectsBadSignature(t *testing.T) {
	store := setupTestStore(t)
	funds := NewFundsService(store, gateway.NewSandbox(0), nil, testLimits(), time.Second)
	svc := NewWebhookService(funds, "secret", false)

	body := []byte(`{"payment_reference":"TRX-0000000000000001"}`)
	_, err := svc.HandleGatewayWebhook(context.Background(), body, signPayload("wrong", body))
	require.ErrorIs(t, err, ErrInvalidSignature)

	unsigned := NewWebhookService(funds, "", false)
	_, err = unsigned.HandleGatewayWebhook(context.Background(), body, "")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestGatewayWebhookRequiresReference(t *testing.T) {
	store := setupTestStore(t)
	funds := NewFundsService(store, gateway.NewSandbox(0), nil, testLimits(), time.Second)
	svc := NewWebhookService(funds, "", true)

	_, err := svc.HandleGatewayWebhook(context.Background(), []byte(`{"payment_reference":"  "}`), "")
	require.Error(t, err)

	_, err = svc.HandleGatewayWebhook(context.Background(), []byte(`not json`), "")
	require.Error(t, err)
}
