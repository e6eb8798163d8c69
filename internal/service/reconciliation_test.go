package service

import (
	"context"
	"testing"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/wheel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedBalance(t *testing.T) {
	totals := []ledger.KindTotal{
		{Kind: domain.TxKindDeposit, Status: domain.TxStatusCompleted, Total: 100_000},
		{Kind: domain.TxKindDeposit, Status: domain.TxStatusPending, Total: 7_000},
		{Kind: domain.TxKindWager, Status: domain.TxStatusCompleted, Total: 3_000},
		{Kind: domain.TxKindPayout, Status: domain.TxStatusCompleted, Total: 20_000},
		{Kind: domain.TxKindReversal, Status: domain.TxStatusCompleted, Total: 1_000},
		{Kind: domain.TxKindWithdrawal, Status: domain.TxStatusCompleted, Total: 10_000},
		{Kind: domain.TxKindWithdrawal, Status: domain.TxStatusPending, Total: 5_000},
		{Kind: domain.TxKindWithdrawal, Status: domain.TxStatusFailed, Total: 9_000},
	}
	assert.Equal(t, int64(103_000), ExpectedBalance(totals))
}

func TestReconciliationRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	svc := NewSettlementService(store, wheel.FixedDrawer{Outcome: "8"}, nil, testLimits())

	balanced := seedAccount(t, store, 50_000)
	_, err := svc.PlaceBet(ctx, PlaceBetRequest{AccountID: balanced, Stake: 1_000, ChosenOutcome: "8"})
	require.NoError(t, err)
	_, err = svc.PlaceBet(ctx, PlaceBetRequest{AccountID: balanced, Stake: 2_000, ChosenOutcome: "2"})
	require.NoError(t, err)

	broken := seedAccount(t, store, 10_000)
	_, err = store.Queries().AdjustBalance(ctx, broken, 1)
	require.NoError(t, err)

	imbalances, err := NewReconciliationService(store).Run(ctx)
	require.NoError(t, err)
	require.Len(t, imbalances, 1)
	assert.Equal(t, broken, imbalances[0].AccountID)
	assert.Equal(t, int64(10_001), imbalances[0].Balance)
	assert.Equal(t, int64(10_000), imbalances[0].Expected)
}

func TestResolveCase(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	accountID := seedAccount(t, store, 0)
	svc := NewReconciliationService(store)

	c, err := store.Queries().CreateReconciliationCase(ctx, ledger.CreateReconciliationCaseParams{
		ID:        uuid.New(),
		AccountID: accountID,
		Reason:    "deposit_amount_mismatch",
		Reference: "TRX-0000000000000001",
		Amount:    5_000,
	})
	require.NoError(t, err)

	open, err := svc.ListCases(ctx, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)

	actor := uuid.New()
	resolved, err := svc.ResolveCase(ctx, c.ID, "refunded by bank transfer", &actor)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusResolved, resolved.Status)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, "refunded by bank transfer", *resolved.Resolution)

	_, err = svc.ResolveCase(ctx, c.ID, "again", &actor)
	require.ErrorIs(t, err, models.ErrNotFound)

	open, err = svc.ListCases(ctx, domain.CaseStatusOpen, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}
