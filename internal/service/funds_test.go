package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/gateway"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPayer = gateway.Payer{Email: "bettor@example.com", Name: "Test Bettor"}

func TestDepositLifecycle(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	rec := &recordingNotifier{}
	svc := NewFundsService(store, gw, rec, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)
	ctx := context.Background()

	init, err := svc.InitiateDeposit(ctx, accountID, 50_000, testPayer)
	require.NoError(t, err)
	assert.Contains(t, init.CheckoutURL, init.Reference)

	out, err := svc.ConfirmDeposit(ctx, &accountID, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, out.Status)
	assert.Zero(t, balanceOf(t, store, accountID))

	require.NoError(t, gw.Complete(init.Reference, gateway.PaymentPaid, 50_000, nil))

	out, err = svc.ConfirmDeposit(ctx, &accountID, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, out.Status)
	assert.Equal(t, int64(50_000), balanceOf(t, store, accountID))

	// Repeated confirmation never credits twice.
	out, err = svc.ConfirmDeposit(ctx, nil, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, out.Status)
	assert.Equal(t, int64(50_000), balanceOf(t, store, accountID))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventDepositCompleted, events[0].Type)
	assert.Equal(t, int64(50_000), events[0].Amount)
}

func TestConcurrentDepositConfirmationsCreditOnce(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	gw.AutoApprove = true
	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)
	ctx := context.Background()

	init, err := svc.InitiateDeposit(ctx, accountID, 20_000, testPayer)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.ConfirmDeposit(ctx, nil, init.Reference)
			if assert.NoError(t, err) {
				assert.Equal(t, domain.TxStatusCompleted, out.Status)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20_000), balanceOf(t, store, accountID))
}

func TestDepositRejectsForeignAccountAndBadAmount(t *testing.T) {
	store := setupTestStore(t)
	svc := NewFundsService(store, gateway.NewSandbox(0), nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)
	other := seedAccount(t, store, 0)
	ctx := context.Background()

	_, err := svc.InitiateDeposit(ctx, accountID, 99, testPayer)
	require.ErrorIs(t, err, models.ErrInvalidAmount)

	init, err := svc.InitiateDeposit(ctx, accountID, 1_000, testPayer)
	require.NoError(t, err)

	_, err = svc.ConfirmDeposit(ctx, &other, init.Reference)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.ConfirmDeposit(ctx, nil, "TRX-DOESNOTEXIST")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDepositAmountMismatchOpensCase(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)
	ctx := context.Background()

	init, err := svc.InitiateDeposit(ctx, accountID, 10_000, testPayer)
	require.NoError(t, err)
	require.NoError(t, gw.Complete(init.Reference, gateway.PaymentPaid, 5_000, nil))

	out, err := svc.ConfirmDeposit(ctx, nil, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, out.Status)
	assert.Zero(t, balanceOf(t, store, accountID))

	cases := openCases(t, store)
	require.Len(t, cases, 1)
	assert.Equal(t, "deposit_amount_mismatch", cases[0].Reason)
	assert.Equal(t, init.Reference, cases[0].Reference)
}

func TestDepositFailedPayment(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)
	ctx := context.Background()

	init, err := svc.InitiateDeposit(ctx, accountID, 10_000, testPayer)
	require.NoError(t, err)
	require.NoError(t, gw.Complete(init.Reference, gateway.PaymentFailed, 10_000, nil))

	out, err := svc.ConfirmDeposit(ctx, nil, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, out.Status)
	assert.Equal(t, "Deposit failed", out.Message)
	assert.Zero(t, balanceOf(t, store, accountID))
}

func TestCardDepositSavesDestinationOnce(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)
	ctx := context.Background()
	card := &gateway.CardDetails{CardType: "visa", Last4: "4081", ExpiryMonth: "12", ExpiryYear: "2030"}

	for i := 0; i < 2; i++ {
		init, err := svc.InitiateDeposit(ctx, accountID, 1_000, testPayer)
		require.NoError(t, err)
		require.NoError(t, gw.Complete(init.Reference, gateway.PaymentPaid, 1_000, card))
		_, err = svc.ConfirmDeposit(ctx, &accountID, init.Reference)
		require.NoError(t, err)
	}

	dests, err := store.Queries().ListDestinations(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, dests, 1)
	assert.Equal(t, domain.DestinationKindCard, dests[0].Kind)
	assert.Equal(t, "VISA ****4081", dests[0].DisplayName)
	assert.True(t, dests[0].IsDefault)
	assert.Equal(t, int64(2_000), balanceOf(t, store, accountID))
}

func TestDepositGatewayInitFailure(t *testing.T) {
	store := setupTestStore(t)
	gw := new(MockGateway)
	gw.On("InitTransaction", mock.Anything, mock.AnythingOfType("gateway.InitRequest")).
		Return(gateway.InitResult{}, errors.New("connection refused"))
	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)

	_, err := svc.InitiateDeposit(context.Background(), accountID, 1_000, testPayer)
	require.ErrorIs(t, err, models.ErrGatewayUnavailable)

	txs := transactionsOf(t, store, accountID)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxStatusFailed, txs[0].Status)
	gw.AssertExpectations(t)
}

func TestSweepStaleDeposits(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 0)
	ctx := context.Background()

	paid, err := svc.InitiateDeposit(ctx, accountID, 1_000, testPayer)
	require.NoError(t, err)
	_, err = svc.InitiateDeposit(ctx, accountID, 2_000, testPayer)
	require.NoError(t, err)
	require.NoError(t, gw.Complete(paid.Reference, gateway.PaymentPaid, 1_000, nil))

	settled, err := svc.SweepStaleDeposits(ctx, -time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Equal(t, int64(1_000), balanceOf(t, store, accountID))
}

func addBank(t *testing.T, store ledger.Store, accountID uuid.UUID) models.PaymentDestination {
	t.Helper()
	d, err := NewDestinationService(store, gateway.NewSandbox(0)).AddBankAccount(context.Background(), accountID, "0123456789", "058")
	require.NoError(t, err)
	return d
}

func TestWithdrawalSuccess(t *testing.T) {
	store := setupTestStore(t)
	rec := &recordingNotifier{}
	svc := NewFundsService(store, gateway.NewSandbox(0), rec, testLimits(), time.Second)
	accountID := seedAccount(t, store, 10_000)
	dest := addBank(t, store, accountID)

	out, err := svc.InitiateWithdrawal(context.Background(), accountID, 4_000, dest.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, out.Status)
	assert.Equal(t, int64(6_000), balanceOf(t, store, accountID))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventWithdrawalComplete, events[0].Type)
}

func TestWithdrawalFailedTransferReturnsFunds(t *testing.T) {
	store := setupTestStore(t)
	rec := &recordingNotifier{}
	svc := NewFundsService(store, gateway.NewSandbox(1), rec, testLimits(), time.Second)
	accountID := seedAccount(t, store, 10_000)
	dest := addBank(t, store, accountID)

	out, err := svc.InitiateWithdrawal(context.Background(), accountID, 4_000, dest.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, out.Status)
	assert.Equal(t, int64(10_000), balanceOf(t, store, accountID))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventWithdrawalFailed, events[0].Type)

	imb, err := NewReconciliationService(store).CheckAccount(context.Background(), accountID)
	require.NoError(t, err)
	assert.Nil(t, imb)
}

func TestWithdrawalGatewayErrorReturnsFunds(t *testing.T) {
	store := setupTestStore(t)
	gw := new(MockGateway)
	gw.On("ValidateDestination", mock.Anything, gateway.Destination{AccountNumber: "0123456789", BankCode: "058"}).
		Return(gateway.ResolvedAccount{AccountNumber: "0123456789", AccountName: "ADA OBI", BankCode: "058", BankName: "Guaranty Trust Bank"}, nil)
	gw.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
		Return(gateway.TransferResult{}, context.DeadlineExceeded)
	accountID := seedAccount(t, store, 10_000)
	dest, err := NewDestinationService(store, gw).AddBankAccount(context.Background(), accountID, "0123456789", "058")
	require.NoError(t, err)

	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	out, err := svc.InitiateWithdrawal(context.Background(), accountID, 4_000, dest.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, out.Status)
	assert.Equal(t, int64(10_000), balanceOf(t, store, accountID))
	gw.AssertExpectations(t)
}

func TestWithdrawalCompensationFailureOpensCase(t *testing.T) {
	base := setupTestStore(t)
	store := &faultyStore{Store: base, failStatus: domain.TxStatusFailed}
	svc := NewFundsService(store, gateway.NewSandbox(1), nil, testLimits(), time.Second)
	accountID := seedAccount(t, base, 10_000)
	dest := addBank(t, base, accountID)

	_, err := svc.InitiateWithdrawal(context.Background(), accountID, 4_000, dest.ID)
	require.ErrorIs(t, err, models.ErrSettlementFailed)
	assert.Equal(t, int64(6_000), balanceOf(t, base, accountID))

	cases := openCases(t, base)
	require.Len(t, cases, 1)
	assert.Equal(t, "withdrawal_compensation_failed", cases[0].Reason)
}

func TestWithdrawalValidation(t *testing.T) {
	store := setupTestStore(t)
	gw := gateway.NewSandbox(0)
	svc := NewFundsService(store, gw, nil, testLimits(), time.Second)
	accountID := seedAccount(t, store, 1_000)
	other := seedAccount(t, store, 1_000)
	dest := addBank(t, store, accountID)
	ctx := context.Background()

	_, err := svc.InitiateWithdrawal(ctx, accountID, 50, dest.ID)
	require.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = svc.InitiateWithdrawal(ctx, other, 500, dest.ID)
	require.ErrorIs(t, err, models.ErrDestinationNotFound)

	_, err = svc.InitiateWithdrawal(ctx, accountID, 500, uuid.New())
	require.ErrorIs(t, err, models.ErrDestinationNotFound)

	_, err = svc.InitiateWithdrawal(ctx, accountID, 5_000, dest.ID)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	assert.Equal(t, int64(1_000), balanceOf(t, store, accountID))
}
