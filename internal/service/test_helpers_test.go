package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/gateway"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/ayo6706/wheelbet/internal/repository/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected store failure")

func testLimits() Limits {
	return Limits{MinStake: 100, MaxStake: 10_000_000, MinDeposit: 100, MinWithdrawal: 100}
}

// setupTestStore opens a private in-memory ledger.
func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedAccount creates an account funded by a completed deposit so the
// ledger conserves from the start.
func seedAccount(t *testing.T, store ledger.Store, balance int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := store.Queries().CreateAccount(ctx, id)
	require.NoError(t, err)
	if balance == 0 {
		return id
	}
	err = store.RunInTx(ctx, func(q ledger.Queries) error {
		if _, err := q.AdjustBalance(ctx, id, balance); err != nil {
			return err
		}
		_, err := q.CreateTransaction(ctx, ledger.CreateTransactionParams{
			ID:        uuid.New(),
			AccountID: id,
			Kind:      domain.TxKindDeposit,
			Amount:    balance,
			Status:    domain.TxStatusCompleted,
			Reference: domain.NewReference(domain.RefPrefixDeposit),
		})
		return err
	})
	require.NoError(t, err)
	return id
}

func balanceOf(t *testing.T, store ledger.Store, id uuid.UUID) int64 {
	t.Helper()
	acc, err := store.Queries().GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func transactionsOf(t *testing.T, store ledger.Store, id uuid.UUID) []models.Transaction {
	t.Helper()
	txs, err := store.Queries().ListTransactionsByAccount(context.Background(), ledger.ListByAccountParams{
		AccountID: id,
		Limit:     100,
	})
	require.NoError(t, err)
	return txs
}

func openCases(t *testing.T, store ledger.Store) []models.ReconciliationCase {
	t.Helper()
	cases, err := store.Queries().ListReconciliationCases(context.Background(), domain.CaseStatusOpen, 100, 0)
	require.NoError(t, err)
	return cases
}

// recordingNotifier keeps every published event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Publish(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingNotifier) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

// faultyStore injects failures into selected writes.
type faultyStore struct {
	ledger.Store
	failBet      bool
	failReversal bool
	failStatus   string
}

type faultyQueries struct {
	ledger.Queries
	s *faultyStore
}

func (q faultyQueries) CreateBet(ctx context.Context, arg ledger.CreateBetParams) (models.BetRecord, error) {
	if q.s.failBet {
		return models.BetRecord{}, errInjected
	}
	return q.Queries.CreateBet(ctx, arg)
}

func (q faultyQueries) CreateTransaction(ctx context.Context, arg ledger.CreateTransactionParams) (models.Transaction, error) {
	if q.s.failReversal && arg.Kind == domain.TxKindReversal {
		return models.Transaction{}, errInjected
	}
	return q.Queries.CreateTransaction(ctx, arg)
}

func (q faultyQueries) SetTransactionStatus(ctx context.Context, id uuid.UUID, status string, patch json.RawMessage) (models.Transaction, error) {
	if q.s.failStatus != "" && q.s.failStatus == status {
		return models.Transaction{}, errInjected
	}
	return q.Queries.SetTransactionStatus(ctx, id, status, patch)
}

type faultyTransactor struct {
	tx ledger.Transactor
	s  *faultyStore
}

func (t faultyTransactor) RunInTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	return t.tx.RunInTx(ctx, func(q ledger.Queries) error {
		return fn(faultyQueries{Queries: q, s: t.s})
	})
}

func (s *faultyStore) Queries() ledger.Queries {
	return faultyQueries{Queries: s.Store.Queries(), s: s}
}

func (s *faultyStore) RunInTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	return faultyTransactor{tx: s.Store, s: s}.RunInTx(ctx, fn)
}

func (s *faultyStore) WithAccountLock(ctx context.Context, accountID uuid.UUID, fn func(tx ledger.Transactor) error) error {
	return s.Store.WithAccountLock(ctx, accountID, func(tx ledger.Transactor) error {
		return fn(faultyTransactor{tx: tx, s: s})
	})
}

// MockGateway is a testify mock of the payment gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitTransaction(ctx context.Context, req gateway.InitRequest) (gateway.InitResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.InitResult), args.Error(1)
}

func (m *MockGateway) QueryTransaction(ctx context.Context, reference string) (gateway.PaymentInfo, error) {
	args := m.Called(ctx, reference)
	return args.Get(0).(gateway.PaymentInfo), args.Error(1)
}

func (m *MockGateway) Transfer(ctx context.Context, req gateway.TransferRequest) (gateway.TransferResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.TransferResult), args.Error(1)
}

func (m *MockGateway) ValidateDestination(ctx context.Context, dest gateway.Destination) (gateway.ResolvedAccount, error) {
	args := m.Called(ctx, dest)
	return args.Get(0).(gateway.ResolvedAccount), args.Error(1)
}

func (m *MockGateway) ListBanks(ctx context.Context) ([]gateway.Bank, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.Bank), args.Error(1)
}
