package repository

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/ayo6706/wheelbet/internal/db"
	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/testutil/dblock"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env") // Load from root
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	release := dblock.Acquire()
	t.Cleanup(release)

	pool, err := db.Connect(context.Background(), db.Options{URL: dbURL})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(context.Background(), pool))
	return NewStore(pool)
}

func createFundedAccount(t *testing.T, s *Store, balance int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := s.Queries().CreateAccount(ctx, id)
	require.NoError(t, err)
	if balance > 0 {
		_, err = s.Queries().AdjustBalance(ctx, id, balance)
		require.NoError(t, err)
	}
	return id
}

func TestAdjustBalanceRejectsOverdraft(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := createFundedAccount(t, s, 1000)

	_, err := s.Queries().AdjustBalance(ctx, id, -1001)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	_, err = s.Queries().AdjustBalance(ctx, uuid.New(), 10)
	require.ErrorIs(t, err, models.ErrAccountNotFound)

	acc, err := s.Queries().GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acc.Balance)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := createFundedAccount(t, s, 5000)

	err := s.RunInTx(ctx, func(q ledger.Queries) error {
		if _, err := q.AdjustBalance(ctx, id, -2000); err != nil {
			return err
		}
		_, err := q.CreateTransaction(ctx, ledger.CreateTransactionParams{
			ID:        uuid.New(),
			AccountID: id,
			Kind:      domain.TxKindWager,
			Amount:    2000,
			Status:    domain.TxStatusCompleted,
			Reference: domain.NewReference(domain.RefPrefixWager),
		})
		if err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	acc, err := s.Queries().GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), acc.Balance)

	txs, err := s.Queries().ListTransactionsByAccount(ctx, ledger.ListByAccountParams{AccountID: id, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDuplicateReference(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := createFundedAccount(t, s, 0)
	ref := domain.NewReference(domain.RefPrefixDeposit)

	params := ledger.CreateTransactionParams{
		ID: uuid.New(), AccountID: id, Kind: domain.TxKindDeposit,
		Amount: 50_000, Status: domain.TxStatusPending, Reference: ref,
	}
	_, err := s.Queries().CreateTransaction(ctx, params)
	require.NoError(t, err)

	params.ID = uuid.New()
	_, err = s.Queries().CreateTransaction(ctx, params)
	require.ErrorIs(t, err, models.ErrDuplicateReference)
}

func TestSetTransactionStatusMergesMetadata(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := createFundedAccount(t, s, 0)

	tx, err := s.Queries().CreateTransaction(ctx, ledger.CreateTransactionParams{
		ID: uuid.New(), AccountID: id, Kind: domain.TxKindDeposit, Amount: 50_000,
		Status: domain.TxStatusPending, Reference: domain.NewReference(domain.RefPrefixDeposit),
		Metadata: json.RawMessage(`{"channel":"card"}`),
	})
	require.NoError(t, err)

	updated, err := s.Queries().SetTransactionStatus(ctx, tx.ID, domain.TxStatusCompleted, json.RawMessage(`{"gateway_status":"PAID"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, updated.Status)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(updated.Metadata, &meta))
	assert.Equal(t, "card", meta["channel"])
	assert.Equal(t, "PAID", meta["gateway_status"])
}

func TestWithAccountLockSerializesSameAccount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := createFundedAccount(t, s, 100_000)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithAccountLock(ctx, id, func(tx ledger.Transactor) error {
				return tx.RunInTx(ctx, func(q ledger.Queries) error {
					if _, err := q.GetAccount(ctx, id); err != nil {
						return err
					}
					_, err := q.AdjustBalance(ctx, id, -10_000)
					return err
				})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acc, err := s.Queries().GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance)
}

func TestDestinationUniqueness(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	id := createFundedAccount(t, s, 0)

	params := ledger.CreateDestinationParams{
		ID: uuid.New(), AccountID: id, Kind: domain.DestinationKindBank,
		ExternalAccountRef: "0123456789", DisplayName: "Test Bank ****6789", BankCode: "058",
	}
	_, err := s.Queries().CreateDestination(ctx, params)
	require.NoError(t, err)

	params.ID = uuid.New()
	_, err = s.Queries().CreateDestination(ctx, params)
	require.ErrorIs(t, err, models.ErrDestinationExists)
}

func TestResolveReconciliationCaseOnce(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	c, err := s.Queries().CreateReconciliationCase(ctx, ledger.CreateReconciliationCaseParams{
		ID: uuid.New(), AccountID: uuid.New(), Reason: "compensation_failed",
		Reference: domain.NewReference(domain.RefPrefixWager), Amount: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusOpen, c.Status)

	resolved, err := s.Queries().ResolveReconciliationCase(ctx, c.ID, "manual credit issued")
	require.NoError(t, err)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, "manual credit issued", *resolved.Resolution)

	_, err = s.Queries().ResolveReconciliationCase(ctx, c.ID, "again")
	require.ErrorIs(t, err, models.ErrNotFound)
}
