package idempotency

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ayo6706/wheelbet/internal/repository/sqlite"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedger(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreLifecycleWithoutCache(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, setupLedger(t).Queries(), time.Hour)

	_, err := s.Lookup(ctx, "k1", "hash-a")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Reserve(ctx, "k1", "hash-a", http.MethodPost, "/api/v1/bets")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "k1", "hash-a", http.MethodPost, "/api/v1/bets")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Lookup(ctx, "k1", "hash-a")
	require.ErrorIs(t, err, ErrInProgress)

	_, err = s.Finalize(ctx, "k1", "hash-b", http.StatusCreated, []byte(`{}`), "application/json")
	require.ErrorIs(t, err, ErrNotFound)

	rec, err := s.Finalize(ctx, "k1", "hash-a", http.StatusCreated, []byte(`{"bet_id":"x"}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Status)

	rec, err = s.Lookup(ctx, "k1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, ServedByLedger, rec.ServedBy)
	assert.JSONEq(t, `{"bet_id":"x"}`, string(rec.Body))

	_, err = s.Lookup(ctx, "k1", "hash-b")
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestWaitForCompletion(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, setupLedger(t).Queries(), time.Hour)

	ok, err := s.Reserve(ctx, "k2", "hash", http.MethodPost, "/api/v1/withdrawals")
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(120 * time.Millisecond)
		_, _ = s.Finalize(context.Background(), "k2", "hash", http.StatusOK, []byte(`{"status":"completed"}`), "application/json")
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	rec, err := s.WaitForCompletion(waitCtx, "k2", "hash")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Status)

	ok, err = s.Reserve(ctx, "k3", "hash", http.MethodPost, "/api/v1/withdrawals")
	require.NoError(t, err)
	require.True(t, ok)
	shortCtx, cancelShort := context.WithTimeout(ctx, 80*time.Millisecond)
	defer cancelShort()
	_, err = s.WaitForCompletion(shortCtx, "k3", "hash")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreReadsThroughRedis(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	ledgerStore := setupLedger(t)
	s := NewStore(client, ledgerStore.Queries(), time.Minute)

	ok, err := s.Reserve(ctx, "k4", "hash", http.MethodPost, "/api/v1/bets")
	require.NoError(t, err)
	require.True(t, ok)

	body := []byte(`{"is_win":true}`)
	payload, err := json.Marshal(cacheEnvelope{Key: "k4", Hash: "hash", Status: http.StatusCreated, Body: body, ContentType: "application/json"})
	require.NoError(t, err)

	mock.ExpectSet(redisKey("k4"), payload, time.Minute).SetVal("OK")
	_, err = s.Finalize(ctx, "k4", "hash", http.StatusCreated, body, "application/json")
	require.NoError(t, err)

	mock.ExpectGet(redisKey("k4")).SetVal(string(payload))
	rec, err := s.Lookup(ctx, "k4", "hash")
	require.NoError(t, err)
	assert.Equal(t, ServedByCache, rec.ServedBy)
	assert.Equal(t, body, rec.Body)

	mock.ExpectGet(redisKey("k4")).SetVal(string(payload))
	_, err = s.Lookup(ctx, "k4", "other")
	require.ErrorIs(t, err, ErrHashMismatch)

	mock.ExpectGet(redisKey("k4")).RedisNil()
	mock.ExpectSet(redisKey("k4"), payload, time.Minute).SetVal("OK")
	rec, err = s.Lookup(ctx, "k4", "hash")
	require.NoError(t, err)
	assert.Equal(t, ServedByLedger, rec.ServedBy)

	require.NoError(t, mock.ExpectationsWereMet())
}
