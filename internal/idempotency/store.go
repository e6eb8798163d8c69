// Package idempotency replays the stored response of a mutating request when
// a client retries it with the same Idempotency-Key.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const (
	redisKeyPrefix = "wheelbet:idempotency"
	pollInterval   = 50 * time.Millisecond
)

// Source labels for Record.ServedBy.
const (
	ServedByCache  = "redis"
	ServedByLedger = "ledger"
)

type Record struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	ContentType string
	ServedBy    string
}

// Store keeps the durable copy of each key in the ledger database and a
// read-through copy of finished responses in Redis when one is configured.
type Store struct {
	redis   redis.Cmdable
	queries ledger.Queries
	ttl     time.Duration
}

func NewStore(rdb redis.Cmdable, queries ledger.Queries, ttl time.Duration) *Store {
	return &Store{redis: rdb, queries: queries, ttl: ttl}
}

type cacheEnvelope struct {
	Key         string `json:"key"`
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	if rec, ok, err := s.lookupCache(ctx, key, requestHash); ok || err != nil {
		return rec, err
	}

	row, err := s.queries.GetIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if row.RequestHash != requestHash {
		return nil, ErrHashMismatch
	}
	if row.InProgress {
		return nil, ErrInProgress
	}

	rec := Record{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		Status:      row.ResponseStatus,
		Body:        row.ResponseBody,
		ContentType: row.ContentType,
		ServedBy:    ServedByLedger,
	}
	s.cache(ctx, rec)
	return &rec, nil
}

func (s *Store) lookupCache(ctx context.Context, key, requestHash string) (*Record, bool, error) {
	if s.redis == nil {
		return nil, false, nil
	}
	val, err := s.redis.Get(ctx, redisKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis idempotency lookup failed", zap.Error(err))
		}
		return nil, false, nil
	}
	var env cacheEnvelope
	if err := json.Unmarshal([]byte(val), &env); err != nil {
		zap.L().Warn("corrupt idempotency cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if env.Hash != requestHash {
		return nil, true, ErrHashMismatch
	}
	return &Record{
		Key:         env.Key,
		RequestHash: env.Hash,
		Status:      env.Status,
		Body:        env.Body,
		ContentType: env.ContentType,
		ServedBy:    ServedByCache,
	}, true, nil
}

// Reserve claims key for this request. It reports false when another request
// already holds it.
func (s *Store) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	ok, err := s.queries.ReserveIdempotencyKey(ctx, ledger.ReserveIdempotencyKeyParams{
		Key:         key,
		RequestHash: requestHash,
		Method:      method,
		Path:        path,
	})
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*Record, error) {
	row, err := s.queries.FinalizeIdempotencyKey(ctx, ledger.FinalizeIdempotencyKeyParams{
		Key:            key,
		RequestHash:    requestHash,
		ResponseStatus: status,
		ResponseBody:   body,
		ContentType:    contentType,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finalize idempotency key: %w", err)
	}

	rec := &Record{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		Status:      row.ResponseStatus,
		Body:        row.ResponseBody,
		ContentType: row.ContentType,
		ServedBy:    ServedByLedger,
	}
	s.cache(ctx, *rec)
	return rec, nil
}

// WaitForCompletion polls until the request holding key finishes or ctx ends.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if !errors.Is(err, ErrInProgress) {
			return rec, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Store) cache(ctx context.Context, rec Record) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(cacheEnvelope{
		Key:         rec.Key,
		Hash:        rec.RequestHash,
		Status:      rec.Status,
		Body:        rec.Body,
		ContentType: rec.ContentType,
	})
	if err != nil {
		zap.L().Warn("marshal idempotency cache", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, redisKey(rec.Key), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("redis idempotency cache set failed", zap.Error(err))
	}
}

func redisKey(key string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, key)
}
