package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/jackc/pgx/v5"
)

const idempotencyColumns = `idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress`

func scanIdempotencyKey(row rowScanner) (models.IdempotencyKey, error) {
	var k models.IdempotencyKey
	var status int32
	err := row.Scan(&k.Key, &k.RequestHash, &k.Method, &k.Path, &status, &k.ResponseBody, &k.ContentType, &k.InProgress)
	k.ResponseStatus = int(status)
	return k, err
}

const getIdempotencyKey = `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE idempotency_key = $1`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (models.IdempotencyKey, error) {
	k, err := scanIdempotencyKey(q.db.QueryRow(ctx, getIdempotencyKey, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return k, models.ErrNotFound
		}
		return k, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return k, nil
}

const reserveIdempotencyKey = `
INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
ON CONFLICT (idempotency_key) DO NOTHING`

func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ledger.ReserveIdempotencyKeyParams) (bool, error) {
	tag, err := q.db.Exec(ctx, reserveIdempotencyKey, arg.Key, arg.RequestHash, arg.Method, arg.Path)
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const finalizeIdempotencyKey = `
UPDATE idempotency_keys
SET response_status = $3, response_body = $4, content_type = $5, in_progress = FALSE, updated_at = NOW()
WHERE idempotency_key = $1 AND request_hash = $2
RETURNING ` + idempotencyColumns

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg ledger.FinalizeIdempotencyKeyParams) (models.IdempotencyKey, error) {
	k, err := scanIdempotencyKey(q.db.QueryRow(ctx, finalizeIdempotencyKey,
		arg.Key, arg.RequestHash, int32(arg.ResponseStatus), arg.ResponseBody, arg.ContentType,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return k, models.ErrNotFound
		}
		return k, fmt.Errorf("failed to finalize idempotency key: %w", err)
	}
	return k, nil
}
