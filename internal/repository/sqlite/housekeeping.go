package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

const insertAuditLog = `
INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertAuditLog(ctx context.Context, arg ledger.InsertAuditLogParams) error {
	var actor, prev, next, metadata any
	if arg.ActorID != nil {
		actor = arg.ActorID.String()
	}
	if arg.PrevState != nil {
		prev = *arg.PrevState
	}
	if arg.NextState != nil {
		next = *arg.NextState
	}
	if len(arg.Metadata) > 0 {
		metadata = string(arg.Metadata)
	}
	_, err := q.db.ExecContext(ctx, insertAuditLog,
		arg.EntityType, arg.EntityID, actor, arg.Action, prev, next, metadata, nanos(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

const caseColumns = `id, account_id, reason, reference, amount, details, status, resolution, created_at, resolved_at`

func scanCase(row rowScanner) (models.ReconciliationCase, error) {
	var c models.ReconciliationCase
	var details string
	var resolution sql.NullString
	var created int64
	var resolved sql.NullInt64
	err := row.Scan(&c.ID, &c.AccountID, &c.Reason, &c.Reference, &c.Amount, &details, &c.Status, &resolution, &created, &resolved)
	c.Details = json.RawMessage(details)
	c.CreatedAt = fromNanos(created)
	if resolution.Valid {
		c.Resolution = &resolution.String
	}
	if resolved.Valid {
		t := fromNanos(resolved.Int64)
		c.ResolvedAt = &t
	}
	return c, err
}

const createReconciliationCase = `
INSERT INTO reconciliation_cases (id, account_id, reason, reference, amount, details, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, 'open', ?)`

func (q *Queries) CreateReconciliationCase(ctx context.Context, arg ledger.CreateReconciliationCaseParams) (models.ReconciliationCase, error) {
	now := nanos(time.Now())
	details := jsonText(arg.Details)
	_, err := q.db.ExecContext(ctx, createReconciliationCase,
		arg.ID, arg.AccountID, arg.Reason, arg.Reference, arg.Amount, details, now,
	)
	if err != nil {
		return models.ReconciliationCase{}, fmt.Errorf("failed to create reconciliation case: %w", err)
	}
	return models.ReconciliationCase{
		ID:        arg.ID,
		AccountID: arg.AccountID,
		Reason:    arg.Reason,
		Reference: arg.Reference,
		Amount:    arg.Amount,
		Details:   json.RawMessage(details),
		Status:    domain.CaseStatusOpen,
		CreatedAt: fromNanos(now),
	}, nil
}

const listReconciliationCases = `
SELECT ` + caseColumns + `
FROM reconciliation_cases
WHERE status = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

func (q *Queries) ListReconciliationCases(ctx context.Context, status string, limit, offset int32) ([]models.ReconciliationCase, error) {
	rows, err := q.db.QueryContext(ctx, listReconciliationCases, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation cases: %w", err)
	}
	defer rows.Close()

	var out []models.ReconciliationCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const resolveReconciliationCase = `
UPDATE reconciliation_cases
SET status = 'resolved', resolution = ?, resolved_at = ?
WHERE id = ? AND status = 'open'`

const getReconciliationCase = `SELECT ` + caseColumns + ` FROM reconciliation_cases WHERE id = ?`

func (q *Queries) ResolveReconciliationCase(ctx context.Context, id uuid.UUID, resolution string) (models.ReconciliationCase, error) {
	n, err := q.execAffected(ctx, resolveReconciliationCase, resolution, nanos(time.Now()), id)
	if err != nil {
		return models.ReconciliationCase{}, fmt.Errorf("failed to resolve reconciliation case: %w", err)
	}
	if n == 0 {
		return models.ReconciliationCase{}, models.ErrNotFound
	}
	c, err := scanCase(q.db.QueryRowContext(ctx, getReconciliationCase, id))
	if err != nil {
		return c, fmt.Errorf("failed to get reconciliation case: %w", err)
	}
	return c, nil
}

const idempotencyColumns = `idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress`

func scanIdempotencyKey(row rowScanner) (models.IdempotencyKey, error) {
	var k models.IdempotencyKey
	err := row.Scan(&k.Key, &k.RequestHash, &k.Method, &k.Path, &k.ResponseStatus, &k.ResponseBody, &k.ContentType, &k.InProgress)
	return k, err
}

const getIdempotencyKey = `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE idempotency_key = ?`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (models.IdempotencyKey, error) {
	k, err := scanIdempotencyKey(q.db.QueryRowContext(ctx, getIdempotencyKey, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return k, models.ErrNotFound
		}
		return k, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return k, nil
}

const reserveIdempotencyKey = `
INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (idempotency_key) DO NOTHING`

func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ledger.ReserveIdempotencyKeyParams) (bool, error) {
	now := nanos(time.Now())
	n, err := q.execAffected(ctx, reserveIdempotencyKey, arg.Key, arg.RequestHash, arg.Method, arg.Path, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return n == 1, nil
}

const finalizeIdempotencyKey = `
UPDATE idempotency_keys
SET response_status = ?, response_body = ?, content_type = ?, in_progress = 0, updated_at = ?
WHERE idempotency_key = ? AND request_hash = ?`

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg ledger.FinalizeIdempotencyKeyParams) (models.IdempotencyKey, error) {
	body := arg.ResponseBody
	if body == nil {
		body = []byte{}
	}
	n, err := q.execAffected(ctx, finalizeIdempotencyKey,
		arg.ResponseStatus, body, arg.ContentType, nanos(time.Now()), arg.Key, arg.RequestHash,
	)
	if err != nil {
		return models.IdempotencyKey{}, fmt.Errorf("failed to finalize idempotency key: %w", err)
	}
	if n == 0 {
		return models.IdempotencyKey{}, models.ErrNotFound
	}
	return q.GetIdempotencyKey(ctx, arg.Key)
}
