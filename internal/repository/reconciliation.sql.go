package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const caseColumns = `id, account_id, reason, reference, amount, details, status, resolution, created_at, resolved_at`

func scanCase(row rowScanner) (models.ReconciliationCase, error) {
	var c models.ReconciliationCase
	var details []byte
	var resolution pgtype.Text
	var resolvedAt pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.AccountID, &c.Reason, &c.Reference, &c.Amount, &details, &c.Status, &resolution, &c.CreatedAt, &resolvedAt)
	c.Details = json.RawMessage(details)
	if resolution.Valid {
		c.Resolution = &resolution.String
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	return c, err
}

const createReconciliationCase = `
INSERT INTO reconciliation_cases (id, account_id, reason, reference, amount, details, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, 'open', NOW())
RETURNING ` + caseColumns

func (q *Queries) CreateReconciliationCase(ctx context.Context, arg ledger.CreateReconciliationCaseParams) (models.ReconciliationCase, error) {
	c, err := scanCase(q.db.QueryRow(ctx, createReconciliationCase,
		arg.ID, arg.AccountID, arg.Reason, arg.Reference, arg.Amount, jsonObject(arg.Details),
	))
	if err != nil {
		return c, fmt.Errorf("failed to create reconciliation case: %w", err)
	}
	return c, nil
}

const listReconciliationCases = `
SELECT ` + caseColumns + `
FROM reconciliation_cases
WHERE status = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListReconciliationCases(ctx context.Context, status string, limit, offset int32) ([]models.ReconciliationCase, error) {
	rows, err := q.db.Query(ctx, listReconciliationCases, status, limit, offset)
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
SET status = 'resolved', resolution = $2, resolved_at = NOW()
WHERE id = $1 AND status = 'open'
RETURNING ` + caseColumns

func (q *Queries) ResolveReconciliationCase(ctx context.Context, id uuid.UUID, resolution string) (models.ReconciliationCase, error) {
	c, err := scanCase(q.db.QueryRow(ctx, resolveReconciliationCase, id, resolution))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, models.ErrNotFound
		}
		return c, fmt.Errorf("failed to resolve reconciliation case: %w", err)
	}
	return c, nil
}
