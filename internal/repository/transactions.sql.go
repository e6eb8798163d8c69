package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, account_id, kind, amount, status, reference, metadata, created_at, updated_at`

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var t models.Transaction
	var metadata []byte
	err := row.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.Status, &t.Reference, &metadata, &t.CreatedAt, &t.UpdatedAt)
	t.Metadata = json.RawMessage(metadata)
	return t, err
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const createTransaction = `
INSERT INTO transactions (id, account_id, kind, amount, status, reference, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg ledger.CreateTransactionParams) (models.Transaction, error) {
	createdAt := arg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	t, err := scanTransaction(q.db.QueryRow(ctx, createTransaction,
		arg.ID, arg.AccountID, arg.Kind, arg.Amount, arg.Status, arg.Reference, jsonObject(arg.Metadata), createdAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return t, fmt.Errorf("%w: %s", models.ErrDuplicateReference, arg.Reference)
		}
		return t, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return q.getTransaction(ctx, getTransaction, id)
}

const getTransactionForUpdate = getTransaction + ` FOR UPDATE`

func (q *Queries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return q.getTransaction(ctx, getTransactionForUpdate, id)
}

const getTransactionByReference = `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`

func (q *Queries) GetTransactionByReference(ctx context.Context, reference string) (models.Transaction, error) {
	return q.getTransaction(ctx, getTransactionByReference, reference)
}

func (q *Queries) getTransaction(ctx context.Context, query string, arg any) (models.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, models.ErrNotFound
		}
		return t, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

const listTransactionsByAccount = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListTransactionsByAccount(ctx context.Context, arg ledger.ListByAccountParams) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

const setTransactionStatus = `
UPDATE transactions
SET status = $2, metadata = metadata || $3::jsonb, updated_at = NOW()
WHERE id = $1
RETURNING ` + transactionColumns

func (q *Queries) SetTransactionStatus(ctx context.Context, id uuid.UUID, status string, metadataPatch json.RawMessage) (models.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRow(ctx, setTransactionStatus, id, status, jsonObject(metadataPatch)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, models.ErrNotFound
		}
		return t, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return t, nil
}

const sumTransactionsByKind = `
SELECT kind, status, COALESCE(SUM(amount), 0)::BIGINT
FROM transactions
WHERE account_id = $1
GROUP BY kind, status`

func (q *Queries) SumTransactionsByKind(ctx context.Context, accountID uuid.UUID) ([]ledger.KindTotal, error) {
	rows, err := q.db.Query(ctx, sumTransactionsByKind, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.KindTotal
	for rows.Next() {
		var kt ledger.KindTotal
		if err := rows.Scan(&kt.Kind, &kt.Status, &kt.Total); err != nil {
			return nil, fmt.Errorf("failed to scan transaction total: %w", err)
		}
		out = append(out, kt)
	}
	return out, rows.Err()
}

const listStalePendingDeposits = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE kind = 'deposit' AND status = 'pending' AND created_at < $1
ORDER BY created_at
LIMIT $2`

func (q *Queries) ListStalePendingDeposits(ctx context.Context, before time.Time, limit int32) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, listStalePendingDeposits, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deposits: %w", err)
	}
	return collectTransactions(rows)
}
