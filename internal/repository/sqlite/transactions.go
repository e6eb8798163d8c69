package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

const transactionColumns = `id, account_id, kind, amount, status, reference, metadata, created_at, updated_at`

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var t models.Transaction
	var metadata string
	var created, updated int64
	err := row.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.Status, &t.Reference, &metadata, &created, &updated)
	t.Metadata = json.RawMessage(metadata)
	t.CreatedAt, t.UpdatedAt = fromNanos(created), fromNanos(updated)
	return t, err
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
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
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg ledger.CreateTransactionParams) (models.Transaction, error) {
	createdAt := arg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	at := nanos(createdAt)
	metadata := jsonText(arg.Metadata)
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.AccountID, arg.Kind, arg.Amount, arg.Status, arg.Reference, metadata, at, at,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrDuplicateReference, arg.Reference)
		}
		return models.Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}
	return models.Transaction{
		ID:        arg.ID,
		AccountID: arg.AccountID,
		Kind:      arg.Kind,
		Amount:    arg.Amount,
		Status:    arg.Status,
		Reference: arg.Reference,
		Metadata:  json.RawMessage(metadata),
		CreatedAt: fromNanos(at),
		UpdatedAt: fromNanos(at),
	}, nil
}

func (q *Queries) getTransaction(ctx context.Context, query string, arg any) (models.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, models.ErrNotFound
		}
		return t, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return q.getTransaction(ctx, getTransaction, id)
}

// GetTransactionForUpdate is a plain read here: the single connection already
// excludes every other writer for the life of the transaction.
func (q *Queries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return q.getTransaction(ctx, getTransaction, id)
}

const getTransactionByReference = `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = ?`

func (q *Queries) GetTransactionByReference(ctx context.Context, reference string) (models.Transaction, error) {
	return q.getTransaction(ctx, getTransactionByReference, reference)
}

const listTransactionsByAccount = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

func (q *Queries) ListTransactionsByAccount(ctx context.Context, arg ledger.ListByAccountParams) ([]models.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

const setTransactionStatus = `
UPDATE transactions
SET status = ?, metadata = json_patch(metadata, ?), updated_at = ?
WHERE id = ?`

func (q *Queries) SetTransactionStatus(ctx context.Context, id uuid.UUID, status string, metadataPatch json.RawMessage) (models.Transaction, error) {
	res, err := q.db.ExecContext(ctx, setTransactionStatus, status, jsonText(metadataPatch), nanos(time.Now()), id)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Transaction{}, models.ErrNotFound
	}
	return q.GetTransaction(ctx, id)
}

const sumTransactionsByKind = `
SELECT kind, status, COALESCE(SUM(amount), 0)
FROM transactions
WHERE account_id = ?
GROUP BY kind, status`

func (q *Queries) SumTransactionsByKind(ctx context.Context, accountID uuid.UUID) ([]ledger.KindTotal, error) {
	rows, err := q.db.QueryContext(ctx, sumTransactionsByKind, accountID)
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
WHERE kind = 'deposit' AND status = 'pending' AND created_at < ?
ORDER BY created_at
LIMIT ?`

func (q *Queries) ListStalePendingDeposits(ctx context.Context, before time.Time, limit int32) ([]models.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listStalePendingDeposits, nanos(before), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale deposits: %w", err)
	}
	return collectTransactions(rows)
}
