package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

const accountColumns = `id, balance, created_at, updated_at`

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	var created, updated int64
	err := row.Scan(&a.ID, &a.Balance, &created, &updated)
	a.CreatedAt, a.UpdatedAt = fromNanos(created), fromNanos(updated)
	return a, err
}

const createAccount = `INSERT INTO accounts (id, balance, created_at, updated_at) VALUES (?, 0, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	now := nanos(time.Now())
	if _, err := q.db.ExecContext(ctx, createAccount, id, now, now); err != nil {
		return models.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return models.Account{ID: id, CreatedAt: fromNanos(now), UpdatedAt: fromNanos(now)}, nil
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, models.ErrAccountNotFound
		}
		return a, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

const adjustBalance = `
UPDATE accounts SET balance = balance + ?, updated_at = ?
WHERE id = ? AND balance + ? >= 0`

func (q *Queries) AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) (models.Account, error) {
	res, err := q.db.ExecContext(ctx, adjustBalance, delta, nanos(time.Now()), id, delta)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to adjust balance: %w", err)
	}
	if n == 0 {
		if _, err := q.GetAccount(ctx, id); err != nil {
			return models.Account{}, err
		}
		return models.Account{}, models.ErrInsufficientFunds
	}
	return q.GetAccount(ctx, id)
}

const listAccountIDs = `SELECT id FROM accounts ORDER BY created_at`

func (q *Queries) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, listAccountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
