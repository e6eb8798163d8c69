package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, balance, created_at, updated_at`

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

const createAccount = `
INSERT INTO accounts (id, balance, created_at, updated_at)
VALUES ($1, 0, NOW(), NOW())
RETURNING ` + accountColumns

func (q *Queries) CreateAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, createAccount, id))
	if err != nil {
		return a, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, getAccount, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, models.ErrAccountNotFound
		}
		return a, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

const adjustBalance = `
UPDATE accounts
SET balance = balance + $2, updated_at = NOW()
WHERE id = $1 AND balance + $2 >= 0
RETURNING ` + accountColumns

func (q *Queries) AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) (models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, adjustBalance, id, delta))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return a, fmt.Errorf("failed to adjust balance: %w", err)
	}
	if _, getErr := q.GetAccount(ctx, id); getErr != nil {
		return a, getErr
	}
	return a, models.ErrInsufficientFunds
}

const listAccountIDs = `SELECT id FROM accounts ORDER BY created_at`

func (q *Queries) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listAccountIDs)
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
