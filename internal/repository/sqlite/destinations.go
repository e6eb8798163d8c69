package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

const destinationColumns = `id, account_id, kind, external_account_ref, display_name, bank_code, bank_name, is_default, created_at`

func scanDestination(row rowScanner) (models.PaymentDestination, error) {
	var d models.PaymentDestination
	var created int64
	err := row.Scan(&d.ID, &d.AccountID, &d.Kind, &d.ExternalAccountRef, &d.DisplayName, &d.BankCode, &d.BankName, &d.IsDefault, &created)
	d.CreatedAt = fromNanos(created)
	return d, err
}

const createDestination = `
INSERT INTO payment_destinations (id, account_id, kind, external_account_ref, display_name, bank_code, bank_name, is_default, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateDestination(ctx context.Context, arg ledger.CreateDestinationParams) (models.PaymentDestination, error) {
	now := nanos(time.Now())
	_, err := q.db.ExecContext(ctx, createDestination,
		arg.ID, arg.AccountID, arg.Kind, arg.ExternalAccountRef, arg.DisplayName, arg.BankCode, arg.BankName, arg.IsDefault, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.PaymentDestination{}, models.ErrDestinationExists
		}
		return models.PaymentDestination{}, fmt.Errorf("failed to create payment destination: %w", err)
	}
	return models.PaymentDestination{
		ID:                 arg.ID,
		AccountID:          arg.AccountID,
		Kind:               arg.Kind,
		ExternalAccountRef: arg.ExternalAccountRef,
		DisplayName:        arg.DisplayName,
		BankCode:           arg.BankCode,
		BankName:           arg.BankName,
		IsDefault:          arg.IsDefault,
		CreatedAt:          fromNanos(now),
	}, nil
}

const getDestination = `SELECT ` + destinationColumns + ` FROM payment_destinations WHERE id = ?`

func (q *Queries) GetDestination(ctx context.Context, id uuid.UUID) (models.PaymentDestination, error) {
	d, err := scanDestination(q.db.QueryRowContext(ctx, getDestination, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, models.ErrNotFound
		}
		return d, fmt.Errorf("failed to get payment destination: %w", err)
	}
	return d, nil
}

const listDestinations = `
SELECT ` + destinationColumns + `
FROM payment_destinations
WHERE account_id = ?
ORDER BY created_at, rowid`

func (q *Queries) ListDestinations(ctx context.Context, accountID uuid.UUID) ([]models.PaymentDestination, error) {
	rows, err := q.db.QueryContext(ctx, listDestinations, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment destinations: %w", err)
	}
	defer rows.Close()

	var out []models.PaymentDestination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment destination: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteDestination = `DELETE FROM payment_destinations WHERE id = ?`

func (q *Queries) DeleteDestination(ctx context.Context, id uuid.UUID) (int64, error) {
	n, err := q.execAffected(ctx, deleteDestination, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete payment destination: %w", err)
	}
	return n, nil
}

const clearDefaultDestinations = `UPDATE payment_destinations SET is_default = 0 WHERE account_id = ? AND is_default = 1`

func (q *Queries) ClearDefaultDestinations(ctx context.Context, accountID uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, clearDefaultDestinations, accountID); err != nil {
		return fmt.Errorf("failed to clear default destinations: %w", err)
	}
	return nil
}

const setDefaultDestination = `UPDATE payment_destinations SET is_default = 1 WHERE id = ?`

func (q *Queries) SetDefaultDestination(ctx context.Context, id uuid.UUID) (int64, error) {
	n, err := q.execAffected(ctx, setDefaultDestination, id)
	if err != nil {
		return 0, fmt.Errorf("failed to set default destination: %w", err)
	}
	return n, nil
}
