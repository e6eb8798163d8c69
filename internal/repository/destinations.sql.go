package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const destinationColumns = `id, account_id, kind, external_account_ref, display_name, bank_code, bank_name, is_default, created_at`

func scanDestination(row rowScanner) (models.PaymentDestination, error) {
	var d models.PaymentDestination
	err := row.Scan(&d.ID, &d.AccountID, &d.Kind, &d.ExternalAccountRef, &d.DisplayName, &d.BankCode, &d.BankName, &d.IsDefault, &d.CreatedAt)
	return d, err
}

const createDestination = `
INSERT INTO payment_destinations (id, account_id, kind, external_account_ref, display_name, bank_code, bank_name, is_default, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING ` + destinationColumns

func (q *Queries) CreateDestination(ctx context.Context, arg ledger.CreateDestinationParams) (models.PaymentDestination, error) {
	d, err := scanDestination(q.db.QueryRow(ctx, createDestination,
		arg.ID, arg.AccountID, arg.Kind, arg.ExternalAccountRef, arg.DisplayName, arg.BankCode, arg.BankName, arg.IsDefault,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return d, models.ErrDestinationExists
		}
		return d, fmt.Errorf("failed to create payment destination: %w", err)
	}
	return d, nil
}

const getDestination = `SELECT ` + destinationColumns + ` FROM payment_destinations WHERE id = $1`

func (q *Queries) GetDestination(ctx context.Context, id uuid.UUID) (models.PaymentDestination, error) {
	d, err := scanDestination(q.db.QueryRow(ctx, getDestination, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return d, models.ErrNotFound
		}
		return d, fmt.Errorf("failed to get payment destination: %w", err)
	}
	return d, nil
}

const listDestinations = `
SELECT ` + destinationColumns + `
FROM payment_destinations
WHERE account_id = $1
ORDER BY created_at, id`

func (q *Queries) ListDestinations(ctx context.Context, accountID uuid.UUID) ([]models.PaymentDestination, error) {
	rows, err := q.db.Query(ctx, listDestinations, accountID)
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

const deleteDestination = `DELETE FROM payment_destinations WHERE id = $1`

func (q *Queries) DeleteDestination(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDestination, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete payment destination: %w", err)
	}
	return tag.RowsAffected(), nil
}

const clearDefaultDestinations = `
UPDATE payment_destinations SET is_default = FALSE
WHERE account_id = $1 AND is_default`

func (q *Queries) ClearDefaultDestinations(ctx context.Context, accountID uuid.UUID) error {
	if _, err := q.db.Exec(ctx, clearDefaultDestinations, accountID); err != nil {
		return fmt.Errorf("failed to clear default destinations: %w", err)
	}
	return nil
}

const setDefaultDestination = `UPDATE payment_destinations SET is_default = TRUE WHERE id = $1`

func (q *Queries) SetDefaultDestination(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, setDefaultDestination, id)
	if err != nil {
		return 0, fmt.Errorf("failed to set default destination: %w", err)
	}
	return tag.RowsAffected(), nil
}
