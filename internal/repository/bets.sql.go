package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const betColumns = `id, account_id, stake, chosen_outcome, drawn_outcome, is_win, payout, wager_transaction_id, payout_transaction_id, created_at`

func scanBet(row rowScanner) (models.BetRecord, error) {
	var b models.BetRecord
	var payoutTx pgtype.UUID
	err := row.Scan(&b.ID, &b.AccountID, &b.Stake, &b.ChosenOutcome, &b.DrawnOutcome, &b.IsWin, &b.Payout, &b.WagerTransactionID, &payoutTx, &b.CreatedAt)
	if err == nil && payoutTx.Valid {
		id := uuid.UUID(payoutTx.Bytes)
		b.PayoutTransactionID = &id
	}
	return b, err
}

func collectBets(rows pgx.Rows) ([]models.BetRecord, error) {
	defer rows.Close()
	var out []models.BetRecord
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const createBet = `
INSERT INTO bet_records (id, account_id, stake, chosen_outcome, drawn_outcome, is_win, payout, wager_transaction_id, payout_transaction_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + betColumns

func (q *Queries) CreateBet(ctx context.Context, arg ledger.CreateBetParams) (models.BetRecord, error) {
	var payoutTx pgtype.UUID
	if arg.PayoutTransactionID != nil {
		payoutTx = pgtype.UUID{Bytes: *arg.PayoutTransactionID, Valid: true}
	}
	createdAt := arg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	b, err := scanBet(q.db.QueryRow(ctx, createBet,
		arg.ID, arg.AccountID, arg.Stake, arg.ChosenOutcome, arg.DrawnOutcome, arg.IsWin, arg.Payout, arg.WagerTransactionID, payoutTx, createdAt,
	))
	if err != nil {
		return b, fmt.Errorf("failed to create bet record: %w", err)
	}
	return b, nil
}

const getBet = `SELECT ` + betColumns + ` FROM bet_records WHERE id = $1`

func (q *Queries) GetBet(ctx context.Context, id uuid.UUID) (models.BetRecord, error) {
	b, err := scanBet(q.db.QueryRow(ctx, getBet, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return b, models.ErrNotFound
		}
		return b, fmt.Errorf("failed to get bet record: %w", err)
	}
	return b, nil
}

const listBetsByAccount = `
SELECT ` + betColumns + `
FROM bet_records
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListBetsByAccount(ctx context.Context, arg ledger.ListByAccountParams) ([]models.BetRecord, error) {
	rows, err := q.db.Query(ctx, listBetsByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return collectBets(rows)
}

const listRecentBets = `
SELECT ` + betColumns + `
FROM bet_records
ORDER BY created_at DESC, id DESC
LIMIT $1`

func (q *Queries) ListRecentBets(ctx context.Context, limit int32) ([]models.BetRecord, error) {
	rows, err := q.db.Query(ctx, listRecentBets, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bets: %w", err)
	}
	return collectBets(rows)
}
