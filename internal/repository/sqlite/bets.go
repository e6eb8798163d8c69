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

const betColumns = `id, account_id, stake, chosen_outcome, drawn_outcome, is_win, payout, wager_transaction_id, payout_transaction_id, created_at`

func scanBet(row rowScanner) (models.BetRecord, error) {
	var b models.BetRecord
	var payoutTx sql.NullString
	var created int64
	err := row.Scan(&b.ID, &b.AccountID, &b.Stake, &b.ChosenOutcome, &b.DrawnOutcome, &b.IsWin, &b.Payout, &b.WagerTransactionID, &payoutTx, &created)
	if err != nil {
		return b, err
	}
	b.CreatedAt = fromNanos(created)
	if payoutTx.Valid {
		id, err := uuid.Parse(payoutTx.String)
		if err != nil {
			return b, fmt.Errorf("parse payout transaction id: %w", err)
		}
		b.PayoutTransactionID = &id
	}
	return b, nil
}

func collectBets(rows *sql.Rows) ([]models.BetRecord, error) {
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
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBet(ctx context.Context, arg ledger.CreateBetParams) (models.BetRecord, error) {
	var payoutTx any
	if arg.PayoutTransactionID != nil {
		payoutTx = arg.PayoutTransactionID.String()
	}
	createdAt := arg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := q.db.ExecContext(ctx, createBet,
		arg.ID, arg.AccountID, arg.Stake, arg.ChosenOutcome, arg.DrawnOutcome, arg.IsWin, arg.Payout, arg.WagerTransactionID, payoutTx, nanos(createdAt),
	)
	if err != nil {
		return models.BetRecord{}, fmt.Errorf("failed to create bet record: %w", err)
	}
	return models.BetRecord{
		ID:                  arg.ID,
		AccountID:           arg.AccountID,
		Stake:               arg.Stake,
		ChosenOutcome:       arg.ChosenOutcome,
		DrawnOutcome:        arg.DrawnOutcome,
		IsWin:               arg.IsWin,
		Payout:              arg.Payout,
		WagerTransactionID:  arg.WagerTransactionID,
		PayoutTransactionID: arg.PayoutTransactionID,
		CreatedAt:           fromNanos(nanos(createdAt)),
	}, nil
}

const getBet = `SELECT ` + betColumns + ` FROM bet_records WHERE id = ?`

func (q *Queries) GetBet(ctx context.Context, id uuid.UUID) (models.BetRecord, error) {
	b, err := scanBet(q.db.QueryRowContext(ctx, getBet, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, models.ErrNotFound
		}
		return b, fmt.Errorf("failed to get bet record: %w", err)
	}
	return b, nil
}

const listBetsByAccount = `
SELECT ` + betColumns + `
FROM bet_records
WHERE account_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

func (q *Queries) ListBetsByAccount(ctx context.Context, arg ledger.ListByAccountParams) ([]models.BetRecord, error) {
	rows, err := q.db.QueryContext(ctx, listBetsByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return collectBets(rows)
}

const listRecentBets = `
SELECT ` + betColumns + `
FROM bet_records
ORDER BY created_at DESC, rowid DESC
LIMIT ?`

func (q *Queries) ListRecentBets(ctx context.Context, limit int32) ([]models.BetRecord, error) {
	rows, err := q.db.QueryContext(ctx, listRecentBets, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bets: %w", err)
	}
	return collectBets(rows)
}
