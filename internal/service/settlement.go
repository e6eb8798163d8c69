package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/ayo6706/wheelbet/internal/observability"
	"github.com/ayo6706/wheelbet/internal/wheel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage is how far a settlement got. Compensation depends on it.
type Stage int

const (
	StagePending Stage = iota
	StageDebited
	StageDrawn
	StageCredited
	StageRecorded
)

func (s Stage) String() string {
	switch s {
	case StageDebited:
		return "debited"
	case StageDrawn:
		return "drawn"
	case StageCredited:
		return "credited"
	case StageRecorded:
		return "recorded"
	default:
		return "pending"
	}
}

const reconciliationTimeout = 5 * time.Second

type PlaceBetRequest struct {
	AccountID     uuid.UUID
	Stake         int64
	ChosenOutcome string
}

type BetResult struct {
	BetID          uuid.UUID `json:"bet_id"`
	ChosenOutcome  string    `json:"chosen_outcome"`
	DrawnOutcome   string    `json:"drawn_outcome"`
	IsWin          bool      `json:"is_win"`
	Stake          int64     `json:"stake"`
	Payout         int64     `json:"payout"`
	WagerReference string    `json:"wager_reference"`
	Balance        int64     `json:"balance"`
	SettledAt      time.Time `json:"settled_at"`
}

// SettlementService runs bets from validated request to recorded outcome.
type SettlementService struct {
	store    ledger.Store
	drawer   wheel.Drawer
	notifier notify.Notifier
	limits   Limits
	outcomes []string
}

func NewSettlementService(store ledger.Store, drawer wheel.Drawer, notifier notify.Notifier, limits Limits) *SettlementService {
	if drawer == nil {
		drawer = wheel.CryptoDrawer{}
	}
	return &SettlementService{
		store:    store,
		drawer:   drawer,
		notifier: notifier,
		limits:   limits,
		outcomes: domain.WheelOutcomes,
	}
}

// settlement carries one saga's progress.
type settlement struct {
	req     PlaceBetRequest
	stage   Stage
	betID   uuid.UUID
	wager   models.Transaction
	drawn   string
	payout  int64
	balance int64
	at      time.Time
}

// PlaceBet validates, debits, draws, credits and records one bet while
// holding the account lock. Once the stake is debited the saga ignores
// cancellation of ctx and either completes or compensates.
func (s *SettlementService) PlaceBet(ctx context.Context, req PlaceBetRequest) (*BetResult, error) {
	if req.Stake < s.limits.MinStake || req.Stake > s.limits.MaxStake {
		return nil, fmt.Errorf("%w: stake %d must be between %d and %d", models.ErrInvalidStake, req.Stake, s.limits.MinStake, s.limits.MaxStake)
	}
	if !wheel.IsValidOutcome(s.outcomes, req.ChosenOutcome) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidOutcome, req.ChosenOutcome)
	}

	st := &settlement{req: req, betID: uuid.New()}
	err := s.store.WithAccountLock(ctx, req.AccountID, func(tx ledger.Transactor) error {
		if err := s.debit(ctx, tx, st); err != nil {
			return err
		}
		// The stake has left the account: finish or compensate regardless of ctx.
		runCtx := context.WithoutCancel(ctx)
		if err := s.settle(runCtx, tx, st); err != nil {
			return s.compensate(runCtx, tx, st, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrSettlementFailed) {
			observability.IncrementSettlementFailure()
		}
		return nil, err
	}

	result := "loss"
	if st.payout > 0 {
		result = "win"
	}
	observability.ObserveSettlement(result, req.Stake, st.payout)
	publish(ctx, s.notifier, notify.Event{
		Type:      notify.EventBetSettled,
		Bettor:    notify.Pseudonym(req.AccountID),
		Stake:     req.Stake,
		Payout:    st.payout,
		IsWin:     st.payout > 0,
		Timestamp: st.at,
	})

	return &BetResult{
		BetID:          st.betID,
		ChosenOutcome:  req.ChosenOutcome,
		DrawnOutcome:   st.drawn,
		IsWin:          st.payout > 0,
		Stake:          req.Stake,
		Payout:         st.payout,
		WagerReference: st.wager.Reference,
		Balance:        st.balance,
		SettledAt:      st.at,
	}, nil
}

// debit checks the balance, takes the stake and records the wager in one
// database transaction.
func (s *SettlementService) debit(ctx context.Context, tx ledger.Transactor, st *settlement) error {
	return tx.RunInTx(ctx, func(q ledger.Queries) error {
		acc, err := q.GetAccount(ctx, st.req.AccountID)
		if err != nil {
			return err
		}
		if acc.Balance < st.req.Stake {
			return fmt.Errorf("%w: balance %d, stake %d", models.ErrInsufficientFunds, acc.Balance, st.req.Stake)
		}
		acc, err = q.AdjustBalance(ctx, st.req.AccountID, -st.req.Stake)
		if err != nil {
			return fmt.Errorf("debit stake: %w", err)
		}
		wager, err := recordTransaction(ctx, q, ledger.CreateTransactionParams{
			AccountID: st.req.AccountID,
			Kind:      domain.TxKindWager,
			Amount:    st.req.Stake,
			Status:    domain.TxStatusCompleted,
			Reference: domain.NewReference(domain.RefPrefixWager),
			Metadata: mustJSON(map[string]any{
				"bet_id":         st.betID,
				"chosen_outcome": st.req.ChosenOutcome,
			}),
		}, nil)
		if err != nil {
			return fmt.Errorf("record wager: %w", err)
		}
		st.wager = wager
		st.balance = acc.Balance
		st.stage = StageDebited
		return nil
	})
}

// settle draws the outcome, then credits any payout and writes the bet
// record in a single database transaction.
func (s *SettlementService) settle(ctx context.Context, tx ledger.Transactor, st *settlement) error {
	drawn, err := s.drawer.Draw(s.outcomes)
	if err != nil {
		return fmt.Errorf("draw outcome: %w", err)
	}
	payout, err := wheel.ComputePayout(st.req.Stake, st.req.ChosenOutcome, drawn)
	if err != nil {
		return fmt.Errorf("compute payout: %w", err)
	}
	st.drawn, st.payout = drawn, payout
	st.stage = StageDrawn

	balance := st.balance
	err = tx.RunInTx(ctx, func(q ledger.Queries) error {
		var payoutTxID *uuid.UUID
		if payout > 0 {
			acc, err := q.AdjustBalance(ctx, st.req.AccountID, payout)
			if err != nil {
				return fmt.Errorf("credit payout: %w", err)
			}
			payoutTx, err := recordTransaction(ctx, q, ledger.CreateTransactionParams{
				AccountID: st.req.AccountID,
				Kind:      domain.TxKindPayout,
				Amount:    payout,
				Status:    domain.TxStatusCompleted,
				Reference: domain.NewReference(domain.RefPrefixPayout),
				Metadata: mustJSON(map[string]any{
					"bet_id":          st.betID,
					"wager_reference": st.wager.Reference,
				}),
			}, nil)
			if err != nil {
				return fmt.Errorf("record payout: %w", err)
			}
			payoutTxID = &payoutTx.ID
			balance = acc.Balance
			st.stage = StageCredited
		}

		bet, err := q.CreateBet(ctx, ledger.CreateBetParams{
			ID:                  st.betID,
			AccountID:           st.req.AccountID,
			Stake:               st.req.Stake,
			ChosenOutcome:       st.req.ChosenOutcome,
			DrawnOutcome:        drawn,
			IsWin:               payout > 0,
			Payout:              payout,
			WagerTransactionID:  st.wager.ID,
			PayoutTransactionID: payoutTxID,
		})
		if err != nil {
			return fmt.Errorf("record bet: %w", err)
		}
		st.at = bet.CreatedAt
		return nil
	})
	if err != nil {
		// Nothing in the failed transaction survived, including any credit.
		st.stage = StageDrawn
		return err
	}
	st.balance = balance
	st.stage = StageRecorded
	return nil
}

// compensate returns the stake after a failure past the debit. The refund,
// its reversal record and the wager's reversed_by marker commit together.
// If that fails too the anomaly is filed for manual reconciliation.
func (s *SettlementService) compensate(ctx context.Context, tx ledger.Transactor, st *settlement, cause error) error {
	logger := zap.L().With(
		zap.String("account_id", st.req.AccountID.String()),
		zap.String("wager_reference", st.wager.Reference),
		zap.String("stage", st.stage.String()),
	)
	logger.Error("settlement failed after debit, compensating", zap.Error(cause))

	reversalRef := domain.NewReference(domain.RefPrefixReversal)
	err := tx.RunInTx(ctx, func(q ledger.Queries) error {
		if _, err := q.AdjustBalance(ctx, st.req.AccountID, st.req.Stake); err != nil {
			return fmt.Errorf("refund stake: %w", err)
		}
		if _, err := recordTransaction(ctx, q, ledger.CreateTransactionParams{
			AccountID: st.req.AccountID,
			Kind:      domain.TxKindReversal,
			Amount:    st.req.Stake,
			Status:    domain.TxStatusCompleted,
			Reference: reversalRef,
			Metadata: mustJSON(map[string]any{
				"wager_reference":      st.wager.Reference,
				"wager_transaction_id": st.wager.ID,
				"stage":                st.stage.String(),
				"cause":                cause.Error(),
			}),
		}, nil); err != nil {
			return fmt.Errorf("record reversal: %w", err)
		}
		_, err := transitionTransaction(ctx, q, st.wager.ID, domain.TxStatusCompleted, nil, "reversed",
			mustJSON(map[string]string{"reversed_by": reversalRef}))
		return err
	})
	if err != nil {
		observability.IncrementCompensation(st.stage.String(), "failed")
		logger.Error("compensation failed, manual reconciliation required",
			zap.Int64("stake", st.req.Stake),
			zap.NamedError("cause", cause),
			zap.Error(err))
		s.fileCase(ctx, st, cause, err)
		return fmt.Errorf("%w: %v (compensation failed: %v)", models.ErrSettlementFailed, cause, err)
	}

	observability.IncrementCompensation(st.stage.String(), "compensated")
	logger.Warn("settlement compensated", zap.String("reversal_reference", reversalRef))
	return fmt.Errorf("%w: %v", models.ErrSettlementFailed, cause)
}

func (s *SettlementService) fileCase(ctx context.Context, st *settlement, cause, compErr error) {
	ctx, cancel := context.WithTimeout(ctx, reconciliationTimeout)
	defer cancel()
	_, err := s.store.Queries().CreateReconciliationCase(ctx, ledger.CreateReconciliationCaseParams{
		ID:        uuid.New(),
		AccountID: st.req.AccountID,
		Reason:    "settlement_compensation_failed",
		Reference: st.wager.Reference,
		Amount:    st.req.Stake,
		Details: mustJSON(map[string]string{
			"stage":              st.stage.String(),
			"bet_id":             st.betID.String(),
			"cause":              cause.Error(),
			"compensation_error": compErr.Error(),
		}),
	})
	if err != nil {
		zap.L().Error("failed to file reconciliation case",
			zap.String("account_id", st.req.AccountID.String()),
			zap.String("wager_reference", st.wager.Reference),
			zap.Error(err))
	}
}
