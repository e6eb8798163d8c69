package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const openCasesScanLimit = 1000

// ReconciliationService verifies ledger integrity invariants and manages
// the manual review queue.
type ReconciliationService struct {
	store ledger.Store
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store ledger.Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Imbalance describes an account whose balance disagrees with its history.
type Imbalance struct {
	AccountID uuid.UUID
	Balance   int64
	Expected  int64
}

// ExpectedBalance derives a balance from transaction totals: completed
// deposits, payouts and reversals, minus completed wagers and withdrawals,
// minus withdrawals still holding funds.
func ExpectedBalance(totals []ledger.KindTotal) int64 {
	var expected int64
	for _, t := range totals {
		switch {
		case t.Status == domain.TxStatusCompleted && domain.IsCreditKind(t.Kind):
			expected += t.Total
		case t.Status == domain.TxStatusCompleted:
			expected -= t.Total
		case t.Status == domain.TxStatusPending && t.Kind == domain.TxKindWithdrawal:
			expected -= t.Total
		}
	}
	return expected
}

// CheckAccount compares one account's balance with its transaction history
// under the account lock, so no settlement is half applied while it reads.
func (s *ReconciliationService) CheckAccount(ctx context.Context, accountID uuid.UUID) (*Imbalance, error) {
	var out *Imbalance
	err := s.store.WithAccountLock(ctx, accountID, func(tx ledger.Transactor) error {
		return tx.RunInTx(ctx, func(q ledger.Queries) error {
			acc, err := q.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			totals, err := q.SumTransactionsByKind(ctx, accountID)
			if err != nil {
				return err
			}
			if expected := ExpectedBalance(totals); expected != acc.Balance {
				out = &Imbalance{AccountID: accountID, Balance: acc.Balance, Expected: expected}
			}
			return nil
		})
	})
	return out, err
}

// Run checks conservation for every account and returns the imbalances found.
func (s *ReconciliationService) Run(ctx context.Context) ([]Imbalance, error) {
	ids, err := s.store.Queries().ListAccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var imbalances []Imbalance
	for _, id := range ids {
		imb, err := s.CheckAccount(ctx, id)
		if err != nil {
			return imbalances, fmt.Errorf("check account %s: %w", id, err)
		}
		if imb == nil {
			continue
		}
		observability.IncrementLedgerImbalance()
		zap.L().Error("CRITICAL: ledger imbalance detected",
			zap.String("account_id", id.String()),
			zap.Int64("balance", imb.Balance),
			zap.Int64("expected", imb.Expected))
		imbalances = append(imbalances, *imb)
	}

	open, err := s.store.Queries().ListReconciliationCases(ctx, domain.CaseStatusOpen, openCasesScanLimit, 0)
	if err == nil {
		observability.SetOpenCases(len(open))
	}

	if len(imbalances) == 0 {
		zap.L().Info("Ledger Balanced", zap.Int("accounts", len(ids)))
	}
	return imbalances, nil
}

func (s *ReconciliationService) ListCases(ctx context.Context, status string, page, pageSize int) ([]models.ReconciliationCase, error) {
	if status == "" {
		status = domain.CaseStatusOpen
	}
	limit, offset := pageBounds(page, pageSize, maxHistoryPageSize)
	return s.store.Queries().ListReconciliationCases(ctx, status, limit, offset)
}

// ResolveCase closes an open case with the reviewer's resolution note.
func (s *ReconciliationService) ResolveCase(ctx context.Context, caseID uuid.UUID, resolution string, actorID *uuid.UUID) (models.ReconciliationCase, error) {
	var resolved models.ReconciliationCase
	err := s.store.RunInTx(ctx, func(q ledger.Queries) error {
		var err error
		resolved, err = q.ResolveReconciliationCase(ctx, caseID, resolution)
		if err != nil {
			return err
		}
		return writeAudit(ctx, q, entityReconciliationCase, caseID, actorID, "resolved",
			domain.CaseStatusOpen, domain.CaseStatusResolved, mustJSON(map[string]string{"resolution": resolution}))
	})
	return resolved, err
}
