package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/gateway"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/ayo6706/wheelbet/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithdrawalOutcome is the resolved state of a withdrawal. A failed transfer
// is reported here, not as an error. Amount is kobo.
type WithdrawalOutcome struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Message   string `json:"message"`
}

// InitiateWithdrawal holds the amount, asks the gateway to transfer it and
// either completes the withdrawal or returns the funds. The account stays
// locked for the whole sequence.
func (s *FundsService) InitiateWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64, destinationID uuid.UUID) (*WithdrawalOutcome, error) {
	if amount < s.limits.MinWithdrawal {
		return nil, fmt.Errorf("%w: minimum withdrawal is %d kobo", models.ErrInvalidAmount, s.limits.MinWithdrawal)
	}
	dest, err := s.store.Queries().GetDestination(ctx, destinationID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrDestinationNotFound
		}
		return nil, err
	}
	if dest.AccountID != accountID {
		return nil, models.ErrDestinationNotFound
	}
	if dest.Kind != domain.DestinationKindBank {
		return nil, fmt.Errorf("%w: withdrawals go to bank accounts only", models.ErrDestinationNotFound)
	}

	var outcome *WithdrawalOutcome
	err = s.store.WithAccountLock(ctx, accountID, func(tx ledger.Transactor) error {
		var pending models.Transaction
		err := tx.RunInTx(ctx, func(q ledger.Queries) error {
			acc, err := q.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			if acc.Balance < amount {
				return fmt.Errorf("%w: balance %d, amount %d", models.ErrInsufficientFunds, acc.Balance, amount)
			}
			if _, err := q.AdjustBalance(ctx, accountID, -amount); err != nil {
				return fmt.Errorf("hold withdrawal: %w", err)
			}
			pending, err = recordTransaction(ctx, q, ledger.CreateTransactionParams{
				AccountID: accountID,
				Kind:      domain.TxKindWithdrawal,
				Amount:    amount,
				Status:    domain.TxStatusPending,
				Reference: domain.NewReference(domain.RefPrefixWithdrawal),
				Metadata: mustJSON(map[string]string{
					"destination_id": dest.ID.String(),
					"bank_code":      dest.BankCode,
					"display_name":   dest.DisplayName,
				}),
			}, &accountID)
			return err
		})
		if err != nil {
			return err
		}

		// Funds are held: resolve the withdrawal whatever happens to ctx.
		runCtx := context.WithoutCancel(ctx)
		gctx, cancel := s.gatewayCtx(runCtx)
		res, gwErr := s.gateway.Transfer(gctx, gateway.TransferRequest{
			Reference:     pending.Reference,
			Amount:        amount,
			AccountNumber: dest.ExternalAccountRef,
			BankCode:      dest.BankCode,
			Narration:     "Wallet withdrawal",
		})
		cancel()

		outcome, err = s.resolveWithdrawal(runCtx, tx, pending, res, gwErr)
		return err
	})
	if err != nil {
		return nil, err
	}

	evt := notify.EventWithdrawalComplete
	if outcome.Status == domain.TxStatusFailed {
		evt = notify.EventWithdrawalFailed
	}
	observability.IncrementFundsOperation("withdrawal", outcome.Status)
	publish(ctx, s.notifier, notify.Event{
		Type:      evt,
		Bettor:    notify.Pseudonym(accountID),
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	})
	return outcome, nil
}

func (s *FundsService) resolveWithdrawal(ctx context.Context, tx ledger.Transactor, pending models.Transaction, res gateway.TransferResult, gwErr error) (*WithdrawalOutcome, error) {
	succeeded := gwErr == nil && (res.Status == gateway.TransferSuccess || res.Status == gateway.TransferProcessing)
	if succeeded {
		var done models.Transaction
		err := tx.RunInTx(ctx, func(q ledger.Queries) error {
			var err error
			done, err = transitionTransaction(ctx, q, pending.ID, domain.TxStatusCompleted, nil, "completed",
				mustJSON(map[string]string{"transfer_status": string(res.Status), "gateway_reference": res.Reference}))
			return err
		})
		if err != nil {
			s.fileWithdrawalCase(ctx, pending, "withdrawal_completion_failed", err)
			return nil, fmt.Errorf("complete withdrawal %s: %w", pending.Reference, err)
		}
		return &WithdrawalOutcome{Reference: done.Reference, Status: done.Status, Amount: done.Amount, Message: "Withdrawal sent"}, nil
	}

	reason := string(res.Status)
	if gwErr != nil {
		reason = gwErr.Error()
	}
	zap.L().Warn("withdrawal transfer failed, returning funds",
		zap.String("account_id", pending.AccountID.String()),
		zap.String("reference", pending.Reference),
		zap.String("reason", reason))

	var failed models.Transaction
	err := tx.RunInTx(ctx, func(q ledger.Queries) error {
		if _, err := q.AdjustBalance(ctx, pending.AccountID, pending.Amount); err != nil {
			return fmt.Errorf("return withdrawal funds: %w", err)
		}
		var err error
		failed, err = transitionTransaction(ctx, q, pending.ID, domain.TxStatusFailed, nil, "failed",
			mustJSON(map[string]string{"reason": reason, "compensated": "true"}))
		return err
	})
	if err != nil {
		zap.L().Error("withdrawal compensation failed, manual reconciliation required",
			zap.String("reference", pending.Reference),
			zap.Error(err))
		s.fileWithdrawalCase(ctx, pending, "withdrawal_compensation_failed", err)
		return nil, fmt.Errorf("%w: withdrawal %s could not be reversed: %v", models.ErrSettlementFailed, pending.Reference, err)
	}
	return &WithdrawalOutcome{Reference: failed.Reference, Status: failed.Status, Amount: failed.Amount, Message: "Transfer failed, funds returned"}, nil
}

func (s *FundsService) fileWithdrawalCase(ctx context.Context, pending models.Transaction, reason string, cause error) {
	ctx, cancel := context.WithTimeout(ctx, reconciliationTimeout)
	defer cancel()
	if _, err := s.store.Queries().CreateReconciliationCase(ctx, ledger.CreateReconciliationCaseParams{
		ID:        uuid.New(),
		AccountID: pending.AccountID,
		Reason:    reason,
		Reference: pending.Reference,
		Amount:    pending.Amount,
		Details:   mustJSON(map[string]string{"error": cause.Error()}),
	}); err != nil {
		zap.L().Error("failed to file reconciliation case",
			zap.String("reference", pending.Reference),
			zap.Error(err))
	}
}
