package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

const defaultGatewayTimeout = 30 * time.Second

// FundsService moves money between the ledger and the payment gateway.
type FundsService struct {
	store          ledger.Store
	gateway        gateway.Gateway
	notifier       notify.Notifier
	limits         Limits
	gatewayTimeout time.Duration
}

func NewFundsService(store ledger.Store, gw gateway.Gateway, notifier notify.Notifier, limits Limits, gatewayTimeout time.Duration) *FundsService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = defaultGatewayTimeout
	}
	return &FundsService{
		store:          store,
		gateway:        gw,
		notifier:       notifier,
		limits:         limits,
		gatewayTimeout: gatewayTimeout,
	}
}

type DepositInit struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
}

// DepositOutcome is the recorded state of a deposit. Amount is kobo.
type DepositOutcome struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Message   string `json:"message"`
}

// gatewayCtx bounds a collaborator call. It is detached from the caller so
// an abandoned request cannot cut a money movement in half.
func (s *FundsService) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.gatewayTimeout)
}

// InitiateDeposit records a pending deposit and opens a gateway checkout
// for it. The balance is untouched until the deposit is confirmed.
func (s *FundsService) InitiateDeposit(ctx context.Context, accountID uuid.UUID, amount int64, payer gateway.Payer) (*DepositInit, error) {
	if amount < s.limits.MinDeposit {
		return nil, fmt.Errorf("%w: minimum deposit is %d kobo", models.ErrInvalidAmount, s.limits.MinDeposit)
	}
	if _, err := s.store.Queries().GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	reference := domain.NewReference(domain.RefPrefixDeposit)
	var txID uuid.UUID
	err := s.store.RunInTx(ctx, func(q ledger.Queries) error {
		tx, err := recordTransaction(ctx, q, ledger.CreateTransactionParams{
			AccountID: accountID,
			Kind:      domain.TxKindDeposit,
			Amount:    amount,
			Status:    domain.TxStatusPending,
			Reference: reference,
		}, &accountID)
		txID = tx.ID
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record deposit: %w", err)
	}

	gctx, cancel := s.gatewayCtx(ctx)
	defer cancel()
	res, gwErr := s.gateway.InitTransaction(gctx, gateway.InitRequest{
		Reference:   reference,
		Amount:      amount,
		Payer:       payer,
		Description: "Wallet funding",
	})

	next, action := domain.TxStatusPending, "checkout_opened"
	meta := map[string]string{"checkout_url": res.CheckoutURL}
	if gwErr != nil {
		next, action = domain.TxStatusFailed, "failed"
		meta = map[string]string{"reason": "gateway_init_failed", "error": gwErr.Error()}
	}
	err = s.store.RunInTx(ctx, func(q ledger.Queries) error {
		_, err := transitionTransaction(ctx, q, txID, next, nil, action, mustJSON(meta))
		return err
	})
	if gwErr != nil {
		observability.IncrementFundsOperation("deposit", "init_failed")
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, gwErr)
	}
	if err != nil {
		return nil, fmt.Errorf("record checkout: %w", err)
	}

	return &DepositInit{Reference: reference, CheckoutURL: res.CheckoutURL, Amount: amount}, nil
}

// ConfirmDeposit settles a deposit from the gateway's view of it. It is safe
// to call any number of times: a terminal deposit returns its recorded
// outcome and the balance is credited at most once. accountID, when set,
// must own the deposit.
func (s *FundsService) ConfirmDeposit(ctx context.Context, accountID *uuid.UUID, reference string) (*DepositOutcome, error) {
	reference = strings.TrimSpace(reference)
	tx, err := s.store.Queries().GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.Kind != domain.TxKindDeposit || (accountID != nil && tx.AccountID != *accountID) {
		return nil, models.ErrNotFound
	}
	if domain.IsTerminalStatus(tx.Status) {
		return depositOutcome(tx), nil
	}

	gctx, cancel := s.gatewayCtx(ctx)
	info, err := s.gateway.QueryTransaction(gctx, reference)
	cancel()
	if err != nil {
		zap.L().Warn("deposit status query failed",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	var result models.Transaction
	credited := false
	err = s.store.WithAccountLock(ctx, tx.AccountID, func(t ledger.Transactor) error {
		return t.RunInTx(ctx, func(q ledger.Queries) error {
			cur, err := q.GetTransactionForUpdate(ctx, tx.ID)
			if err != nil {
				return err
			}
			if domain.IsTerminalStatus(cur.Status) {
				result = cur
				return nil
			}

			switch info.Status {
			case gateway.PaymentPaid:
				if info.Amount != cur.Amount {
					result, err = s.failMismatchedDeposit(ctx, q, cur, info)
					return err
				}
				if _, err := q.AdjustBalance(ctx, cur.AccountID, cur.Amount); err != nil {
					return fmt.Errorf("credit deposit: %w", err)
				}
				meta := map[string]any{
					"gateway_status": string(info.Status),
					"payment_method": info.PaymentMethod,
				}
				if info.PaidAt != nil {
					meta["paid_at"] = info.PaidAt.UTC().Format(time.RFC3339)
				}
				result, err = transitionTransaction(ctx, q, cur.ID, domain.TxStatusCompleted, nil, "completed", mustJSON(meta))
				if err != nil {
					return err
				}
				credited = true
				if info.PaymentMethod == gateway.PaymentMethodCard && info.Card != nil && info.Card.Last4 != "" {
					return saveCardDestination(ctx, q, cur.AccountID, info.Card)
				}
				return nil
			case gateway.PaymentPending:
				result = cur
				return nil
			default:
				result, err = transitionTransaction(ctx, q, cur.ID, domain.TxStatusFailed, nil, "failed",
					mustJSON(map[string]string{"gateway_status": string(info.Status)}))
				return err
			}
		})
	})
	if err != nil {
		return nil, err
	}

	if credited {
		observability.IncrementFundsOperation("deposit", "completed")
		publish(ctx, s.notifier, notify.Event{
			Type:      notify.EventDepositCompleted,
			Bettor:    notify.Pseudonym(result.AccountID),
			Amount:    result.Amount,
			Timestamp: result.UpdatedAt,
		})
	} else if result.Status == domain.TxStatusFailed {
		observability.IncrementFundsOperation("deposit", "failed")
	}
	return depositOutcome(result), nil
}

// failMismatchedDeposit refuses a payment whose amount differs from the
// amount requested and files it for manual review.
func (s *FundsService) failMismatchedDeposit(ctx context.Context, q ledger.Queries, cur models.Transaction, info gateway.PaymentInfo) (models.Transaction, error) {
	zap.L().Error("deposit amount mismatch",
		zap.String("reference", cur.Reference),
		zap.Int64("expected", cur.Amount),
		zap.Int64("paid", info.Amount))

	if _, err := q.CreateReconciliationCase(ctx, ledger.CreateReconciliationCaseParams{
		ID:        uuid.New(),
		AccountID: cur.AccountID,
		Reason:    "deposit_amount_mismatch",
		Reference: cur.Reference,
		Amount:    info.Amount,
		Details: mustJSON(map[string]int64{
			"expected_amount": cur.Amount,
			"gateway_amount":  info.Amount,
		}),
	}); err != nil {
		return cur, err
	}
	return transitionTransaction(ctx, q, cur.ID, domain.TxStatusFailed, nil, "amount_mismatch",
		mustJSON(map[string]any{"gateway_status": string(info.Status), "gateway_amount": info.Amount}))
}

func saveCardDestination(ctx context.Context, q ledger.Queries, accountID uuid.UUID, card *gateway.CardDetails) error {
	existing, err := q.ListDestinations(ctx, accountID)
	if err != nil {
		return err
	}
	ref := cardRef(card.Last4)
	for _, d := range existing {
		if d.Kind == domain.DestinationKindCard && d.ExternalAccountRef == ref {
			return nil
		}
	}
	cardType := strings.ToUpper(card.CardType)
	if cardType == "" {
		cardType = "CARD"
	}
	d, err := q.CreateDestination(ctx, ledger.CreateDestinationParams{
		ID:                 uuid.New(),
		AccountID:          accountID,
		Kind:               domain.DestinationKindCard,
		ExternalAccountRef: ref,
		DisplayName:        fmt.Sprintf("%s ****%s", cardType, card.Last4),
		BankName:           cardType,
		IsDefault:          len(existing) == 0,
	})
	if err != nil {
		return fmt.Errorf("save card: %w", err)
	}
	return writeAudit(ctx, q, entityDestination, d.ID, &accountID, "card_saved", "", "", nil)
}

func cardRef(last4 string) string {
	return "card_" + last4
}

func depositOutcome(tx models.Transaction) *DepositOutcome {
	out := &DepositOutcome{Reference: tx.Reference, Status: tx.Status, Amount: tx.Amount}
	switch tx.Status {
	case domain.TxStatusCompleted:
		out.Message = "Deposit confirmed"
	case domain.TxStatusFailed:
		out.Message = "Deposit failed"
	default:
		out.Message = "Awaiting payment"
	}
	return out
}

// SweepStaleDeposits re-confirms deposits pending since before now-age. It
// returns how many reached a terminal status.
func (s *FundsService) SweepStaleDeposits(ctx context.Context, age time.Duration, limit int32) (int, error) {
	stale, err := s.store.Queries().ListStalePendingDeposits(ctx, time.Now().Add(-age), limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, tx := range stale {
		out, err := s.ConfirmDeposit(ctx, nil, tx.Reference)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return settled, err
			}
			zap.L().Warn("stale deposit sweep: confirm failed",
				zap.String("reference", tx.Reference),
				zap.Error(err))
			continue
		}
		if domain.IsTerminalStatus(out.Status) {
			settled++
		}
	}
	return settled, nil
}
