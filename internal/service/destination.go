package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/gateway"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

// DestinationService manages where an account's withdrawals are paid. At most
// one destination per account is the default; the operations below keep it
// that way.
type DestinationService struct {
	store   ledger.Store
	gateway gateway.Gateway
}

func NewDestinationService(store ledger.Store, gw gateway.Gateway) *DestinationService {
	return &DestinationService{store: store, gateway: gw}
}

// AddBankAccount verifies the account with the gateway and saves it. The
// first destination of an account becomes its default.
func (s *DestinationService) AddBankAccount(ctx context.Context, accountID uuid.UUID, accountNumber, bankCode string) (models.PaymentDestination, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	bankCode = strings.TrimSpace(bankCode)

	resolved, err := s.gateway.ValidateDestination(ctx, gateway.Destination{AccountNumber: accountNumber, BankCode: bankCode})
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidDestination) {
			return models.PaymentDestination{}, models.ErrDestinationInvalid
		}
		return models.PaymentDestination{}, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	var dest models.PaymentDestination
	err = s.store.WithAccountLock(ctx, accountID, func(tx ledger.Transactor) error {
		return tx.RunInTx(ctx, func(q ledger.Queries) error {
			existing, err := q.ListDestinations(ctx, accountID)
			if err != nil {
				return err
			}
			for _, d := range existing {
				if d.Kind == domain.DestinationKindBank && d.ExternalAccountRef == resolved.AccountNumber {
					return models.ErrDestinationExists
				}
			}
			dest, err = q.CreateDestination(ctx, ledger.CreateDestinationParams{
				ID:                 uuid.New(),
				AccountID:          accountID,
				Kind:               domain.DestinationKindBank,
				ExternalAccountRef: resolved.AccountNumber,
				DisplayName:        resolved.AccountName,
				BankCode:           resolved.BankCode,
				BankName:           resolved.BankName,
				IsDefault:          len(existing) == 0,
			})
			if err != nil {
				return err
			}
			return writeAudit(ctx, q, entityDestination, dest.ID, &accountID, "created", "", "", nil)
		})
	})
	return dest, err
}

func (s *DestinationService) List(ctx context.Context, accountID uuid.UUID) ([]models.PaymentDestination, error) {
	return s.store.Queries().ListDestinations(ctx, accountID)
}

func (s *DestinationService) owned(ctx context.Context, q ledger.Queries, accountID, destinationID uuid.UUID) (models.PaymentDestination, error) {
	d, err := q.GetDestination(ctx, destinationID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return d, models.ErrDestinationNotFound
		}
		return d, err
	}
	if d.AccountID != accountID {
		return d, models.ErrDestinationNotFound
	}
	return d, nil
}

// Delete removes a destination. Removing the default promotes the oldest
// remaining destination.
func (s *DestinationService) Delete(ctx context.Context, accountID, destinationID uuid.UUID) error {
	return s.store.WithAccountLock(ctx, accountID, func(tx ledger.Transactor) error {
		return tx.RunInTx(ctx, func(q ledger.Queries) error {
			d, err := s.owned(ctx, q, accountID, destinationID)
			if err != nil {
				return err
			}
			n, err := q.DeleteDestination(ctx, d.ID)
			if err != nil {
				return err
			}
			if n != 1 {
				return models.ErrDestinationNotFound
			}
			if d.IsDefault {
				rest, err := q.ListDestinations(ctx, accountID)
				if err != nil {
					return err
				}
				if len(rest) > 0 {
					if _, err := q.SetDefaultDestination(ctx, rest[0].ID); err != nil {
						return err
					}
				}
			}
			return writeAudit(ctx, q, entityDestination, d.ID, &accountID, "deleted", "", "", nil)
		})
	})
}

// SetDefault makes destinationID the only default destination of the account.
func (s *DestinationService) SetDefault(ctx context.Context, accountID, destinationID uuid.UUID) error {
	return s.store.WithAccountLock(ctx, accountID, func(tx ledger.Transactor) error {
		return tx.RunInTx(ctx, func(q ledger.Queries) error {
			d, err := s.owned(ctx, q, accountID, destinationID)
			if err != nil {
				return err
			}
			if err := q.ClearDefaultDestinations(ctx, accountID); err != nil {
				return err
			}
			n, err := q.SetDefaultDestination(ctx, d.ID)
			if err != nil {
				return err
			}
			if err := requireExactlyOne(n, "set default destination"); err != nil {
				return err
			}
			return writeAudit(ctx, q, entityDestination, d.ID, &accountID, "set_default", "", "", nil)
		})
	})
}

func (s *DestinationService) ListBanks(ctx context.Context) ([]gateway.Bank, error) {
	banks, err := s.gateway.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}
	return banks, nil
}
