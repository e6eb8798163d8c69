package service

import (
	"context"
	"time"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/google/uuid"
)

const maxHistoryPageSize = 100

type AccountService struct {
	store ledger.Store
}

func NewAccountService(store ledger.Store) *AccountService {
	return &AccountService{store: store}
}

// CreateAccount opens an account with a zero balance.
func (s *AccountService) CreateAccount(ctx context.Context) (models.Account, error) {
	return s.store.Queries().CreateAccount(ctx, uuid.New())
}

func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return s.store.Queries().GetAccount(ctx, accountID)
}

// History lists the account's transactions, newest first.
func (s *AccountService) History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.Transaction, error) {
	limit, offset := pageBounds(page, pageSize, maxHistoryPageSize)
	return s.store.Queries().ListTransactionsByAccount(ctx, ledger.ListByAccountParams{
		AccountID: accountID,
		Limit:     limit,
		Offset:    offset,
	})
}

// BetHistory lists the account's bets, newest first.
func (s *AccountService) BetHistory(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.BetRecord, error) {
	limit, offset := pageBounds(page, pageSize, maxHistoryPageSize)
	return s.store.Queries().ListBetsByAccount(ctx, ledger.ListByAccountParams{
		AccountID: accountID,
		Limit:     limit,
		Offset:    offset,
	})
}

// FeedEntry is a bet as shown on the public live feed.
type FeedEntry struct {
	Bettor        string    `json:"bettor"`
	ChosenOutcome string    `json:"chosen_outcome"`
	DrawnOutcome  string    `json:"drawn_outcome"`
	Stake         int64     `json:"stake"`
	Payout        int64     `json:"payout"`
	IsWin         bool      `json:"is_win"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecentBets returns the latest bets across all accounts, anonymised.
func (s *AccountService) RecentBets(ctx context.Context, limit int) ([]FeedEntry, error) {
	if limit < 1 {
		limit = domain.DefaultRecentBetsLimit
	}
	if limit > domain.MaxRecentBetsLimit {
		limit = domain.MaxRecentBetsLimit
	}
	bets, err := s.store.Queries().ListRecentBets(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	out := make([]FeedEntry, 0, len(bets))
	for _, b := range bets {
		out = append(out, FeedEntry{
			Bettor:        notify.Pseudonym(b.AccountID),
			ChosenOutcome: b.ChosenOutcome,
			DrawnOutcome:  b.DrawnOutcome,
			Stake:         b.Stake,
			Payout:        b.Payout,
			IsWin:         b.IsWin,
			CreatedAt:     b.CreatedAt,
		})
	}
	return out, nil
}
