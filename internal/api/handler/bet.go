package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayo6706/wheelbet/internal/api/problem"
	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/ayo6706/wheelbet/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BetHandler struct {
	settlement *service.SettlementService
	accounts   *service.AccountService
}

func NewBetHandler(settlement *service.SettlementService, accounts *service.AccountService) *BetHandler {
	return &BetHandler{settlement: settlement, accounts: accounts}
}

type PlaceBetRequest struct {
	Stake         decimal.Decimal `json:"stake"`
	ChosenOutcome string          `json:"chosen_outcome"`
}

type BetResponse struct {
	BetID          uuid.UUID       `json:"bet_id"`
	ChosenOutcome  string          `json:"chosen_outcome"`
	DrawnOutcome   string          `json:"drawn_outcome"`
	IsWin          bool            `json:"is_win"`
	Stake          decimal.Decimal `json:"stake"`
	Payout         decimal.Decimal `json:"payout"`
	Balance        decimal.Decimal `json:"balance"`
	StakeKobo      int64           `json:"stake_kobo"`
	PayoutKobo     int64           `json:"payout_kobo"`
	BalanceKobo    int64           `json:"balance_kobo"`
	WagerReference string          `json:"wager_reference"`
	SettledAt      time.Time       `json:"settled_at"`
}

// PlaceBet handles POST /v1/bets.
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	var req PlaceBetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Bounds and the outcome are checked by the service, stake first.
	stake, err := stakeKobo(req.Stake)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}

	res, err := h.settlement.PlaceBet(r.Context(), service.PlaceBetRequest{
		AccountID:     accountID,
		Stake:         stake,
		ChosenOutcome: req.ChosenOutcome,
	})
	if err != nil {
		problem.FromError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, BetResponse{
		BetID:          res.BetID,
		ChosenOutcome:  res.ChosenOutcome,
		DrawnOutcome:   res.DrawnOutcome,
		IsWin:          res.IsWin,
		Stake:          naira(res.Stake),
		Payout:         naira(res.Payout),
		Balance:        naira(res.Balance),
		StakeKobo:      res.Stake,
		PayoutKobo:     res.Payout,
		BalanceKobo:    res.Balance,
		WagerReference: res.WagerReference,
		SettledAt:      res.SettledAt,
	})
}

func stakeKobo(stake decimal.Decimal) (int64, error) {
	if !stake.IsPositive() {
		return 0, fmt.Errorf("%w: stake must be greater than zero", models.ErrInvalidStake)
	}
	m, err := domain.FromNaira(stake)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidStake, err)
	}
	return m.Kobo(), nil
}

type BetHistoryEntry struct {
	ID            uuid.UUID       `json:"id"`
	ChosenOutcome string          `json:"chosen_outcome"`
	DrawnOutcome  string          `json:"drawn_outcome"`
	IsWin         bool            `json:"is_win"`
	Stake         decimal.Decimal `json:"stake"`
	Payout        decimal.Decimal `json:"payout"`
	CreatedAt     time.Time       `json:"created_at"`
}

// History handles GET /v1/bets/history.
func (h *BetHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requestAccount(w, r)
	if !ok {
		return
	}
	bets, err := h.accounts.BetHistory(r.Context(), accountID, queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	out := make([]BetHistoryEntry, 0, len(bets))
	for _, b := range bets {
		out = append(out, BetHistoryEntry{
			ID:            b.ID,
			ChosenOutcome: b.ChosenOutcome,
			DrawnOutcome:  b.DrawnOutcome,
			IsWin:         b.IsWin,
			Stake:         naira(b.Stake),
			Payout:        naira(b.Payout),
			CreatedAt:     b.CreatedAt,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{"bets": out})
}

type FeedEntry struct {
	Bettor        string          `json:"bettor"`
	ChosenOutcome string          `json:"chosen_outcome"`
	DrawnOutcome  string          `json:"drawn_outcome"`
	IsWin         bool            `json:"is_win"`
	Stake         decimal.Decimal `json:"stake"`
	Payout        decimal.Decimal `json:"payout"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LiveFeed handles GET /v1/bets/live-feed. It is public and carries no
// account ids.
func (h *BetHandler) LiveFeed(w http.ResponseWriter, r *http.Request) {
	entries, err := h.accounts.RecentBets(r.Context(), queryInt(r, "limit"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	out := make([]FeedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FeedEntry{
			Bettor:        e.Bettor,
			ChosenOutcome: e.ChosenOutcome,
			DrawnOutcome:  e.DrawnOutcome,
			IsWin:         e.IsWin,
			Stake:         naira(e.Stake),
			Payout:        naira(e.Payout),
			CreatedAt:     e.CreatedAt,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{"bets": out})
}
