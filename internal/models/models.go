package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID        uuid.UUID `json:"id"`
	Balance   int64     `json:"balance"` // kobo
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Kind      string          `json:"kind"`   // deposit, withdrawal, wager, payout, reversal
	Amount    int64           `json:"amount"` // kobo, never negative
	Status    string          `json:"status"` // pending, completed, failed
	Reference string          `json:"reference"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BetRecord is the immutable audit record of one settlement.
type BetRecord struct {
	ID                  uuid.UUID  `json:"id"`
	AccountID           uuid.UUID  `json:"account_id"`
	Stake               int64      `json:"stake"`
	ChosenOutcome       string     `json:"chosen_outcome"`
	DrawnOutcome        string     `json:"drawn_outcome"`
	IsWin               bool       `json:"is_win"`
	Payout              int64      `json:"payout"` // zero unless IsWin
	WagerTransactionID  uuid.UUID  `json:"wager_transaction_id"`
	PayoutTransactionID *uuid.UUID `json:"payout_transaction_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type PaymentDestination struct {
	ID                 uuid.UUID `json:"id"`
	AccountID          uuid.UUID `json:"account_id"`
	Kind               string    `json:"kind"` // bank or card
	ExternalAccountRef string    `json:"external_account_ref"`
	DisplayName        string    `json:"display_name"`
	BankCode           string    `json:"bank_code,omitempty"`
	BankName           string    `json:"bank_name,omitempty"`
	IsDefault          bool      `json:"is_default"`
	CreatedAt          time.Time `json:"created_at"`
}

// ReconciliationCase flags a ledger anomaly that needs a human decision.
type ReconciliationCase struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Reason     string          `json:"reason"`
	Reference  string          `json:"reference"`
	Amount     int64           `json:"amount"`
	Details    json.RawMessage `json:"details,omitempty"`
	Status     string          `json:"status"`
	Resolution *string         `json:"resolution,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

type IdempotencyKey struct {
	Key            string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}
