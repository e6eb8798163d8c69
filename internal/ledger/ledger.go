// Package ledger defines the Ledger Store contract shared by the Postgres and
// SQLite backends. The store is the only place balances change.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

// Transactor runs fn inside one database transaction. fn's error rolls it back.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(q Queries) error) error
}

// Store is the durable ledger.
type Store interface {
	Transactor

	// Queries returns the non-transactional query set.
	Queries() Queries

	// WithAccountLock serializes fn against every other locked section for the
	// same account. Locks on different accounts never contend. Transactions
	// opened through tx run on the connection holding the lock.
	WithAccountLock(ctx context.Context, accountID uuid.UUID, fn func(tx Transactor) error) error

	Ping(ctx context.Context) error
}

// Queries is the statement set both backends implement. Methods that return a
// single row report a missing row as models.ErrNotFound (or
// models.ErrAccountNotFound for accounts).
type Queries interface {
	CreateAccount(ctx context.Context, id uuid.UUID) (models.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error)
	// AdjustBalance adds delta to the balance. A result below zero fails with
	// models.ErrInsufficientFunds and leaves the balance untouched.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) (models.Account, error)
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)

	// CreateTransaction fails with models.ErrDuplicateReference when the
	// reference already exists.
	CreateTransaction(ctx context.Context, arg CreateTransactionParams) (models.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	GetTransactionByReference(ctx context.Context, reference string) (models.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, arg ListByAccountParams) ([]models.Transaction, error)
	// SetTransactionStatus writes status and merges metadataPatch into the
	// stored metadata. It does not check transition rules; use UpdateTransactionStatus.
	SetTransactionStatus(ctx context.Context, id uuid.UUID, status string, metadataPatch json.RawMessage) (models.Transaction, error)
	SumTransactionsByKind(ctx context.Context, accountID uuid.UUID) ([]KindTotal, error)
	ListStalePendingDeposits(ctx context.Context, before time.Time, limit int32) ([]models.Transaction, error)

	CreateBet(ctx context.Context, arg CreateBetParams) (models.BetRecord, error)
	GetBet(ctx context.Context, id uuid.UUID) (models.BetRecord, error)
	ListBetsByAccount(ctx context.Context, arg ListByAccountParams) ([]models.BetRecord, error)
	ListRecentBets(ctx context.Context, limit int32) ([]models.BetRecord, error)

	CreateDestination(ctx context.Context, arg CreateDestinationParams) (models.PaymentDestination, error)
	GetDestination(ctx context.Context, id uuid.UUID) (models.PaymentDestination, error)
	ListDestinations(ctx context.Context, accountID uuid.UUID) ([]models.PaymentDestination, error)
	DeleteDestination(ctx context.Context, id uuid.UUID) (int64, error)
	ClearDefaultDestinations(ctx context.Context, accountID uuid.UUID) error
	SetDefaultDestination(ctx context.Context, id uuid.UUID) (int64, error)

	InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error

	CreateReconciliationCase(ctx context.Context, arg CreateReconciliationCaseParams) (models.ReconciliationCase, error)
	ListReconciliationCases(ctx context.Context, status string, limit, offset int32) ([]models.ReconciliationCase, error)
	// ResolveReconciliationCase closes an open case. Missing or already
	// resolved cases return models.ErrNotFound.
	ResolveReconciliationCase(ctx context.Context, id uuid.UUID, resolution string) (models.ReconciliationCase, error)

	GetIdempotencyKey(ctx context.Context, key string) (models.IdempotencyKey, error)
	// ReserveIdempotencyKey reports false when the key is already present.
	ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (bool, error)
	FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (models.IdempotencyKey, error)
}

type CreateTransactionParams struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Kind      string
	Amount    int64
	Status    string
	Reference string
	Metadata  json.RawMessage
	CreatedAt time.Time
}

type ListByAccountParams struct {
	AccountID uuid.UUID
	Limit     int32
	Offset    int32
}

// KindTotal is the summed amount of one account's transactions per kind and status.
type KindTotal struct {
	Kind   string
	Status string
	Total  int64
}

type CreateBetParams struct {
	ID                  uuid.UUID
	AccountID           uuid.UUID
	Stake               int64
	ChosenOutcome       string
	DrawnOutcome        string
	IsWin               bool
	Payout              int64
	WagerTransactionID  uuid.UUID
	PayoutTransactionID *uuid.UUID
	CreatedAt           time.Time
}

type CreateDestinationParams struct {
	ID                 uuid.UUID
	AccountID          uuid.UUID
	Kind               string
	ExternalAccountRef string
	DisplayName        string
	BankCode           string
	BankName           string
	IsDefault          bool
}

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   json.RawMessage
}

type CreateReconciliationCaseParams struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Reason    string
	Reference string
	Amount    int64
	Details   json.RawMessage
}

type ReserveIdempotencyKeyParams struct {
	Key         string
	RequestHash string
	Method      string
	Path        string
}

type FinalizeIdempotencyKeyParams struct {
	Key            string
	RequestHash    string
	ResponseStatus int
	ResponseBody   []byte
	ContentType    string
}
