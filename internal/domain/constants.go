package domain

import "math"

// Transaction kinds.
const (
	TxKindDeposit    = "deposit"
	TxKindWithdrawal = "withdrawal"
	TxKindWager      = "wager"
	TxKindPayout     = "payout"
	TxKindReversal   = "reversal"
)

// Transaction statuses. Completed and failed are terminal.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Payment destination kinds.
const (
	DestinationKindBank = "bank"
	DestinationKindCard = "card"
)

// Reconciliation case statuses.
const (
	CaseStatusOpen     = "open"
	CaseStatusResolved = "resolved"
)

// Reference prefixes for generated external references.
const (
	RefPrefixWager      = "BET"
	RefPrefixPayout     = "WIN"
	RefPrefixDeposit    = "TRX"
	RefPrefixWithdrawal = "WDR"
	RefPrefixReversal   = "REV"
)

// Default limits in kobo.
const (
	DefaultMinStake      int64 = 50_000
	DefaultMaxStake      int64 = 50_000_000
	DefaultMinDeposit    int64 = 50_000
	DefaultMinWithdrawal int64 = 50_000
)

// Live feed limits.
const (
	DefaultRecentBetsLimit = 8
	MaxRecentBetsLimit     = 50
)

// MaxMultiplier is the highest payout multiplier on the wheel.
const MaxMultiplier int64 = 20

// StakeCeiling is the largest stake whose best payout still fits in int64 kobo.
const StakeCeiling = math.MaxInt64 / MaxMultiplier

// WheelOutcomes is the outcome space of the spinning wheel. Each label is also its payout multiplier.
var WheelOutcomes = []string{"2", "5", "8", "10", "13", "15", "18", "20"}

// IsTerminalStatus reports whether a transaction status can no longer change.
func IsTerminalStatus(status string) bool {
	return status == TxStatusCompleted || status == TxStatusFailed
}

// IsCreditKind reports whether a completed transaction of this kind adds to the balance.
func IsCreditKind(kind string) bool {
	switch kind {
	case TxKindDeposit, TxKindPayout, TxKindReversal:
		return true
	}
	return false
}
