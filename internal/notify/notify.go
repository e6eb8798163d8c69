// Package notify fans settlement and funds events out to observers.
// Publishing is best effort: callers log failures and carry on.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventBetSettled         = "bet.settled"
	EventDepositCompleted   = "deposit.completed"
	EventWithdrawalComplete = "withdrawal.completed"
	EventWithdrawalFailed   = "withdrawal.failed"
)

// Event is the read-only projection observers receive. It never carries the
// account id. Amounts are kobo.
type Event struct {
	Type      string    `json:"type"`
	Bettor    string    `json:"bettor"`
	Stake     int64     `json:"stake,omitempty"`
	Payout    int64     `json:"payout"`
	IsWin     bool      `json:"is_win"`
	Amount    int64     `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier interface {
	Publish(ctx context.Context, e Event) error
}

// Pseudonym is the public handle of an account on the live feed.
func Pseudonym(accountID uuid.UUID) string {
	return "User" + strings.ToUpper(accountID.String()[:4])
}

// Multi publishes to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
