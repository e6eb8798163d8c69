// Package wheel draws spinning-wheel outcomes and prices winning bets.
//
// Every label is equally likely and pays its own face value as the
// multiplier, so the expected return differs by label.
package wheel

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"
)

var (
	ErrEmptyOutcomeSpace = errors.New("outcome space is empty")
	ErrPayoutOverflow    = errors.New("payout overflows int64 kobo")
)

// Drawer picks one label from outcomes.
type Drawer interface {
	Draw(outcomes []string) (string, error)
}

// CryptoDrawer draws uniformly using crypto/rand.
type CryptoDrawer struct{}

func (CryptoDrawer) Draw(outcomes []string) (string, error) {
	if len(outcomes) == 0 {
		return "", ErrEmptyOutcomeSpace
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(outcomes))))
	if err != nil {
		return "", fmt.Errorf("read random source: %w", err)
	}
	return outcomes[n.Int64()], nil
}

// FixedDrawer always returns Outcome. Useful for forcing a result.
type FixedDrawer struct {
	Outcome string
}

func (d FixedDrawer) Draw(outcomes []string) (string, error) {
	if len(outcomes) == 0 {
		return "", ErrEmptyOutcomeSpace
	}
	return d.Outcome, nil
}

// DrawerFunc adapts a function to Drawer.
type DrawerFunc func(outcomes []string) (string, error)

func (f DrawerFunc) Draw(outcomes []string) (string, error) {
	return f(outcomes)
}

// IsValidOutcome reports whether label belongs to outcomes.
func IsValidOutcome(outcomes []string, label string) bool {
	return slices.Contains(outcomes, label)
}

// Multiplier is the payout multiplier of a label: its numeric face value.
func Multiplier(label string) (int64, error) {
	m, err := strconv.ParseInt(label, 10, 64)
	if err != nil || m <= 0 {
		return 0, fmt.Errorf("outcome %q has no positive numeric multiplier", label)
	}
	return m, nil
}

// ComputePayout returns zero unless chosen == drawn, otherwise
// stake multiplied by the chosen label.
func ComputePayout(stake int64, chosen, drawn string) (int64, error) {
	if chosen != drawn {
		return 0, nil
	}
	m, err := Multiplier(chosen)
	if err != nil {
		return 0, err
	}
	if stake < 0 || stake > math.MaxInt64/m {
		return 0, fmt.Errorf("%w: stake %d at %dx", ErrPayoutOverflow, stake, m)
	}
	return stake * m, nil
}
