package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var sandboxBanks = []Bank{
	{Name: "Access Bank", Code: "044"},
	{Name: "First Bank of Nigeria", Code: "011"},
	{Name: "Guaranty Trust Bank", Code: "058"},
	{Name: "Kuda Microfinance Bank", Code: "50211"},
	{Name: "United Bank for Africa", Code: "033"},
	{Name: "Zenith Bank", Code: "057"},
}

// Sandbox simulates the payment gateway in process. Collections stay
// PENDING until Complete is called unless AutoApprove is set, and transfers
// fail with probability FailureRate.
type Sandbox struct {
	// FailureRate is the probability of a failed transfer (0.0 to 1.0).
	FailureRate float64
	// AutoApprove reports every initiated collection as paid in full.
	AutoApprove bool
	// MaxLatency bounds the simulated network delay of each call.
	MaxLatency  time.Duration
	CheckoutURL string

	mu       sync.Mutex
	payments map[string]*PaymentInfo
	rng      *rand.Rand
}

func NewSandbox(failureRate float64) *Sandbox {
	return &Sandbox{
		FailureRate: failureRate,
		CheckoutURL: "https://sandbox.checkout.local/pay",
		payments:    make(map[string]*PaymentInfo),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Sandbox) delay(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("gateway call canceled: %w", err)
	}
	if g.MaxLatency <= 0 {
		return nil
	}
	g.mu.Lock()
	d := time.Duration(g.rng.Int63n(int64(g.MaxLatency)))
	g.mu.Unlock()

	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gateway call canceled: %w", ctx.Err())
	}
}

func (g *Sandbox) InitTransaction(ctx context.Context, req InitRequest) (InitResult, error) {
	if err := g.delay(ctx); err != nil {
		return InitResult{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.payments[req.Reference]; ok {
		return InitResult{}, fmt.Errorf("gateway: reference %s already initialised", req.Reference)
	}
	g.payments[req.Reference] = &PaymentInfo{
		Reference: req.Reference,
		Status:    PaymentPending,
		Amount:    req.Amount,
	}
	return InitResult{
		Reference:   req.Reference,
		CheckoutURL: fmt.Sprintf("%s/%s", g.CheckoutURL, req.Reference),
	}, nil
}

func (g *Sandbox) QueryTransaction(ctx context.Context, reference string) (PaymentInfo, error) {
	if err := g.delay(ctx); err != nil {
		return PaymentInfo{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[reference]
	if !ok {
		return PaymentInfo{}, ErrUnknownReference
	}
	if g.AutoApprove && p.Status == PaymentPending {
		now := time.Now().UTC()
		p.Status = PaymentPaid
		p.PaymentMethod = "ACCOUNT_TRANSFER"
		p.PaidAt = &now
	}
	return *p, nil
}

// Complete settles a sandbox collection, as the payer finishing checkout would.
func (g *Sandbox) Complete(reference string, status PaymentStatus, amount int64, card *CardDetails) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[reference]
	if !ok {
		return ErrUnknownReference
	}
	p.Status = status
	p.Amount = amount
	if card != nil {
		p.PaymentMethod = PaymentMethodCard
		c := *card
		p.Card = &c
	} else {
		p.PaymentMethod = "ACCOUNT_TRANSFER"
	}
	if status == PaymentPaid {
		now := time.Now().UTC()
		p.PaidAt = &now
	}
	return nil
}

func (g *Sandbox) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if err := g.delay(ctx); err != nil {
		return TransferResult{}, err
	}
	g.mu.Lock()
	failed := g.rng.Float64() < g.FailureRate
	g.mu.Unlock()

	if failed {
		return TransferResult{Reference: req.Reference, Status: TransferFailed}, nil
	}
	return TransferResult{Reference: req.Reference, Status: TransferSuccess}, nil
}

func (g *Sandbox) ValidateDestination(ctx context.Context, dest Destination) (ResolvedAccount, error) {
	if err := g.delay(ctx); err != nil {
		return ResolvedAccount{}, err
	}
	if len(dest.AccountNumber) != 10 {
		return ResolvedAccount{}, ErrInvalidDestination
	}
	for _, b := range sandboxBanks {
		if b.Code == dest.BankCode {
			return ResolvedAccount{
				AccountNumber: dest.AccountNumber,
				AccountName:   "SANDBOX ACCOUNT " + dest.AccountNumber[6:],
				BankCode:      b.Code,
				BankName:      b.Name,
			}, nil
		}
	}
	return ResolvedAccount{}, ErrInvalidDestination
}

func (g *Sandbox) ListBanks(ctx context.Context) ([]Bank, error) {
	out := make([]Bank, len(sandboxBanks))
	copy(out, sandboxBanks)
	return out, nil
}
