package gateway

import (
	"context"
	"errors"
	"time"
)

// PaymentStatus is the collection state reported by the gateway.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPending PaymentStatus = "PENDING"
	PaymentFailed  PaymentStatus = "FAILED"
)

// TransferStatus is the disbursement state reported by the gateway.
type TransferStatus string

const (
	TransferSuccess    TransferStatus = "SUCCESS"
	TransferProcessing TransferStatus = "PROCESSING"
	TransferFailed     TransferStatus = "FAILED"
)

// PaymentMethodCard is the payment method of card collections.
const PaymentMethodCard = "CARD"

var (
	ErrUnknownReference   = errors.New("gateway: unknown payment reference")
	ErrInvalidDestination = errors.New("gateway: destination could not be resolved")
)

// Gateway is the payment collaborator. Amounts are kobo.
type Gateway interface {
	// InitTransaction opens a checkout for a collection identified by
	// req.Reference.
	InitTransaction(ctx context.Context, req InitRequest) (InitResult, error)
	QueryTransaction(ctx context.Context, reference string) (PaymentInfo, error)
	Transfer(ctx context.Context, req TransferRequest) (TransferResult, error)
	ValidateDestination(ctx context.Context, dest Destination) (ResolvedAccount, error)
	ListBanks(ctx context.Context) ([]Bank, error)
}

type Payer struct {
	Email string
	Name  string
}

type InitRequest struct {
	Reference   string
	Amount      int64
	Payer       Payer
	Description string
}

type InitResult struct {
	Reference   string
	CheckoutURL string
}

type CardDetails struct {
	CardType          string `json:"card_type"`
	Last4             string `json:"last4"`
	ExpiryMonth       string `json:"expiry_month"`
	ExpiryYear        string `json:"expiry_year"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

type PaymentInfo struct {
	Reference     string
	Status        PaymentStatus
	Amount        int64
	PaymentMethod string
	PaidAt        *time.Time
	Card          *CardDetails
}

type TransferRequest struct {
	Reference     string
	Amount        int64
	AccountNumber string
	BankCode      string
	Narration     string
}

type TransferResult struct {
	Reference string
	Status    TransferStatus
}

type Destination struct {
	AccountNumber string
	BankCode      string
}

type ResolvedAccount struct {
	AccountNumber string
	AccountName   string
	BankCode      string
	BankName      string
}

type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}
