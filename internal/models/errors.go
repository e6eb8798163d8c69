package models

import "errors"

// Validation errors.
var (
	ErrInvalidStake        = errors.New("stake out of bounds")
	ErrInvalidOutcome      = errors.New("outcome is not on the wheel")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDestinationNotFound = errors.New("payment destination not found")
	ErrDestinationExists   = errors.New("payment destination already exists")
	ErrDestinationInvalid  = errors.New("payment destination could not be verified")
)

// Resource and consistency errors.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateReference = errors.New("duplicate external reference")
	ErrInvalidTransition  = errors.New("invalid transaction status transition")
	ErrNotFound           = errors.New("not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSettlementFailed   = errors.New("settlement failed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
