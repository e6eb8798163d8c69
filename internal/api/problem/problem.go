// Package problem writes RFC 7807 problem details and maps ledger errors
// onto them.
package problem

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayo6706/wheelbet/internal/models"
	"go.uber.org/zap"
)

const (
	contentType = "application/problem+json"
	baseTypeURL = "https://errors.wheelbet.ng/"
)

// Details represents RFC 7807 Problem Details.
type Details struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id,omitempty"`
}

func Type(slug string) string {
	return baseTypeURL + slug
}

// Write sends an RFC 7807 body. An empty title defaults to the status text.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	if title == "" {
		title = http.StatusText(status)
	}
	if problemType == "" {
		problemType = "about:blank"
	}
	instance := ""
	requestID := w.Header().Get("X-Trace-ID")
	if r != nil {
		instance = r.URL.Path
		if requestID == "" {
			requestID = r.Header.Get("X-Trace-ID")
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Details{
		Type:      problemType,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  instance,
		RequestID: requestID,
	})
}

type mapping struct {
	err    error
	status int
	slug   string
	detail string
}

// Order matters: the first match wins.
var mappings = []mapping{
	{models.ErrInvalidStake, http.StatusBadRequest, "bet/invalid-stake", ""},
	{models.ErrInvalidOutcome, http.StatusBadRequest, "bet/invalid-outcome", ""},
	{models.ErrInvalidAmount, http.StatusBadRequest, "funds/invalid-amount", ""},
	{models.ErrInsufficientFunds, http.StatusUnprocessableEntity, "bet/insufficient-funds", "Insufficient balance"},
	{models.ErrDestinationNotFound, http.StatusNotFound, "destination/not-found", "Payment destination not found"},
	{models.ErrDestinationExists, http.StatusConflict, "destination/already-exists", "Payment destination already exists"},
	{models.ErrDestinationInvalid, http.StatusUnprocessableEntity, "destination/invalid", "Bank account could not be verified"},
	{models.ErrAccountNotFound, http.StatusNotFound, "account/not-found", "Account not found"},
	{models.ErrNotFound, http.StatusNotFound, "resource/not-found", "Resource not found"},
	{models.ErrDuplicateReference, http.StatusConflict, "ledger/duplicate-reference", "Duplicate reference"},
	{models.ErrInvalidTransition, http.StatusConflict, "ledger/invalid-transition", "Transaction is already final"},
	{models.ErrSettlementFailed, http.StatusInternalServerError, "bet/settlement-failed", "Settlement failed; your stake has been returned or is under review"},
	{models.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway/unavailable", "Payment provider unavailable, try again later"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "request/timeout", "Request timed out"},
}

// FromError writes the problem matching err. Unknown errors become a 500
// without leaking their text.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			detail := m.detail
			if detail == "" {
				detail = err.Error()
			}
			Write(w, r, m.status, Type(m.slug), "", detail)
			return
		}
	}
	zap.L().Error("unhandled request error", zap.String("path", r.URL.Path), zap.Error(err))
	Write(w, r, http.StatusInternalServerError, Type("internal-server-error"), "", "unexpected server error")
}
