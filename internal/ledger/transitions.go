package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/domain"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

var transactionTransitions = map[string]map[string]struct{}{
	domain.TxStatusPending: {
		domain.TxStatusCompleted: {},
		domain.TxStatusFailed:    {},
	},
	domain.TxStatusCompleted: {},
	domain.TxStatusFailed:    {},
}

// CanTransition reports whether a transaction may move from current to next.
func CanTransition(current, next string) bool {
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// UpdateTransactionStatus locks the row and applies a one-way status change.
// Terminal rows only accept a metadata enrichment with their current status;
// anything else fails with models.ErrInvalidTransition. It returns the row as
// it was before the change alongside the updated row.
func UpdateTransactionStatus(ctx context.Context, q Queries, id uuid.UUID, next string, metadataPatch json.RawMessage) (prev, updated models.Transaction, err error) {
	prev, err = q.GetTransactionForUpdate(ctx, id)
	if err != nil {
		return prev, updated, fmt.Errorf("get transaction for update: %w", err)
	}

	if prev.Status == next {
		if len(metadataPatch) == 0 {
			return prev, prev, nil
		}
	} else if !CanTransition(prev.Status, next) {
		return prev, updated, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, prev.Status, next)
	}

	updated, err = q.SetTransactionStatus(ctx, id, next, metadataPatch)
	if err != nil {
		return prev, updated, fmt.Errorf("set transaction status: %w", err)
	}
	return prev, updated, nil
}
