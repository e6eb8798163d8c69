package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/models"
	"github.com/google/uuid"
)

// recordTransaction inserts a transaction row and its creation audit entry.
func recordTransaction(ctx context.Context, q ledger.Queries, arg ledger.CreateTransactionParams, actorID *uuid.UUID) (models.Transaction, error) {
	if arg.ID == uuid.Nil {
		arg.ID = uuid.New()
	}
	tx, err := q.CreateTransaction(ctx, arg)
	if err != nil {
		return tx, err
	}
	if err := writeAudit(ctx, q, entityTransaction, tx.ID, actorID, "created", "", tx.Status, arg.Metadata); err != nil {
		return tx, err
	}
	return tx, nil
}

// transitionTransaction applies a one-way status change (or a metadata
// enrichment when next equals the current status) and audits it.
func transitionTransaction(ctx context.Context, q ledger.Queries, transactionID uuid.UUID, nextState string, actorID *uuid.UUID, action string, metadata json.RawMessage) (models.Transaction, error) {
	prev, updated, err := ledger.UpdateTransactionStatus(ctx, q, transactionID, nextState, metadata)
	if err != nil {
		return updated, fmt.Errorf("transition transaction %s: %w", transactionID, err)
	}
	if prev.Status == updated.Status && len(metadata) == 0 {
		return updated, nil
	}
	if err := writeAudit(ctx, q, entityTransaction, transactionID, actorID, action, prev.Status, updated.Status, metadata); err != nil {
		return updated, err
	}
	return updated, nil
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal metadata: %v", err))
	}
	return b
}
