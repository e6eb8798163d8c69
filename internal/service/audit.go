package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/google/uuid"
)

// Audit entity types.
const (
	entityTransaction        = "transaction"
	entityDestination        = "payment_destination"
	entityReconciliationCase = "reconciliation_case"
)

// writeAudit stores a single immutable audit record through q, so it commits
// or rolls back with the change it describes.
func writeAudit(ctx context.Context, q ledger.Queries, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata json.RawMessage) error {
	if err := q.InsertAuditLog(ctx, ledger.InsertAuditLogParams{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  textParam(prevState),
		NextState:  textParam(nextState),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
