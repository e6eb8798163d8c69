package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `
INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

func (q *Queries) InsertAuditLog(ctx context.Context, arg ledger.InsertAuditLogParams) error {
	var actor pgtype.UUID
	if arg.ActorID != nil {
		actor = pgtype.UUID{Bytes: *arg.ActorID, Valid: true}
	}
	var metadata []byte
	if len(arg.Metadata) > 0 {
		metadata = []byte(arg.Metadata)
	}
	if _, err := q.db.Exec(ctx, insertAuditLog, arg.EntityType, arg.EntityID, actor, arg.Action, arg.PrevState, arg.NextState, metadata); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
