package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ ledger.Store = (*Store)(nil)

// Store is the Postgres ledger. Per-account locks are session advisory locks
// held on a connection pinned for the duration of the locked section.
type Store struct {
	db      *pgxpool.Pool
	queries *Queries
}

// NewStore creates a store wrapper around a pgx connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db:      db,
		queries: New(db),
	}
}

// Queries returns the non-transactional query set.
func (s *Store) Queries() ledger.Queries {
	return s.queries
}

// RunInTx executes fn within a database transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	return runInTx(ctx, s.db, s.queries, fn)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const (
	advisoryLock   = `SELECT pg_advisory_lock(hashtextextended($1, 0))`
	advisoryUnlock = `SELECT pg_advisory_unlock(hashtextextended($1, 0))`
)

// WithAccountLock holds a session advisory lock keyed by the account id while
// fn runs. Transactions started through the supplied Transactor use the same
// connection, so a locked section never waits on the pool for itself.
func (s *Store) WithAccountLock(ctx context.Context, accountID uuid.UUID, fn func(tx ledger.Transactor) error) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}

	key := accountID.String()
	if _, err := conn.Exec(ctx, advisoryLock, key); err != nil {
		conn.Release()
		return fmt.Errorf("acquire account lock: %w", err)
	}

	defer func() {
		// The unlock must run even when ctx is already cancelled.
		if _, err := conn.Exec(context.Background(), advisoryUnlock, key); err != nil {
			zap.L().Error("failed to release account lock",
				zap.String("account_id", key),
				zap.Error(err))
			// A session lock dies with its connection.
			_ = conn.Conn().Close(context.Background())
		}
		conn.Release()
	}()

	return fn(&lockedConn{conn: conn, queries: New(conn)})
}

type lockedConn struct {
	conn    *pgxpool.Conn
	queries *Queries
}

func (l *lockedConn) RunInTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	return runInTx(ctx, l.conn, l.queries, fn)
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func runInTx(ctx context.Context, db beginner, q *Queries, fn func(q ledger.Queries) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(q.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
