package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/google/uuid"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	db      *sql.DB
	queries *Queries
	locks   *ledger.KeyedMutex
}

// NewStore wraps an already configured database. Open is the usual entry point.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		queries: New(db),
		locks:   ledger.NewKeyedMutex(),
	}
}

func (s *Store) Queries() ledger.Queries {
	return s.queries
}

// RunInTx executes fn within a database transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) WithAccountLock(ctx context.Context, accountID uuid.UUID, fn func(tx ledger.Transactor) error) error {
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return fmt.Errorf("acquire account lock: %w", err)
	}
	defer unlock()
	return fn(s)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
