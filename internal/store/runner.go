package store

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner hands callers a Gateway scoped to one transaction. The
// runner owns commit and rollback; gateway methods never do either.
type TxRunner interface {
	// InTx runs fn against a transactional gateway, committing when fn
	// returns nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(gw Gateway) error) error
	// Reader returns a gateway for reads that need no transaction.
	Reader() Gateway
}

// DBRunner backs TxRunner with a Postgres pool.
type DBRunner struct {
	DB *sql.DB
}

var _ TxRunner = (*DBRunner)(nil)

func NewDBRunner(db *sql.DB) *DBRunner { return &DBRunner{DB: db} }

func (r *DBRunner) InTx(ctx context.Context, fn func(gw Gateway) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(NewSQLGateway(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *DBRunner) Reader() Gateway { return NewSQLGateway(r.DB) }

// MemRunner backs TxRunner with a MemGateway for tests and the offline
// simulator. There is no real transaction; fn writes directly.
type MemRunner struct {
	GW *MemGateway
}

var _ TxRunner = (*MemRunner)(nil)

func NewMemRunner(gw *MemGateway) *MemRunner { return &MemRunner{GW: gw} }

func (r *MemRunner) InTx(ctx context.Context, fn func(gw Gateway) error) error { return fn(r.GW) }

func (r *MemRunner) Reader() Gateway { return r.GW }
