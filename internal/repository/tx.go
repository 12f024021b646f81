// Package repository implements MySQL persistence for the booking
// engine.  Repositories satisfy the store interfaces declared in the
// service package.  A transaction started by Runner.WithTx travels
// through the context, so every repository method transparently runs
// against the open transaction when one is present and against the
// pooled connection otherwise.
package repository

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Runner starts transactions and injects them into the context.
type Runner struct {
	db *sql.DB
}

// NewRunner returns a Runner bound to the given database.
func NewRunner(db *sql.DB) *Runner { return &Runner{db: db} }

// WithTx runs fn inside a transaction carried through the context.
// The transaction commits when fn returns nil and rolls back
// otherwise, so a failing unit of work leaves no partial state.
// Nested calls reuse the outer transaction.
func (r *Runner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// conn returns the transaction from the context when present, the
// plain database handle otherwise.
func conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry
// violation (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
