package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres SQLSTATE codes the repositories branch on
const (
	CodeUniqueViolation           = "23505"
	CodeForeignKeyViolation       = "23503"
	CodeCheckViolation            = "23514"
	CodeInvalidTextRepresentation = "22P02"
	CodeSerializationFailure      = "40001"
	CodeDeadlockDetected          = "40P01"
)

// PgCode returns the SQLSTATE of err, or "" when err is not a server error
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ConstraintName returns the violated constraint, or ""
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// IsUniqueViolation reports a unique constraint failure
func IsUniqueViolation(err error) bool {
	return PgCode(err) == CodeUniqueViolation
}

// IsRetryable reports transaction conflicts worth another attempt
func IsRetryable(err error) bool {
	switch PgCode(err) {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return true
	}
	return false
}

// InTx runs fn inside a transaction with opts. fn's error rolls back; a nil error commits.
// A cancelled context aborts the transaction.
func InTx(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Isolation levels used by the repositories
var (
	// ReadCommitted suits single-row conditional updates: the row lock and the
	// re-evaluated WHERE make check-and-act atomic without serialization failures
	ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	Serializable  = pgx.TxOptions{IsoLevel: pgx.Serializable}
)
