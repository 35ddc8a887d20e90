package pg

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/retry"
)

const maxSerializationRetries = 5

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")
)

type txContextKey struct{}

type txState struct {
	tx        *sqlx.Tx
	isolation sql.IsolationLevel
}

// ExecuteRetryable runs a non-transactional operation, retrying it while it
// fails with a serialization failure.
func ExecuteRetryable(fn func() error) error {
	_, err := retry.Retry(
		fn,
		retry.Limit(maxSerializationRetries),
		func(_ uint, err error) bool { return isSerializationFailure(err) },
	)
	return err
}

// ExecuteTxWithinCtx runs fn inside a new transaction carried by the context
// passed to fn. Store calls made with that context join the transaction. It is
// committed when fn succeeds and rolled back otherwise.
func ExecuteTxWithinCtx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*txState); ok {
		return ErrAlreadyInTx
	}

	isolation = withDefaultIsolation(isolation)
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, txContextKey{}, &txState{tx: tx, isolation: isolation})
	return finishTx(tx, fn(ctx))
}

// ExecuteInTx runs fn in the transaction carried by ctx, if there is one, and
// in a new transaction otherwise. Only transactions started here are
// committed or rolled back here.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	isolation = withDefaultIsolation(isolation)

	tx, err := getTxFromCtx(ctx, isolation)
	switch err {
	case nil:
		return fn(tx)
	case ErrNotInTx:
	default:
		return err
	}

	tx, err = db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}
	return finishTx(tx, fn(tx))
}

func finishTx(tx *sqlx.Tx, err error) error {
	if err != nil {
		// Rollback releases the connection back to the pool.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrap(rollbackErr, "failed to rollback transaction")
		}
		return err
	}
	return tx.Commit()
}

func getTxFromCtx(ctx context.Context, desiredIsolation sql.IsolationLevel) (*sqlx.Tx, error) {
	state, ok := ctx.Value(txContextKey{}).(*txState)
	if !ok {
		return nil, ErrNotInTx
	}

	if state.isolation < desiredIsolation {
		return nil, errors.New("current tx doesn't meet isolation level requirements")
	}
	return state.tx, nil
}

// Postgres defaults to read committed.
func withDefaultIsolation(isolation sql.IsolationLevel) sql.IsolationLevel {
	if isolation == sql.LevelDefault {
		return sql.LevelReadCommitted
	}
	return isolation
}

