package pg

import (
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
)

// CheckNoRows maps sql.ErrNoRows to outErr and passes other errors through.
func CheckNoRows(inErr, outErr error) error {
	if inErr != nil && errors.Is(inErr, sql.ErrNoRows) {
		return outErr
	}
	return inErr
}

// CheckUniqueViolation maps a unique constraint violation to outErr and passes
// other errors through.
func CheckUniqueViolation(inErr, outErr error) error {
	if hasCode(inErr, pgerrcode.UniqueViolation) {
		return outErr
	}
	return inErr
}

func isSerializationFailure(err error) bool {
	return hasCode(err, pgerrcode.SerializationFailure)
}

// hasCode reports whether err wraps a postgres error with the given SQLSTATE.
func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return err != nil && errors.As(err, &pgErr) && pgErr.Code == code
}
