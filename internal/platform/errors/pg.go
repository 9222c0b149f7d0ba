package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlState is how one SQLSTATE maps onto our codes
type sqlState struct {
	code  ErrorCode
	retry bool
}

// sqlStates lists the SQLSTATEs the ledger and the postgres warehouse can hit;
// anything else is ErrorCodeDB and not retried
var sqlStates = map[string]sqlState{
	"42P01": {code: ErrorCodeNotFound},                 // undefined_table
	"42703": {code: ErrorCodeNotFound},                 // undefined_column
	"23502": {code: ErrorCodeValidation},               // not_null_violation
	"23514": {code: ErrorCodeValidation},               // check_violation
	"22001": {code: ErrorCodeInvalidArgument},          // string_data_right_truncation
	"22P02": {code: ErrorCodeInvalidArgument},          // invalid_text_representation
	"25006": {code: ErrorCodeUnavailable},              // read_only_sql_transaction
	"57P03": {code: ErrorCodeUnavailable, retry: true}, // cannot_connect_now
	"40001": {code: ErrorCodeDB, retry: true},          // serialization_failure
	"40P01": {code: ErrorCodeDB, retry: true},          // deadlock_detected
	"55P03": {code: ErrorCodeDB, retry: true},          // lock_not_available
}

// transientText matches pgx failures that arrive without a SQLSTATE
var transientText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to statement timeout",
	"terminating connection due to administrator command",
}

// ExtractPgError finds a *pgconn.PgError anywhere in err's chain
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := stderrs.As(err, &pgErr)
	return pgErr, ok
}

// IsSQLState reports whether err carries the given SQLSTATE
func IsSQLState(err error, state string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == state
}

// IsUndefinedTable reports a missing table, which readers treat as "nothing loaded yet"
func IsUndefinedTable(err error) bool { return IsSQLState(err, "42P01") }

// DBErrorCode maps a postgres error to an ErrorCode; ok is false for non-pg errors
func DBErrorCode(err error) (code ErrorCode, ok bool) {
	pgErr, ok := ExtractPgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	if st, known := sqlStates[pgErr.Code]; known {
		return st.code, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err under msg with its mapped code; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports a transient database failure. Caller cancellations never are.
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := ExtractPgError(err); ok {
		return sqlStates[pgErr.Code].retry
	}
	msg := strings.ToLower(Root(err).Error())
	for _, s := range transientText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
