package store

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorClassification tells the SQL record store whether a failed save may be
// attempted again.
type ErrorClassification int

const (
	// NonRetryable is the classification of anything not known to be
	// transient, constraint and syntax errors included.
	NonRetryable ErrorClassification = iota

	// Retryable marks failures after which the same replace-all transaction
	// can succeed unchanged.
	Retryable
)

// PostgresErrorClassifier implements [ErrorClassificator] for the pgx driver.
type PostgresErrorClassifier struct{}

// NewPostgresErrorClassifier constructs a [PostgresErrorClassifier].
func NewPostgresErrorClassifier() *PostgresErrorClassifier {
	return &PostgresErrorClassifier{}
}

// Classify implements [ErrorClassificator]. Errors that do not wrap a
// *pgconn.PgError are [NonRetryable].
func (c *PostgresErrorClassifier) Classify(err error) ErrorClassification {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return NonRetryable
	}
	return ClassifyPgError(pgErr)
}

// ClassifyPgError looks at the SQLSTATE of a save that deletes and reinserts
// every row in one transaction. Lost connections (class 08) and rolled back
// transactions (class 40: serialization failures, deadlocks) are retried, as
// are a server that is shutting down, starting up or out of connections.
func ClassifyPgError(pgErr *pgconn.PgError) ErrorClassification {
	switch {
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsTransactionRollback(pgErr.Code):
		return Retryable
	}

	switch pgErr.Code {
	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown,
		pgerrcode.CannotConnectNow,
		pgerrcode.TooManyConnections:
		return Retryable
	}
	return NonRetryable
}
