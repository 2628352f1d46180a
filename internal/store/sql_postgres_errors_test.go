package store

import (
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
)

func TestPostgresErrorClassifier_Classify(t *testing.T) {
	c := NewPostgresErrorClassifier()

	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{name: "nil", err: nil, want: NonRetryable},
		{name: "not a pg error", err: assert.AnError, want: NonRetryable},
		{name: "connection failure", err: pgError(pgerrcode.ConnectionFailure), want: Retryable},
		{name: "serialization failure", err: pgError(pgerrcode.SerializationFailure), want: Retryable},
		{name: "deadlock", err: pgError(pgerrcode.DeadlockDetected), want: Retryable},
		{name: "cannot connect now", err: pgError(pgerrcode.CannotConnectNow), want: Retryable},
		{name: "connection class", err: pgError(pgerrcode.SQLClientUnableToEstablishSQLConnection), want: Retryable},
		{name: "transaction rollback class", err: pgError(pgerrcode.TransactionIntegrityConstraintViolation), want: Retryable},
		{name: "admin shutdown", err: pgError(pgerrcode.AdminShutdown), want: Retryable},
		{name: "too many connections", err: pgError(pgerrcode.TooManyConnections), want: Retryable},
		{name: "query canceled", err: pgError(pgerrcode.QueryCanceled), want: NonRetryable},
		{name: "not null violation", err: pgError(pgerrcode.NotNullViolation), want: NonRetryable},
		{name: "wrapped deadlock", err: fmt.Errorf("%w: %w", ErrExecutingStatement, pgError(pgerrcode.DeadlockDetected)), want: Retryable},
		{name: "unique violation", err: pgError(pgerrcode.UniqueViolation), want: NonRetryable},
		{name: "undefined table", err: pgError(pgerrcode.UndefinedTable), want: NonRetryable},
		{name: "unknown code", err: pgError("XX999"), want: NonRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err))
		})
	}
}

func TestPostgresError_Code(t *testing.T) {
	assert.Equal(t, pgerrcode.DeadlockDetected, postgresError(fmt.Errorf("wrap: %w", pgError(pgerrcode.DeadlockDetected))))
	assert.Empty(t, postgresError(assert.AnError))
}

func TestDB_RetryableWithoutClassifier(t *testing.T) {
	db := &DB{}
	assert.False(t, db.retryable(pgError(pgerrcode.DeadlockDetected)))
}
