package store

import "errors"

// Sentinel errors returned by repositories. Callers should use [errors.Is]
// to match against these values.
var (
	// ErrStorage wraps every failure to read or write persisted state. The
	// in-memory state of the caller must be considered unchanged.
	ErrStorage = errors.New("storage error")

	// ErrCorrupted is returned together with ErrStorage when persisted data
	// cannot be decoded.
	ErrCorrupted = errors.New("persisted data is corrupted")

	// ErrBackupNotFound is returned when a named backup does not exist.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrUnsupportedBackend is returned by [NewRecordStore] for an unknown
	// backend name.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")
)

// Low-level database operation errors. These are wrapped by the SQL record
// store together with ErrStorage.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRows is returned when scanning column values fails.
	ErrScanningRows = errors.New("failed to scan rows")
)
