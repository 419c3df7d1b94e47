// Package storage contains the storage-agnostic contracts used by the
// loading pipeline: the Repository interface every backend implements, a
// registry of backend factories and dialects, and the helpers that turn a
// document into a freshly created table full of typed rows.
package storage

import "context"

// Repository is the minimal surface a relational backend must offer.
//
// Implementations must be safe for use by one loader at a time; the pipeline
// serializes loads so no backend needs internal locking around CopyFrom.
type Repository interface {
	// Exec runs a single statement that returns no rows (DDL in practice).
	Exec(ctx context.Context, sql string) error

	// CopyFrom bulk-inserts rows into table. Each row is aligned to columns.
	// It returns the number of rows the backend reports as written.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close()
}

// Config selects a backend and carries its connection string.
type Config struct {
	Kind string // "postgres", "sqlite", "mssql"
	DSN  string
}
