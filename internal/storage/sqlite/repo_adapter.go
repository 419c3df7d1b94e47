// This file wires the SQLite backend into the storage factory; registration
// happens in init so callers only need storage.New.

package sqlite

import (
	"context"

	"datasetd/internal/storage"
	sqliteddl "datasetd/internal/storage/sqlite/ddl"
)

// Kind is the storage kind this package registers.
const Kind = "sqlite"

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo adapts *sqlite.Repository to the storage.Repository interface,
// adding a Close method that calls the cleanup function returned by
// NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Ensure wrappedRepo satisfies the interface at compile time.
var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect returns the SQLite DDL dialect.
func Dialect() storage.Dialect {
	return storage.Dialect{
		CreateTable:  sqliteddl.BuildCreateTableSQL,
		DropTable:    sqliteddl.BuildDropTableSQL,
		ColumnType:   sqliteddl.MapType,
		IdentityType: sqliteddl.IdentityType,
	}
}

// Unwrap returns the concrete repository behind a storage.Repository opened
// through this package, or nil.
func Unwrap(r storage.Repository) *Repository {
	if w, ok := r.(*wrappedRepo); ok {
		return w.Repository
	}
	return nil
}

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL(Kind, Dialect())
}
