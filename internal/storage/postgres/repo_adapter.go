// This adapter wires the Postgres backend into the storage-agnostic factory
// by registering a constructor and a DDL dialect at init time. Callers
// obtain a Repository via storage.New without importing this package.

package postgres

import (
	"context"

	"datasetd/internal/storage"
	pgddl "datasetd/internal/storage/postgres/ddl"
)

// Kind is the storage kind this package registers.
const Kind = "postgres"

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Ensure wrappedRepo satisfies storage.Repository at compile time.
var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect returns the Postgres DDL dialect.
func Dialect() storage.Dialect {
	return storage.Dialect{
		CreateTable:  pgddl.BuildCreateTableSQL,
		DropTable:    pgddl.BuildDropTableSQL,
		ColumnType:   pgddl.MapType,
		IdentityType: pgddl.IdentityType,
	}
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
