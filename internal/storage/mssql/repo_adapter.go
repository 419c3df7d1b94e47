// This adapter wires the MSSQL backend into the storage-agnostic factory.

package mssql

import (
	"context"

	"datasetd/internal/storage"
	msddl "datasetd/internal/storage/mssql/ddl"
)

// Kind is the storage kind this package registers.
const Kind = "mssql"

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// wrappedRepo adapts *mssql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect returns the SQL Server DDL dialect.
func Dialect() storage.Dialect {
	return storage.Dialect{
		CreateTable:  msddl.BuildCreateTableSQL,
		DropTable:    msddl.BuildDropTableSQL,
		ColumnType:   msddl.MapType,
		IdentityType: msddl.IdentityType,
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
