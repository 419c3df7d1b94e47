// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories and DDL dialects with the storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "postgres" (datasetd/internal/storage/postgres)
//   - "mssql"    (datasetd/internal/storage/mssql)
//   - "sqlite"   (datasetd/internal/storage/sqlite)
//
// Typical usage (in cmd/datasetd/main.go):
//
//	import _ "datasetd/internal/storage/all"
//
//	repo, err := storage.OpenWithRetry(ctx, storage.Config{Kind: cfg.Store.Kind, DSN: dsn}, policy, log)
//	dialect, err := storage.DialectFor(cfg.Store.Kind)
//
// A binary that supports only a subset of backends can import the backend
// packages it needs directly instead of this one.
package all

import (
	_ "datasetd/internal/storage/mssql"
	_ "datasetd/internal/storage/postgres"
	_ "datasetd/internal/storage/sqlite"
)
