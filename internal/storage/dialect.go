package storage

import (
	"fmt"
	"sync"

	"datasetd/internal/ddl"
	"datasetd/internal/typeinfer"
)

// Dialect bundles the backend-specific pieces needed to (re)create a
// dataset table. Backends register one per kind next to their factory, so
// callers can build DDL knowing only the configured storage kind.
type Dialect struct {
	// CreateTable renders the CREATE TABLE statement for td.
	CreateTable func(td ddl.TableDef) (string, error)

	// DropTable renders a statement that removes table if it exists and is
	// a no-op otherwise.
	DropTable func(table string) (string, error)

	// ColumnType maps an inferred storage class to a SQL column type.
	ColumnType func(t typeinfer.StorageType) string

	// IdentityType is the SQL type of the auto-incrementing id column.
	IdentityType string
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

// RegisterDDL registers (or replaces) the Dialect for kind. It is typically
// called from backend packages' init functions.
func RegisterDDL(kind string, d Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the Dialect registered for kind.
func DialectFor(kind string) (Dialect, error) {
	dialectMu.RLock()
	d, ok := dialects[kind]
	dialectMu.RUnlock()
	if !ok {
		return Dialect{}, fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	if d.CreateTable == nil || d.DropTable == nil || d.ColumnType == nil || d.IdentityType == "" {
		return Dialect{}, fmt.Errorf("incomplete DDL dialect for storage.kind=%q", kind)
	}
	return d, nil
}
