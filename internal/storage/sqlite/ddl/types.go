package ddl

import "datasetd/internal/typeinfer"

// IdentityType must be exactly INTEGER for the rowid alias to apply.
const IdentityType = "INTEGER"

// MapType maps an inferred storage class to a SQLite declared type. The
// names select INTEGER, NUMERIC and TEXT affinity respectively.
func MapType(t typeinfer.StorageType) string {
	switch t {
	case typeinfer.Integer:
		return "INTEGER"
	case typeinfer.Numeric:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}
