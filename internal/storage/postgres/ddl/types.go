package ddl

import "datasetd/internal/typeinfer"

// IdentityType is the SQL type of the generated primary key column.
const IdentityType = "BIGINT GENERATED BY DEFAULT AS IDENTITY"

// MapType maps an inferred storage class to a Postgres column type.
//
//	Integer -> BIGINT
//	Numeric -> NUMERIC (unconstrained precision)
//	Text    -> TEXT
func MapType(t typeinfer.StorageType) string {
	switch t {
	case typeinfer.Integer:
		return "BIGINT"
	case typeinfer.Numeric:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}
