package ddl

import "datasetd/internal/typeinfer"

// IdentityType is the SQL type of the generated primary key column.
const IdentityType = "BIGINT IDENTITY(1,1)"

// MapType maps an inferred storage class into a SQL Server column type.
// Numeric uses the widest DECIMAL precision with ten fractional digits.
func MapType(t typeinfer.StorageType) string {
	switch t {
	case typeinfer.Integer:
		return "BIGINT"
	case typeinfer.Numeric:
		return "DECIMAL(38, 10)"
	default:
		return "NVARCHAR(MAX)"
	}
}
