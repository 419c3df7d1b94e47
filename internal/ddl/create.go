// Package ddl defines a small, backend-agnostic model for SQL DDL and a
// renderer for the CREATE TABLE statements shared by every backend.
//
// Dialect packages (internal/storage/<kind>/ddl) supply the identifier
// quoting and any guard clauses their SQL flavor requires; the column list
// itself is rendered here so all backends agree on layout and validation.
package ddl

import (
	"fmt"
	"strings"
)

// RenderColumns validates t and renders its column list plus an optional
// trailing PRIMARY KEY clause, one entry per element.
//
// A column is rendered as:
//
//	<quoted name> <SQLType> [NOT NULL]
func RenderColumns(t TableDef, quote Quoter) ([]string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return nil, fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("ddl: at least one column is required")
	}
	if quote == nil {
		return nil, fmt.Errorf("ddl: quoter must not be nil")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 1)

	for _, c := range t.Columns {
		cn := strings.TrimSpace(c.Name)
		if cn == "" {
			return nil, fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return nil, fmt.Errorf("ddl: column %s missing SQLType", cn)
		}

		var sb strings.Builder
		sb.WriteString(quote(cn))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(cn))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return cols, nil
}

// BuildCreateTableSQL renders a plain CREATE TABLE statement:
//
//	CREATE TABLE <quoted name> (
//	  <col1-def>,
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)]
//	);
func BuildCreateTableSQL(t TableDef, quote Quoter) (string, error) {
	cols, err := RenderColumns(t, quote)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		quote(strings.TrimSpace(t.Name)),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS for dialects that support
// the clause.
func BuildDropTableSQL(table string, quote Quoter) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if quote == nil {
		return "", fmt.Errorf("ddl: quoter must not be nil")
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", quote(table)), nil
}

// DoubleQuote is the ANSI identifier quoter shared by Postgres and SQLite.
func DoubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
