// Package ddl provides MSSQL-specific helpers for generating DDL from the
// generic ddl.TableDef model.
//
// The builders here:
//   - Use SQL Server-style identifier quoting: [table], [col].
//   - Guard DROP TABLE with OBJECT_ID so it works on servers older than
//     2016, which lack DROP TABLE IF EXISTS.
package ddl

import (
	"fmt"
	"strings"

	gddl "datasetd/internal/ddl"
)

// BuildCreateTableSQL returns a T-SQL CREATE TABLE statement:
//
//	CREATE TABLE [table] (
//	  [id] BIGINT IDENTITY(1,1) NOT NULL,
//	  [col] NVARCHAR(MAX),
//	  PRIMARY KEY ([id])
//	);
func BuildCreateTableSQL(td gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(td, quoteIdent)
}

// BuildDropTableSQL returns a script that drops table when it exists:
//
//	IF OBJECT_ID(N'[table]', N'U') IS NOT NULL DROP TABLE [table];
func BuildDropTableSQL(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", fmt.Errorf("mssql ddl: table name must not be empty")
	}
	q := quoteIdent(table)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		strings.ReplaceAll(q, "'", "''"),
		q,
	), nil
}

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
