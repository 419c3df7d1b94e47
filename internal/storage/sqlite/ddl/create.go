// Package ddl provides SQLite-specific helpers for generating DDL from the
// generic ddl.TableDef model.
//
// The identity column is declared INTEGER with a single-column PRIMARY KEY
// table constraint, which makes it an alias for the rowid: inserts that omit
// it get the next id assigned automatically.
package ddl

import (
	gddl "datasetd/internal/ddl"
)

// BuildCreateTableSQL returns a SQLite CREATE TABLE statement for td:
//
//	CREATE TABLE "table" (
//	  "id" INTEGER NOT NULL,
//	  "col" TEXT,
//	  PRIMARY KEY ("id")
//	);
func BuildCreateTableSQL(td gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(td, gddl.DoubleQuote)
}

// BuildDropTableSQL returns DROP TABLE IF EXISTS "table";
func BuildDropTableSQL(table string) (string, error) {
	return gddl.BuildDropTableSQL(table, gddl.DoubleQuote)
}
