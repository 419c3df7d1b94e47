// Package ddl contains Postgres-specific helpers for generating DDL.
//
// Identifiers are double-quoted with embedded quotes doubled, and the
// identity column uses the SQL-standard GENERATED BY DEFAULT AS IDENTITY.
package ddl

import (
	gddl "datasetd/internal/ddl"
)

// BuildCreateTableSQL returns a Postgres CREATE TABLE statement for td:
//
//	CREATE TABLE "table" (
//	  "id" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL,
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
