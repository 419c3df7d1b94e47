package storage

import (
	"context"
	"fmt"

	"datasetd/internal/ddl"
	"datasetd/internal/typeinfer"
	"datasetd/internal/xmldoc"
)

// ColumnSpec ties one dataset column to everything the Table Manager and
// the Row Loader need: the original name, the element that holds its value
// in the document, the SQL identifier and the inferred storage type.
//
// A single []ColumnSpec is built once per load and handed to both
// RecreateTable and LoadRows, so table columns and extracted row values
// always line up.
type ColumnSpec struct {
	Name    string
	Element string
	Ident   string
	Type    typeinfer.StorageType
}

// PlanColumns builds the ordered column plan for a dataset from its column
// names and their inferred types. Elements come from xmldoc.ElementNames
// over the same names, so they match the leaves xmldoc.Convert wrote.
func PlanColumns(cols []typeinfer.Column) []ColumnSpec {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	idents := uniqueIdents(names)
	elems := xmldoc.ElementNames(names)

	out := make([]ColumnSpec, len(cols))
	for i, c := range cols {
		out[i] = ColumnSpec{
			Name:    c.Name,
			Element: elems[i],
			Ident:   idents[i],
			Type:    c.Type,
		}
	}
	return out
}

// Idents returns the SQL identifiers of cols in order.
func Idents(cols []ColumnSpec) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Ident
	}
	return out
}

// TableDef renders the dataset table definition for dialect d: the identity
// primary key followed by one nullable column per entry of cols.
func TableDef(d Dialect, table string, cols []ColumnSpec) ddl.TableDef {
	td := ddl.TableDef{
		Name:    table,
		Columns: make([]ddl.ColumnDef, 0, len(cols)+1),
	}
	td.Columns = append(td.Columns, ddl.ColumnDef{
		Name:       IdentityColumn,
		SQLType:    d.IdentityType,
		PrimaryKey: true,
	})
	for _, c := range cols {
		td.Columns = append(td.Columns, ddl.ColumnDef{
			Name:     c.Ident,
			SQLType:  d.ColumnType(c.Type),
			Nullable: true,
		})
	}
	return td
}

// RecreateTable drops table if it exists and creates it again from cols.
// The operation is destructive: prior structure and rows are discarded.
//
// Both statements are rendered before anything runs, so a rendering error
// leaves the existing table untouched and is reported with dropped=false.
// Once dropped is true the prior table is gone, whatever the outcome.
func RecreateTable(ctx context.Context, repo Repository, d Dialect, table string, cols []ColumnSpec) (dropped bool, err error) {
	if len(cols) == 0 {
		return false, fmt.Errorf("recreate %s: no columns", table)
	}
	createSQL, err := d.CreateTable(TableDef(d, table, cols))
	if err != nil {
		return false, fmt.Errorf("recreate %s: render create: %w", table, err)
	}
	dropSQL, err := d.DropTable(table)
	if err != nil {
		return false, fmt.Errorf("recreate %s: render drop: %w", table, err)
	}

	if err := repo.Exec(ctx, dropSQL); err != nil {
		// The drop may have partially applied; assume the table is gone.
		return true, fmt.Errorf("recreate %s: drop: %w", table, err)
	}
	if err := repo.Exec(ctx, createSQL); err != nil {
		return true, fmt.Errorf("recreate %s: create: %w", table, err)
	}
	return true, nil
}
