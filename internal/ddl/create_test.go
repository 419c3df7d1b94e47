package ddl

import (
	"strings"
	"testing"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	td := TableDef{
		Name: "ev_sales_csv",
		Columns: []ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "region", SQLType: "TEXT", Nullable: true},
			{Name: "year", SQLType: "BIGINT", Nullable: true},
		},
	}
	got, err := BuildCreateTableSQL(td, DoubleQuote)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL() error = %v", err)
	}
	want := "CREATE TABLE \"ev_sales_csv\" (\n" +
		"  \"id\" BIGINT NOT NULL,\n" +
		"  \"region\" TEXT,\n" +
		"  \"year\" BIGINT,\n" +
		"  PRIMARY KEY (\"id\")\n" +
		");"
	if got != want {
		t.Fatalf("BuildCreateTableSQL() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCreateTableSQL_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		td      TableDef
		quote   Quoter
		wantErr string
	}{
		{"empty name", TableDef{Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}}, DoubleQuote, "table name"},
		{"no columns", TableDef{Name: "t"}, DoubleQuote, "at least one column"},
		{"blank column", TableDef{Name: "t", Columns: []ColumnDef{{Name: " ", SQLType: "TEXT"}}}, DoubleQuote, "empty name"},
		{"missing type", TableDef{Name: "t", Columns: []ColumnDef{{Name: "a"}}}, DoubleQuote, "missing SQLType"},
		{"nil quoter", TableDef{Name: "t", Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}}, nil, "quoter"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := BuildCreateTableSQL(tt.td, tt.quote)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildDropTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildDropTableSQL(`we"ird`, DoubleQuote)
	if err != nil {
		t.Fatalf("BuildDropTableSQL() error = %v", err)
	}
	if want := `DROP TABLE IF EXISTS "we""ird";`; got != want {
		t.Fatalf("BuildDropTableSQL() = %q, want %q", got, want)
	}
	if _, err := BuildDropTableSQL("  ", DoubleQuote); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestDoubleQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"region", `"region"`},
		{"", `""`},
		{"model year", `"model year"`},
		{`we"ird`, `"we""ird"`},
		{`"a""b"`, `"""a""""b"""`},
	}
	for _, tt := range tests {
		if got := DoubleQuote(tt.in); got != tt.want {
			t.Errorf("DoubleQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
