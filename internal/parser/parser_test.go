package parser

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	got := NormalizeHeader([]string{" region ", "", "year", "year", "year_2", "year"})
	assert.Equal(t, []string{"region", "column_2", "year", "year_2", "year_2_2", "year_3"}, got)
}

func TestRegistryFor(t *testing.T) {
	t.Parallel()

	csvReader := ReaderFunc(func(context.Context, io.Reader) (*Table, error) { return &Table{Columns: []string{"csv"}}, nil })
	xlsxReader := ReaderFunc(func(context.Context, io.Reader) (*Table, error) { return &Table{Columns: []string{"xlsx"}}, nil })
	reg := Registry{"": csvReader, ".xlsx": xlsxReader}

	tests := []struct {
		name string
		want string
	}{
		{"sales.csv", "csv"},
		{"sales.CSV.gz", "csv"},
		{"book.xlsx", "xlsx"},
		{"book.XLSX.zst", "xlsx"},
		{"noext", "csv"},
	}
	for _, tt := range tests {
		rd, err := reg.For(tt.name)
		require.NoError(t, err, tt.name)
		tbl, err := rd.Read(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, tbl.Columns[0], tt.name)
	}

	_, err := Registry{}.For("x.csv")
	assert.Error(t, err)
}

func TestPadRow(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "", ""}, PadRow([]string{"a"}, 3))
	assert.Equal(t, []string{"a", "b"}, PadRow([]string{"a", "b"}, 1))
}
