package xlsx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestRead(t *testing.T) {
	t.Parallel()

	buf := workbook(t, [][]any{
		{"region", "year", "value"},
		{"Austria", 2020, 100},
		{"Germany", 2021},
	})

	tbl, err := NewParser("").Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "year", "value"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Austria", "2020", "100"}, tbl.Rows[0])
	assert.Equal(t, []string{"Germany", "2021", ""}, tbl.Rows[1])
}

func TestReadMissingSheet(t *testing.T) {
	t.Parallel()

	buf := workbook(t, [][]any{{"a"}})
	_, err := NewParser("Nope").Read(context.Background(), buf)
	assert.Error(t, err)
}

func TestReadNotAWorkbook(t *testing.T) {
	t.Parallel()

	_, err := NewParser("").Read(context.Background(), bytes.NewBufferString("a,b\n1,2\n"))
	assert.Error(t, err)
}
