// Package xlsx reads the first worksheet of an Excel workbook into a
// parser.Table. The first row is the header.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"datasetd/internal/parser"
)

// Parser reads XLSX workbooks.
type Parser struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string
}

// NewParser returns a Parser for the named sheet ("" = first).
func NewParser(sheet string) *Parser { return &Parser{Sheet: sheet} }

// Read implements parser.Reader.
func (p *Parser) Read(ctx context.Context, r io.Reader) (*parser.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := p.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: rows of %q: %w", sheet, err)
	}
	defer func() { _ = rows.Close() }()

	tbl := &parser.Table{}
	first := true
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("xlsx: read row: %w", err)
		}
		if first {
			tbl.Columns = parser.NormalizeHeader(cells)
			first = false
			continue
		}
		if blank(cells) {
			continue
		}
		if len(cells) > len(tbl.Columns) {
			cells = cells[:len(tbl.Columns)]
		}
		tbl.Rows = append(tbl.Rows, parser.PadRow(cells, len(tbl.Columns)))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return tbl, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
