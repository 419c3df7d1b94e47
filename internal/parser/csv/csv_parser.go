// Package csv reads delimited text into a parser.Table. The first record is
// the header; short rows are padded with empty cells and long rows are
// rejected with their line number.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"datasetd/internal/parser"
)

// Options configures the CSV reader. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, the delimiter is sniffed
	// from the header line (',' ';' '\t' '|'), falling back to ','.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each cell.
	TrimSpace bool

	// LazyQuotes relaxes quote handling for hand-edited files.
	LazyQuotes bool
}

// Parser reads CSV input according to Options. It is safe to reuse across
// inputs and holds no per-call state.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Read implements parser.Reader.
func (p *Parser) Read(ctx context.Context, r io.Reader) (*parser.Table, error) {
	br := newPeekReader(r)
	comma := p.opt.Comma
	if comma == 0 {
		comma = sniffDelimiter(br.peekLine())
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &parser.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	header = parser.NormalizeHeader(StripHeaderBOM(header))

	tbl := &parser.Table{Columns: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if len(rec) == 1 && rec[0] == "" && len(header) > 1 {
			continue
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("csv: line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		if p.opt.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		tbl.Rows = append(tbl.Rows, parser.PadRow(rec, len(header)))
	}
	return tbl, nil
}

// sniffDelimiter picks the candidate that occurs most often in line outside
// of quoted sections.
func sniffDelimiter(line string) rune {
	candidates := []rune{',', ';', '\t', '|'}
	counts := make(map[rune]int, len(candidates))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}
	best := ','
	for _, c := range candidates {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
