package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"datasetd/internal/typeinfer"
	"datasetd/internal/xmldoc"
)

// CoerceCell converts a raw leaf value to the Go value stored for type t.
//
//   - Text: the string itself; a missing leaf is "".
//   - Integer: int64, or nil when missing or not an integral number.
//   - Numeric: decimal.Decimal, or nil when missing or unparsable.
//
// Numeric inputs accept a comma decimal separator ("12,5"). Integer inputs
// do not: "1,000" is not an integer and is stored as nil.
func CoerceCell(raw string, present bool, t typeinfer.StorageType) any {
	switch t {
	case typeinfer.Integer:
		d, ok := parseDecimal(raw, present, false)
		if !ok || !d.IsInteger() {
			return nil
		}
		if !d.Equal(decimal.NewFromInt(d.IntPart())) {
			// Outside int64.
			return nil
		}
		return d.IntPart()
	case typeinfer.Numeric:
		d, ok := parseDecimal(raw, present, true)
		if !ok {
			return nil
		}
		return d
	default:
		if !present {
			return ""
		}
		return raw
	}
}

func parseDecimal(raw string, present, commaDecimal bool) (decimal.Decimal, bool) {
	if !present {
		return decimal.Decimal{}, false
	}
	s := strings.TrimSpace(raw)
	if commaDecimal {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ExtractRows pulls one value per column from every row of doc, in cols
// order, coerced to each column's storage type.
func ExtractRows(doc *xmldoc.Document, cols []ColumnSpec) ([][]any, error) {
	if doc == nil {
		return nil, fmt.Errorf("extract rows: nil document")
	}
	rows := doc.Rows()
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		vals := make([]any, len(cols))
		for i, c := range cols {
			raw, ok := xmldoc.Leaf(r, c.Element)
			vals[i] = CoerceCell(raw, ok, c.Type)
		}
		out = append(out, vals)
	}
	return out, nil
}

// LoadRows extracts the rows of doc and bulk-inserts them into table.
//
// batchSize <= 0 sends every row in one batch, so a load costs a single
// round trip. An empty document is a valid load: it is logged and returns
// (0, nil) without touching the store.
func LoadRows(
	ctx context.Context,
	repo Repository,
	table string,
	cols []ColumnSpec,
	doc *xmldoc.Document,
	batchSize int,
	log *zap.Logger,
) (int64, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rows, err := ExtractRows(doc, cols)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		log.Info("no rows to load", zap.String("table", table), zap.Int64("rows", 0))
		return 0, nil
	}
	if batchSize <= 0 || batchSize > len(rows) {
		batchSize = len(rows)
	}

	in := make(chan []any, len(rows))
	for _, r := range rows {
		in <- r
	}
	close(in)

	start := time.Now()
	copyFn := func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
		return repo.CopyFrom(ctx, table, columns, batch)
	}
	n, err := LoadBatches(ctx, Idents(cols), in, batchSize, copyFn, log.With(zap.String("table", table)))
	if err != nil {
		return n, fmt.Errorf("load %s: %w", table, err)
	}
	log.Info("rows loaded",
		zap.String("table", table),
		zap.Int64("rows", n),
		zap.Duration("duration", time.Since(start)),
	)
	return n, nil
}
