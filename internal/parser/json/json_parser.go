// Package json reads JSON record streams into a parser.Table.
//
// Two layouts are accepted:
//
//   - newline-delimited objects: {"region":"Austria"}\n{"region":"Germany"}
//   - a single top-level array of objects: [{"region":"Austria"}, ...]
//
// Columns are the union of object keys in first-seen order. Scalars become
// their JSON text (strings unquoted), null becomes an empty cell, and nested
// values are kept as compact JSON.
package json

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"datasetd/internal/parser"
)

// Parser reads JSON input. It holds no per-call state.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser { return &Parser{} }

// Read implements parser.Reader.
func (p *Parser) Read(ctx context.Context, r io.Reader) (*parser.Table, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if errors.Is(err, io.EOF) {
		return &parser.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()
	inArray := first == '['
	if inArray {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	}

	var (
		cols    []string
		index   = map[string]int{}
		records []map[string]string
	)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if inArray && !dec.More() {
			break
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) && !inArray {
				break
			}
			return nil, fmt.Errorf("json: record %d: %w", n, err)
		}
		obj, err := decodeObject(raw)
		if err != nil {
			return nil, fmt.Errorf("json: record %d: %w", n, err)
		}
		for _, k := range obj.keys {
			if _, ok := index[k]; !ok {
				index[k] = len(cols)
				cols = append(cols, k)
			}
		}
		records = append(records, obj.vals)
	}
	if inArray {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("json: unterminated array: %w", err)
		}
	}

	tbl := &parser.Table{Columns: parser.NormalizeHeader(append([]string(nil), cols...))}
	for _, rec := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = rec[c]
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// firstByte returns the first non-whitespace byte of br without consuming it.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

type orderedObject struct {
	keys []string
	vals map[string]string
}

// decodeObject walks one object token by token so key order survives.
func decodeObject(raw json.RawMessage) (orderedObject, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return orderedObject{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return orderedObject{}, fmt.Errorf("top-level value is not an object")
	}

	obj := orderedObject{vals: map[string]string{}}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return orderedObject{}, err
		}
		key, _ := kt.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return orderedObject{}, err
		}
		if _, dup := obj.vals[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.vals[key] = cell(v)
	}
	return obj, nil
}

// cell renders a JSON value as a table cell.
func cell(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")):
		return ""
	case v[0] == '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	case v[0] == '{' || v[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err == nil {
			return buf.String()
		}
	}
	return string(v)
}
