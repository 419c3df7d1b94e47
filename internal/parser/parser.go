// Package parser turns tabular source files into a Table of named columns and
// string cells. Concrete readers live in subpackages (csv, xlsx); a
// Registry picks one from the source file name.
package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// Table is an ordered set of column names plus rows of string cells. Every
// row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Reader parses a whole tabular source.
type Reader interface {
	Read(ctx context.Context, r io.Reader) (*Table, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, r io.Reader) (*Table, error)

// Read implements Reader.
func (f ReaderFunc) Read(ctx context.Context, r io.Reader) (*Table, error) { return f(ctx, r) }

// Registry maps lower-case file extensions (".csv", ".xlsx") to readers.
// The empty extension key is the fallback.
type Registry map[string]Reader

// For returns the reader for name. Compression suffixes (.gz, .zst, .xz,
// .bz2) are ignored when choosing.
func (reg Registry) For(name string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(TrimCompressionExt(name)))
	if rd, ok := reg[ext]; ok {
		return rd, nil
	}
	if rd, ok := reg[""]; ok {
		return rd, nil
	}
	return nil, fmt.Errorf("parser: no reader for %q", name)
}

// TrimCompressionExt strips one known compression suffix from name.
func TrimCompressionExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".gz", ".zst", ".zstd", ".xz", ".bz2"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// NormalizeHeader fills blank header cells with "column_N" (1-based) and
// disambiguates duplicates with "_2", "_3", ... suffixes. The input slice is
// modified in place and returned.
func NormalizeHeader(cols []string) []string {
	seen := make(map[string]int, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(c)
		if c == "" {
			c = "column_" + strconv.Itoa(i+1)
		}
		base := c
		for n := seen[base]; n > 0; n++ {
			cand := base + "_" + strconv.Itoa(n+1)
			if _, taken := seen[cand]; !taken {
				c = cand
				break
			}
		}
		seen[base]++
		if c != base {
			seen[c]++
		}
		cols[i] = c
	}
	return cols
}

// PadRow returns row extended with empty cells up to width.
func PadRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
