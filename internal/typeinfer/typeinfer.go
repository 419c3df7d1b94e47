// Package typeinfer assigns a storage type to a column from its name alone.
//
// Inference is a pure function of the column name: observed values are never
// consulted. Matching is case-insensitive and ignores whitespace, so
// "Model Year", "model_year" and "MODELYEAR" all resolve the same way.
package typeinfer

import (
	"strings"
	"unicode"
)

// StorageType is the relational storage class of a column.
type StorageType int

const (
	Text StorageType = iota
	Integer
	Numeric
)

// String returns the lower-case logical name of t, which is also the form
// accepted by the dialect MapType helpers.
func (t StorageType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Numeric:
		return "numeric"
	default:
		return "text"
	}
}

// Keyword tables. Integer keywords are consulted first, so a name that
// matches both (e.g. "amount_id") is Integer.
var (
	integerKeywords = []string{"year", "id", "quantity", "age"}
	numericKeywords = []string{"amount", "price", "cost", "profit", "revenue", "distance", "value"}
)

// Infer maps a column name to its StorageType. Every name maps to at least
// Text.
func Infer(name string) StorageType {
	key := squash(name)
	if key == "" {
		return Text
	}
	for _, kw := range integerKeywords {
		if strings.Contains(key, kw) {
			return Integer
		}
	}
	for _, kw := range numericKeywords {
		if strings.Contains(key, kw) {
			return Numeric
		}
	}
	return Text
}

// Column pairs an original column name with its inferred type.
type Column struct {
	Name string
	Type StorageType
}

// Columns infers types for an ordered list of names, preserving order.
func Columns(names []string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{Name: n, Type: Infer(n)}
	}
	return out
}

// squash lower-cases s and drops all whitespace.
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
