// Package schema infers a structural XSD from a dataset document and
// validates documents against it.
//
// A schema only describes shape: the root element, one repeatable row
// element and the ordered leaf elements of a row. Leaves are generated as
// xs:string; storage typing is decided separately from column names.
package schema

import "fmt"

// Unbounded is the MaxOccurs value for maxOccurs="unbounded".
const Unbounded = -1

// LeafKind is the simple type of a leaf element.
type LeafKind string

const (
	KindString  LeafKind = "string"
	KindInteger LeafKind = "integer"
	KindDecimal LeafKind = "decimal"
)

// Field is one leaf element of a row.
type Field struct {
	Name string
	Kind LeafKind
}

// Schema describes a two-level dataset document.
type Schema struct {
	Root         string
	Row          string
	RowMinOccurs int
	RowMaxOccurs int // Unbounded for no limit
	Fields       []Field
}

// FieldNames returns the leaf names in order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

func (k LeafKind) xsdType() string { return "xs:" + string(k) }

// parseKind maps an xsd type reference such as "xs:string" to a LeafKind.
func parseKind(ref string) (LeafKind, error) {
	local := ref
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			local = ref[i+1:]
			break
		}
	}
	switch local {
	case "", "string", "normalizedString", "token":
		return KindString, nil
	case "integer", "int", "long", "short", "nonNegativeInteger", "positiveInteger":
		return KindInteger, nil
	case "decimal", "double", "float":
		return KindDecimal, nil
	default:
		return "", fmt.Errorf("schema: unsupported type %q", ref)
	}
}
