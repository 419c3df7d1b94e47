package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"datasetd/internal/apperrors"
)

const xsNamespace = "http://www.w3.org/2001/XMLSchema"

// Output shapes use literal "xs:" names so the file reads like a
// hand-written schema.
type xsdOut struct {
	XMLName            xml.Name      `xml:"xs:schema"`
	XS                 string        `xml:"xmlns:xs,attr"`
	ElementFormDefault string        `xml:"elementFormDefault,attr"`
	Element            xsdOutElement `xml:"xs:element"`
}

type xsdOutElement struct {
	Name      string         `xml:"name,attr"`
	Type      string         `xml:"type,attr,omitempty"`
	MinOccurs string         `xml:"minOccurs,attr,omitempty"`
	MaxOccurs string         `xml:"maxOccurs,attr,omitempty"`
	Complex   *xsdOutComplex `xml:"xs:complexType,omitempty"`
}

type xsdOutComplex struct {
	Sequence []xsdOutElement `xml:"xs:sequence>xs:element"`
}

// Input shapes match on the XML Schema namespace, whatever prefix is used.
type xsdIn struct {
	XMLName  xml.Name       `xml:"http://www.w3.org/2001/XMLSchema schema"`
	Elements []xsdInElement `xml:"http://www.w3.org/2001/XMLSchema element"`
}

type xsdInElement struct {
	Name      string        `xml:"name,attr"`
	Type      string        `xml:"type,attr"`
	MinOccurs string        `xml:"minOccurs,attr"`
	MaxOccurs string        `xml:"maxOccurs,attr"`
	Complex   *xsdInComplex `xml:"http://www.w3.org/2001/XMLSchema complexType"`
}

type xsdInComplex struct {
	Sequence *xsdInSequence `xml:"http://www.w3.org/2001/XMLSchema sequence"`
}

type xsdInSequence struct {
	Elements []xsdInElement `xml:"http://www.w3.org/2001/XMLSchema element"`
}

// MarshalXSD renders s as an indented XSD document.
func (s *Schema) MarshalXSD() ([]byte, error) {
	if s.Root == "" || s.Row == "" {
		return nil, errors.New("schema: root and row names are required")
	}

	leaves := make([]xsdOutElement, len(s.Fields))
	for i, f := range s.Fields {
		kind := f.Kind
		if kind == "" {
			kind = KindString
		}
		leaves[i] = xsdOutElement{Name: f.Name, Type: kind.xsdType()}
	}

	row := xsdOutElement{
		Name:      s.Row,
		MinOccurs: strconv.Itoa(s.RowMinOccurs),
		MaxOccurs: occursString(s.RowMaxOccurs),
		Complex:   &xsdOutComplex{Sequence: leaves},
	}
	doc := xsdOut{
		XS:                 xsNamespace,
		ElementFormDefault: "qualified",
		Element: xsdOutElement{
			Name:    s.Root,
			Complex: &xsdOutComplex{Sequence: []xsdOutElement{row}},
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("schema: encode: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteFile writes the XSD to path, creating parent directories.
func (s *Schema) WriteFile(path string) error {
	b, err := s.MarshalXSD()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("schema: mkdir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("schema: write %s: %w", path, err)
	}
	return nil
}

// Parse reads an XSD of the two-level dataset shape produced by MarshalXSD.
func Parse(r io.Reader) (*Schema, error) {
	var in xsdIn
	if err := xml.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}
	if len(in.Elements) != 1 {
		return nil, fmt.Errorf("schema: want exactly one top-level element, got %d", len(in.Elements))
	}
	root := in.Elements[0]
	if root.Name == "" || root.Complex == nil || root.Complex.Sequence == nil || len(root.Complex.Sequence.Elements) != 1 {
		return nil, errors.New("schema: root element must hold a sequence of one row element")
	}
	row := root.Complex.Sequence.Elements[0]
	if row.Name == "" || row.Complex == nil || row.Complex.Sequence == nil {
		return nil, errors.New("schema: row element must hold a sequence of leaves")
	}

	s := &Schema{Root: root.Name, Row: row.Name}
	var err error
	if s.RowMinOccurs, err = parseOccurs(row.MinOccurs, 1); err != nil {
		return nil, err
	}
	if s.RowMinOccurs == Unbounded {
		return nil, errors.New("schema: minOccurs cannot be unbounded")
	}
	if s.RowMaxOccurs, err = parseOccurs(row.MaxOccurs, 1); err != nil {
		return nil, err
	}
	for _, leaf := range row.Complex.Sequence.Elements {
		if leaf.Name == "" || leaf.Complex != nil {
			return nil, fmt.Errorf("schema: row child %q must be a named simple element", leaf.Name)
		}
		kind, err := parseKind(leaf.Type)
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, Field{Name: leaf.Name, Kind: kind})
	}
	return s, nil
}

// LoadFile parses the XSD at path. A missing file matches
// apperrors.ErrSchemaUnavailable.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("schema: %w: %s", apperrors.ErrSchemaUnavailable, path)
		}
		return nil, fmt.Errorf("schema: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func occursString(n int) string {
	if n == Unbounded {
		return "unbounded"
	}
	return strconv.Itoa(n)
}

func parseOccurs(s string, def int) (int, error) {
	switch s {
	case "":
		return def, nil
	case "unbounded":
		return Unbounded, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("schema: bad occurs value %q", s)
	}
	return n, nil
}
