// Package xmldoc converts tabular data into a generic two-level XML document
// and gives read access to it.
//
// The document shape is fixed:
//
//	<dataset>
//	  <row><region>Austria</region><year>2020</year></row>
//	  ...
//	</dataset>
//
// Each row holds one leaf per column, named by ElementNames(columns). Parsed
// documents are backed by an xmlquery tree so they can be queried with XPath.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"datasetd/internal/apperrors"
	"datasetd/internal/parser"
)

const (
	// RootTag is the document element.
	RootTag = "dataset"
	// RowTag is the repeated record element.
	RowTag = "row"
)

// Document is a parsed dataset document. It is immutable after construction
// and safe for concurrent readers.
type Document struct {
	raw  []byte
	doc  *xmlquery.Node
	root *xmlquery.Node
	rows []*xmlquery.Node

	// elems maps each source column to its leaf element. It is only known
	// for documents built by Convert.
	elems map[string]string
}

// Convert renders tbl as a dataset document. Missing cells become empty
// leaves. It also returns the ordered column names of tbl.
func Convert(tbl *parser.Table) (*Document, []string, error) {
	if tbl == nil {
		return nil, nil, fmt.Errorf("xmldoc: %w: nil table", apperrors.ErrSourceNotFound)
	}
	elems := ElementNames(tbl.Columns)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	start := func(name string) error { return enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}}) }
	end := func(name string) error { return enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}}) }

	if err := start(RootTag); err != nil {
		return nil, nil, fmt.Errorf("xmldoc: encode: %w", err)
	}
	for _, row := range tbl.Rows {
		if err := start(RowTag); err != nil {
			return nil, nil, fmt.Errorf("xmldoc: encode: %w", err)
		}
		for i, el := range elems {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if err := start(el); err != nil {
				return nil, nil, fmt.Errorf("xmldoc: encode %s: %w", el, err)
			}
			if cell != "" {
				if err := enc.EncodeToken(xml.CharData(cell)); err != nil {
					return nil, nil, fmt.Errorf("xmldoc: encode %s: %w", el, err)
				}
			}
			if err := end(el); err != nil {
				return nil, nil, fmt.Errorf("xmldoc: encode %s: %w", el, err)
			}
		}
		if err := end(RowTag); err != nil {
			return nil, nil, fmt.Errorf("xmldoc: encode: %w", err)
		}
	}
	if err := end(RootTag); err != nil {
		return nil, nil, fmt.Errorf("xmldoc: encode: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, nil, fmt.Errorf("xmldoc: encode: %w", err)
	}

	doc, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, nil, err
	}
	doc.elems = make(map[string]string, len(elems))
	for i, c := range tbl.Columns {
		if _, ok := doc.elems[c]; !ok {
			doc.elems[c] = elems[i]
		}
	}
	return doc, append([]string(nil), tbl.Columns...), nil
}

// Parse reads a document from r.
func Parse(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("xmldoc: read: %w", err)
	}
	node, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("xmldoc: parse: %w", err)
	}
	d := &Document{raw: raw, doc: node, root: firstElement(node)}
	if d.root != nil {
		for _, c := range Elements(d.root) {
			if c.Data == RowTag {
				d.rows = append(d.rows, c)
			}
		}
	}
	return d, nil
}

// Load parses the document stored at path. A missing file is reported as
// apperrors.ErrSourceNotFound.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("xmldoc: %w: %s", apperrors.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("xmldoc: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// WriteFile persists the document bytes to path, replacing any previous file
// atomically.
func (d *Document) WriteFile(path string) error {
	return writeAtomic(path, d.raw)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() []byte { return d.raw }

// Node returns the xmlquery document node (parent of the root element).
func (d *Document) Node() *xmlquery.Node { return d.doc }

// Root returns the document element, or nil for an empty document.
func (d *Document) Root() *xmlquery.Node { return d.root }

// Rows returns the row elements in document order.
func (d *Document) Rows() []*xmlquery.Node { return d.rows }

// FirstRow returns the first row element or apperrors.ErrEmptyDocument.
func (d *Document) FirstRow() (*xmlquery.Node, error) {
	if len(d.rows) == 0 {
		return nil, apperrors.ErrEmptyDocument
	}
	return d.rows[0], nil
}

// Fields returns the leaf element names of the first row, in order. It is
// empty for a document without rows.
func (d *Document) Fields() []string {
	first, err := d.FirstRow()
	if err != nil {
		return nil
	}
	kids := Elements(first)
	out := make([]string, len(kids))
	for i, k := range kids {
		out[i] = k.Data
	}
	return out
}

// ElementFor returns the leaf element Convert assigned to column col.
func (d *Document) ElementFor(col string) (string, bool) {
	el, ok := d.elems[col]
	return el, ok
}

// Leaf returns the text of the first child element of row named name and
// whether it exists.
func Leaf(row *xmlquery.Node, name string) (string, bool) {
	for _, c := range Elements(row) {
		if c.Data == name {
			return c.InnerText(), true
		}
	}
	return "", false
}

// Elements returns the element children of n in order.
func Elements(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// HasElementChildren reports whether n contains any element.
func HasElementChildren(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// ElementNames maps cols to element names with ElementName. Names that
// would repeat an earlier one get a _2, _3, ... suffix, so every column owns
// a distinct leaf.
func ElementNames(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, len(cols))
	for i, c := range cols {
		base := ElementName(c)
		name := base
		for k := 2; seen[name]; k++ {
			name = base + "_" + strconv.Itoa(k)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

// ElementName maps a column name to a valid XML element name. Runes that may
// not appear in a name become '_', and a name that cannot start as-is (digit,
// '-', '.', or a reserved "xml" prefix) is prefixed with '_'.
func ElementName(col string) string {
	col = strings.TrimSpace(col)
	if col == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range col {
		switch {
		case r == '_' || isLetter(r):
			b.WriteRune(r)
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
			b.WriteRune(r)
		case i == 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
			b.WriteByte('_')
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if strings.HasPrefix(strings.ToLower(name), "xml") {
		name = "_" + name
	}
	return name
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r > 0x7f && xmlNameRune(r))
}

// xmlNameRune accepts the non-ASCII NameStartChar ranges of XML 1.0 (5th ed).
func xmlNameRune(r rune) bool {
	switch {
	case r >= 0xC0 && r <= 0xD6, r >= 0xD8 && r <= 0xF6, r >= 0xF8 && r <= 0x2FF,
		r >= 0x370 && r <= 0x37D, r >= 0x37F && r <= 0x1FFF, r >= 0x200C && r <= 0x200D,
		r >= 0x2070 && r <= 0x218F, r >= 0x2C00 && r <= 0x2FEF, r >= 0x3001 && r <= 0xD7FF,
		r >= 0xF900 && r <= 0xFDCF, r >= 0xFDF0 && r <= 0xFFFD, r >= 0x10000 && r <= 0xEFFFF:
		return true
	}
	return false
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("xmldoc: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("xmldoc: create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("xmldoc: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("xmldoc: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("xmldoc: rename %s: %w", path, err)
	}
	return nil
}
