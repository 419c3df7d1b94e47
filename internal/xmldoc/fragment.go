package xmldoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Fragment serializes a node and its subtree compactly, e.g.
// "<row><region>Austria</region></row>".
func Fragment(n *xmlquery.Node) string {
	return n.OutputXML(true)
}

// WriteIndented writes an XML declaration and a rootTag element wrapping
// nodes, indented by two spaces. Whitespace-only text is dropped so that
// already-indented input does not accumulate blank lines.
func WriteIndented(w io.Writer, rootTag string, nodes []*xmlquery.Node) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: rootTag}}); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := encodeNode(enc, n); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: rootTag}}); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteIndentedFile is WriteIndented into path, replaced atomically.
func WriteIndentedFile(path, rootTag string, nodes []*xmlquery.Node) error {
	var buf bytes.Buffer
	if err := WriteIndented(&buf, rootTag, nodes); err != nil {
		return fmt.Errorf("xmldoc: render %s: %w", path, err)
	}
	return writeAtomic(path, buf.Bytes())
}

func encodeNode(enc *xml.Encoder, n *xmlquery.Node) error {
	switch n.Type {
	case xmlquery.ElementNode:
		start := xml.StartElement{Name: xml.Name{Local: n.Data}}
		for _, a := range n.Attr {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name.Local}, Value: a.Value})
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := encodeNode(enc, c); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())
	case xmlquery.TextNode, xmlquery.CharDataNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return enc.EncodeToken(xml.CharData(n.Data))
	default:
		return nil
	}
}
