package schema

import (
	"fmt"

	"datasetd/internal/apperrors"
	"datasetd/internal/xmldoc"
)

// Infer builds a Schema from the root element and first row of doc. Only
// the first row is inspected. Every leaf is KindString.
func Infer(doc *xmldoc.Document) (*Schema, error) {
	if doc == nil || doc.Root() == nil {
		return nil, fmt.Errorf("schema: %w", apperrors.ErrEmptyDocument)
	}
	first, err := doc.FirstRow()
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	s := &Schema{
		Root:         doc.Root().Data,
		Row:          first.Data,
		RowMinOccurs: 0,
		RowMaxOccurs: Unbounded,
	}
	for _, leaf := range xmldoc.Elements(first) {
		s.Fields = append(s.Fields, Field{Name: leaf.Data, Kind: KindString})
	}
	return s, nil
}
