package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"datasetd/internal/apperrors"
	"datasetd/internal/logging"
	"datasetd/internal/xmldoc"
)

// maxProblems caps the problems collected by Check.
const maxProblems = 20

var (
	integerRe = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalRe = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
)

// Problem is one structural mismatch between a document and a schema.
type Problem struct {
	Row     int // 1-based row index, 0 for document-level problems
	Message string
}

func (p Problem) String() string {
	if p.Row == 0 {
		return p.Message
	}
	return fmt.Sprintf("row %d: %s", p.Row, p.Message)
}

// Check validates doc against s and returns up to maxProblems problems.
// An empty result means the document is valid.
func Check(s *Schema, doc *xmldoc.Document) []Problem {
	var out []Problem
	add := func(row int, format string, args ...any) bool {
		out = append(out, Problem{Row: row, Message: fmt.Sprintf(format, args...)})
		return len(out) < maxProblems
	}

	root := doc.Root()
	if root == nil {
		add(0, "document has no root element")
		return out
	}
	if root.Data != s.Root {
		add(0, "root element is <%s>, want <%s>", root.Data, s.Root)
		return out
	}

	rows := 0
	for _, child := range xmldoc.Elements(root) {
		if child.Data != s.Row {
			if !add(0, "unexpected element <%s> under <%s>", child.Data, s.Root) {
				return out
			}
			continue
		}
		rows++
		if p, bad := checkRow(s, child); bad {
			if !add(rows, "%s", p) {
				return out
			}
		}
	}

	if rows < s.RowMinOccurs {
		add(0, "%d <%s> elements, want at least %d", rows, s.Row, s.RowMinOccurs)
	}
	if s.RowMaxOccurs != Unbounded && rows > s.RowMaxOccurs {
		add(0, "%d <%s> elements, want at most %d", rows, s.Row, s.RowMaxOccurs)
	}
	return out
}

// checkRow reports the first mismatch in a row's leaf sequence.
func checkRow(s *Schema, row *xmlquery.Node) (string, bool) {
	leaves := xmldoc.Elements(row)
	for i, f := range s.Fields {
		if i >= len(leaves) {
			return fmt.Sprintf("missing <%s>", f.Name), true
		}
		leaf := leaves[i]
		if leaf.Data != f.Name {
			return fmt.Sprintf("found <%s> where <%s> is expected", leaf.Data, f.Name), true
		}
		if xmldoc.HasElementChildren(leaf) {
			return fmt.Sprintf("<%s> must be a simple element", f.Name), true
		}
		if msg, bad := checkValue(f, leaf.InnerText()); bad {
			return msg, true
		}
	}
	if len(leaves) > len(s.Fields) {
		return fmt.Sprintf("unexpected element <%s>", leaves[len(s.Fields)].Data), true
	}
	return "", false
}

func checkValue(f Field, v string) (string, bool) {
	v = strings.TrimSpace(v)
	switch f.Kind {
	case KindInteger:
		if !integerRe.MatchString(v) {
			return fmt.Sprintf("<%s> value %q is not an integer", f.Name, v), true
		}
	case KindDecimal:
		if !decimalRe.MatchString(v) {
			return fmt.Sprintf("<%s> value %q is not a decimal", f.Name, v), true
		}
	}
	return "", false
}

// Validator checks documents against a schema file.
type Validator struct {
	log *zap.Logger
}

// NewValidator returns a Validator that logs problems to log.
func NewValidator(log *zap.Logger) *Validator {
	return &Validator{log: logging.OrNop(log)}
}

// ValidateFile loads the schema at schemaPath and checks doc against it.
//
// It returns apperrors.ErrSchemaUnavailable only when schemaPath is empty
// (no schema was generated yet). A missing or malformed schema file, or a
// non-conforming document, yields false with a nil error.
func (v *Validator) ValidateFile(schemaPath string, doc *xmldoc.Document) (bool, error) {
	if strings.TrimSpace(schemaPath) == "" {
		return false, apperrors.ErrSchemaUnavailable
	}
	if doc == nil {
		v.log.Warn("schema: nothing to validate")
		return false, nil
	}

	s, err := LoadFile(schemaPath)
	if err != nil {
		lvl := v.log.Warn
		if !errors.Is(err, apperrors.ErrSchemaUnavailable) {
			lvl = v.log.Error
		}
		lvl("schema: cannot load schema", zap.String("path", schemaPath), zap.Error(err))
		return false, nil
	}

	problems := Check(s, doc)
	for _, p := range problems {
		v.log.Warn("schema: document does not conform", zap.Int("row", p.Row), zap.String("problem", p.Message))
	}
	return len(problems) == 0, nil
}
