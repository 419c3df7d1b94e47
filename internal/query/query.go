// Package query answers field/value filter requests against a dataset
// document.
//
// Each requested field is checked against the fields of the document's
// first row, and each value is probed for at least one exact match. Filters
// that fail either check are dropped with a diagnostic; the rest are ANDed
// into a single XPath expression over the row elements.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"datasetd/internal/apperrors"
	"datasetd/internal/logging"
	"datasetd/internal/metrics"
	"datasetd/internal/xmldoc"
)

// Options configures an Engine.
type Options struct {
	// Job labels metrics.
	Job string

	// ResultsPath, when set, receives the matched rows of every query with
	// at least one match.
	ResultsPath string
}

// Condition is one accepted equality filter. Element is the row child the
// field resolved to.
type Condition struct {
	Field   string
	Element string
	Value   string
}

// Diagnostic records a dropped filter. Err is apperrors.ErrInvalidFilterField
// or apperrors.ErrInvalidFilterValue.
type Diagnostic struct {
	Field string
	Value string
	Err   error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s=%q: %v", d.Field, d.Value, d.Err)
}

// Result holds the serialized matching rows and the dropped filters.
type Result struct {
	Rows        []string
	Diagnostics []Diagnostic
	// Expr is the evaluated XPath expression, empty when none ran.
	Expr string
}

// Count is the number of matched rows.
func (r Result) Count() int { return len(r.Rows) }

// Engine runs filter queries. It holds no per-document state and is safe for
// concurrent use.
type Engine struct {
	opts Options
	log  *zap.Logger
}

// New returns an Engine.
func New(opts Options, log *zap.Logger) *Engine {
	if opts.Job == "" {
		opts.Job = "datasetd"
	}
	return &Engine{opts: opts, log: logging.OrNop(log)}
}

// Run evaluates filters against doc. An empty filter map returns every row.
// When every filter is dropped the result is empty.
func (e *Engine) Run(ctx context.Context, doc *xmldoc.Document, filters map[string]string) (res Result, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(e.opts.Job, metrics.StepQuery, err, time.Since(start)) }()

	if doc == nil {
		return Result{}, apperrors.ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var nodes []*xmlquery.Node
	if len(filters) == 0 {
		nodes = doc.Rows()
	} else {
		var conds []Condition
		conds, res.Diagnostics = e.Resolve(doc, filters)
		if len(conds) == 0 {
			return res, nil
		}
		res.Expr = BuildExpr(conds)
		nodes, err = evaluate(doc, res.Expr)
		if err != nil {
			return res, err
		}
	}

	res.Rows = make([]string, len(nodes))
	for i, n := range nodes {
		res.Rows[i] = xmldoc.Fragment(n)
	}
	metrics.RecordRows(e.opts.Job, "matched", int64(len(nodes)))

	if e.opts.ResultsPath != "" && len(nodes) > 0 {
		if werr := xmldoc.WriteIndentedFile(e.opts.ResultsPath, xmldoc.RootTag, nodes); werr != nil {
			e.log.Warn("query: cannot write filtered results", zap.String("path", e.opts.ResultsPath), zap.Error(werr))
		}
	}
	return res, nil
}

// Resolve splits filters into accepted conditions and diagnostics. Filters
// are visited in sorted field order; each dropped filter is logged at WARN.
func (e *Engine) Resolve(doc *xmldoc.Document, filters map[string]string) ([]Condition, []Diagnostic) {
	fields := make(map[string]bool)
	for _, f := range doc.Fields() {
		fields[f] = true
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		conds []Condition
		diags []Diagnostic
	)
	for _, field := range keys {
		value := filters[field]
		e.audit(field, value)

		elem, ok := resolveField(doc, fields, field)
		if !ok {
			diags = append(diags, e.drop(field, value, apperrors.ErrInvalidFilterField, "field_missing"))
			continue
		}
		if !hasValue(doc, elem, value) {
			diags = append(diags, e.drop(field, value, apperrors.ErrInvalidFilterValue, "value_missing"))
			continue
		}
		metrics.RecordFilter(e.opts.Job, "accepted")
		conds = append(conds, Condition{Field: field, Element: elem, Value: value})
	}
	return conds, diags
}

func (e *Engine) drop(field, value string, err error, outcome string) Diagnostic {
	metrics.RecordFilter(e.opts.Job, outcome)
	e.log.Warn("query: filter dropped",
		zap.String("field", field),
		zap.String("value", value),
		zap.Error(err),
	)
	return Diagnostic{Field: field, Value: value, Err: err}
}

// audit logs filter input that looks like SQL injection. The value is still
// matched literally.
func (e *Engine) audit(field, value string) {
	for _, s := range []string{field, value} {
		if ok, fp := libinjection.IsSQLi(s); ok {
			e.log.Warn("query: suspicious filter input",
				zap.String("field", field),
				zap.String("value", value),
				zap.String("fingerprint", fp),
			)
			return
		}
	}
}

// resolveField maps a requested field to a row child name: an exact match
// first, then the element the converter assigned to that column, then the
// element name it would have produced for it.
func resolveField(doc *xmldoc.Document, fields map[string]bool, field string) (string, bool) {
	if fields[field] {
		return field, true
	}
	if el, ok := doc.ElementFor(field); ok && fields[el] {
		return el, true
	}
	if el := xmldoc.ElementName(field); fields[el] {
		return el, true
	}
	return "", false
}

// hasValue reports whether any row has a leaf elem equal to value.
func hasValue(doc *xmldoc.Document, elem, value string) bool {
	for _, row := range doc.Rows() {
		for _, leaf := range xmldoc.Elements(row) {
			if leaf.Data == elem && leaf.InnerText() == value {
				return true
			}
		}
	}
	return false
}

// BuildExpr renders conds as a single XPath selecting rows whose children
// satisfy every condition. Element names are matched through name() so they
// are embedded as literals too:
//
//	/dataset/row[*[name()='region']='Austria' and *[name()='year']='2020']
func BuildExpr(conds []Condition) string {
	preds := make([]string, len(conds))
	for i, c := range conds {
		preds[i] = "*[name()=" + Literal(c.Element) + "]=" + Literal(c.Value)
	}
	return "/" + xmldoc.RootTag + "/" + xmldoc.RowTag + "[" + strings.Join(preds, " and ") + "]"
}

// Literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value containing both quote kinds is split into a
// concat() of single- and double-quoted parts.
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

func evaluate(doc *xmldoc.Document, expr string) ([]*xmlquery.Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("query: compile %q: %w", expr, err)
	}
	return xmlquery.QuerySelectorAll(doc.Node(), compiled), nil
}
