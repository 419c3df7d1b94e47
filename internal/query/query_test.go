package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/antchfx/xpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"datasetd/internal/apperrors"
	"datasetd/internal/parser"
	"datasetd/internal/xmldoc"
)

func newDoc(t *testing.T, cols []string, rows ...[]string) *xmldoc.Document {
	t.Helper()
	doc, _, err := xmldoc.Convert(&parser.Table{Columns: cols, Rows: rows})
	require.NoError(t, err)
	return doc
}

func evDoc(t *testing.T) *xmldoc.Document {
	return newDoc(t, []string{"region", "year", "value"},
		[]string{"Austria", "2020", "100"},
		[]string{"Germany", "2021", "200"},
	)
}

func newEngine(opts Options) (*Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return New(opts, zap.New(core)), logs
}

func TestRun_Scenario(t *testing.T) {
	ctx := context.Background()
	doc := evDoc(t)
	e, logs := newEngine(Options{})

	t.Run("match", func(t *testing.T) {
		res, err := e.Run(ctx, doc, map[string]string{"region": "Austria"})
		require.NoError(t, err)
		require.Equal(t, 1, res.Count())
		assert.Contains(t, res.Rows[0], "<region>Austria</region>")
		assert.Contains(t, res.Rows[0], "<year>2020</year>")
		assert.Contains(t, res.Rows[0], "<value>100</value>")
		assert.Empty(t, res.Diagnostics)
	})

	t.Run("value never observed", func(t *testing.T) {
		before := logs.Len()
		res, err := e.Run(ctx, doc, map[string]string{"region": "France"})
		require.NoError(t, err)
		assert.Zero(t, res.Count())
		assert.Empty(t, res.Expr)
		require.Len(t, res.Diagnostics, 1)
		assert.ErrorIs(t, res.Diagnostics[0].Err, apperrors.ErrInvalidFilterValue)
		assert.Equal(t, before+1, logs.Len())
	})

	t.Run("empty request returns all rows", func(t *testing.T) {
		res, err := e.Run(ctx, doc, map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count())
	})
}

func TestRun_DropsUnknownFieldKeepsRest(t *testing.T) {
	e, logs := newEngine(Options{})
	res, err := e.Run(context.Background(), evDoc(t), map[string]string{
		"country": "Austria",
		"year":    "2021",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count())
	assert.Contains(t, res.Rows[0], "<region>Germany</region>")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "country", res.Diagnostics[0].Field)
	assert.ErrorIs(t, res.Diagnostics[0].Err, apperrors.ErrInvalidFilterField)
	assert.Equal(t, 1, logs.FilterMessage("query: filter dropped").Len())
}

func TestRun_AllFiltersDroppedMatchesNothing(t *testing.T) {
	e, _ := newEngine(Options{})
	res, err := e.Run(context.Background(), evDoc(t), map[string]string{
		"value":   "999",
		"country": "Austria",
	})
	require.NoError(t, err)
	assert.Zero(t, res.Count())
	require.Len(t, res.Diagnostics, 2)
	// Sorted field order.
	assert.Equal(t, "country", res.Diagnostics[0].Field)
	assert.Equal(t, "value", res.Diagnostics[1].Field)
}

func TestRun_ANDsConditions(t *testing.T) {
	doc := newDoc(t, []string{"region", "year"},
		[]string{"Austria", "2020"},
		[]string{"Austria", "2021"},
		[]string{"Germany", "2020"},
	)
	e, _ := newEngine(Options{})
	res, err := e.Run(context.Background(), doc, map[string]string{"region": "Austria", "year": "2020"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count())
	assert.Equal(t, "/dataset/row[*[name()='region']='Austria' and *[name()='year']='2020']", res.Expr)
}

func TestRun_MissingColumnAfterReload(t *testing.T) {
	doc := newDoc(t, []string{"region", "year"}, []string{"France", "2022"})
	e, _ := newEngine(Options{})
	res, err := e.Run(context.Background(), doc, map[string]string{"value": "100"})
	require.NoError(t, err)
	assert.Zero(t, res.Count())
	require.Len(t, res.Diagnostics, 1)
	assert.ErrorIs(t, res.Diagnostics[0].Err, apperrors.ErrInvalidFilterField)
}

func TestRun_FieldResolvesThroughElementName(t *testing.T) {
	doc := newDoc(t, []string{"Model Year", "Make"}, []string{"2020", "Skoda"})
	e, _ := newEngine(Options{})
	res, err := e.Run(context.Background(), doc, map[string]string{"Model Year": "2020"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count())
}

func TestRun_CollidingHeadersResolveToOwnColumn(t *testing.T) {
	doc := newDoc(t, []string{"Sales (%)", "Sales (#)"},
		[]string{"12", "300"},
		[]string{"15", "410"},
	)
	e, _ := newEngine(Options{})

	res, err := e.Run(context.Background(), doc, map[string]string{"Sales (#)": "410"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count())
	assert.Contains(t, res.Rows[0], "<Sales_____2>410</Sales_____2>")
	assert.Empty(t, res.Diagnostics)

	res, err = e.Run(context.Background(), doc, map[string]string{"Sales (%)": "300"})
	require.NoError(t, err)
	assert.Zero(t, res.Count())
	require.Len(t, res.Diagnostics, 1)
	assert.ErrorIs(t, res.Diagnostics[0].Err, apperrors.ErrInvalidFilterValue)
}

func TestRun_QuotedValuesAreLiteral(t *testing.T) {
	doc := newDoc(t, []string{"name"},
		[]string{`O'Brien "Bob"`},
		[]string{"plain"},
	)
	e, logs := newEngine(Options{})

	res, err := e.Run(context.Background(), doc, map[string]string{"name": `O'Brien "Bob"`})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count())

	res, err = e.Run(context.Background(), doc, map[string]string{"name": "1' OR '1'='1"})
	require.NoError(t, err)
	assert.Zero(t, res.Count())
	assert.Equal(t, 1, logs.FilterMessage("query: suspicious filter input").Len())
}

func TestRun_WritesFilteredResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filtered_results.xml")
	e, _ := newEngine(Options{ResultsPath: path})

	_, err := e.Run(context.Background(), evDoc(t), map[string]string{"region": "France"})
	require.NoError(t, err)
	assert.NoFileExists(t, path)

	_, err = e.Run(context.Background(), evDoc(t), map[string]string{"region": "Germany"})
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<?xml")
	assert.Contains(t, string(b), "<dataset>")
	assert.Contains(t, string(b), "<region>Germany</region>")
	assert.NotContains(t, string(b), "Austria")
}

func TestRun_NilDocument(t *testing.T) {
	e, _ := newEngine(Options{})
	_, err := e.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
}

func TestLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Austria", "'Austria'"},
		{"", "''"},
		{"O'Brien", `"O'Brien"`},
		{`say "hi"`, `'say "hi"'`},
		{`a'b"c`, `concat('a', "'", 'b"c')`},
		{`'"`, `concat("'", '"')`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := Literal(tt.in)
			if got != tt.want {
				t.Fatalf("Literal(%q) = %s, want %s", tt.in, got, tt.want)
			}
			if _, err := xpath.Compile("/r[x=" + got + "]"); err != nil {
				t.Fatalf("compile %s: %v", got, err)
			}
		})
	}
}
