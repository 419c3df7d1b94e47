// Package pipeline runs the dataset load sequence (convert, infer schema,
// validate, recreate table, load rows) and tracks the most recent load.
//
// An Orchestrator owns the single "current dataset" of the process. Loads
// take its write lock for the whole sequence; queries read the current
// document under the read lock via View.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"datasetd/internal/apperrors"
	"datasetd/internal/datasource"
	"datasetd/internal/logging"
	"datasetd/internal/metrics"
	"datasetd/internal/parser"
	"datasetd/internal/parser/csv"
	jsonparser "datasetd/internal/parser/json"
	"datasetd/internal/parser/xlsx"
	"datasetd/internal/schema"
	"datasetd/internal/storage"
	"datasetd/internal/typeinfer"
	"datasetd/internal/xmldoc"
)

// DefaultJob labels metrics when Options.Job is empty.
const DefaultJob = "datasetd"

// Options configures an Orchestrator.
type Options struct {
	Store     storage.Config
	Retry     storage.RetryPolicy
	BatchSize int

	// XMLPath and XSDPath receive the converted document and the generated
	// schema of every load.
	XMLPath string
	XSDPath string

	// Job labels metrics.
	Job string

	// Readers picks a tabular reader by source name. Nil uses DefaultReaders.
	Readers parser.Registry
}

// DefaultReaders reads .xlsx with excelize, JSON record streams by
// extension, and everything else as delimited text with a sniffed delimiter.
func DefaultReaders() parser.Registry {
	text := csv.NewParser(csv.Options{TrimSpace: true, LazyQuotes: true})
	records := jsonparser.NewParser()
	return parser.Registry{
		".csv":    text,
		".tsv":    text,
		".txt":    text,
		".xlsx":   xlsx.NewParser(""),
		".json":   records,
		".ndjson": records,
		".jsonl":  records,
		"":        text,
	}
}

// Status describes the tracked dataset.
type Status struct {
	Table    string    `json:"table"`
	Valid    bool      `json:"valid"`
	Rows     int64     `json:"rows"`
	Columns  []string  `json:"columns"`
	LoadID   string    `json:"load_id,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// Result is the outcome of one Load.
type Result struct {
	Status
	Message string
}

// Orchestrator sequences loads and guards the current dataset.
type Orchestrator struct {
	opts      Options
	log       *zap.Logger
	validator *schema.Validator

	mu     sync.RWMutex
	status Status
	doc    *xmldoc.Document
}

// New returns an Orchestrator with no dataset loaded.
func New(opts Options, log *zap.Logger) *Orchestrator {
	log = logging.OrNop(log)
	if opts.Readers == nil {
		opts.Readers = DefaultReaders()
	}
	if opts.Job == "" {
		opts.Job = DefaultJob
	}
	return &Orchestrator{
		opts:      opts,
		log:       log,
		validator: schema.NewValidator(log),
	}
}

// Status returns a copy of the tracked dataset status.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := o.status
	st.Columns = append([]string(nil), o.status.Columns...)
	return st
}

// View calls fn with the current document while holding the read lock.
// It returns apperrors.ErrNotReady when no valid dataset is loaded.
func (o *Orchestrator) View(fn func(doc *xmldoc.Document, st Status) error) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.status.Valid || o.doc == nil {
		return apperrors.ErrNotReady
	}
	return fn(o.doc, o.status)
}

// Load runs the full sequence for src under table. The table name is
// normalized with storage.TableName; an empty table derives it from
// src.Name().
//
// A document that fails schema validation yields a Result with Valid=false
// and a nil error. An empty or invalid document, or a missing schema, marks
// the tracked dataset invalid. Source and store failures before the table
// is dropped leave it untouched; once the drop has run, any failure marks
// it invalid.
func (o *Orchestrator) Load(ctx context.Context, src datasource.Source, table string) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if table == "" {
		table = src.Name()
	}
	table = storage.TableName(table)
	loadID := uuid.NewString()
	log := o.log.With(zap.String("load_id", loadID), zap.String("table", table))
	res := Result{Status: Status{Table: table, LoadID: loadID}}

	var (
		doc   *xmldoc.Document
		names []string
	)
	err := o.step(log, metrics.StepConvert, func() error {
		var err error
		doc, names, err = o.convert(ctx, src)
		if err != nil {
			return err
		}
		return doc.WriteFile(o.opts.XMLPath)
	})
	if err != nil {
		return res, fmt.Errorf("convert: %w", err)
	}
	res.Columns = names

	err = o.step(log, metrics.StepInferSchema, func() error {
		s, err := schema.Infer(doc)
		if err != nil {
			return err
		}
		return s.WriteFile(o.opts.XSDPath)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrEmptyDocument) {
			res.Message = "dataset has no rows"
			o.invalidate(table, names, loadID)
		}
		return res, fmt.Errorf("infer schema: %w", err)
	}

	var valid bool
	err = o.step(log, metrics.StepValidate, func() error {
		var err error
		valid, err = o.validator.ValidateFile(o.opts.XSDPath, doc)
		if err == nil && !valid {
			err = errors.New("document does not conform to schema")
		}
		return err
	})
	if !valid {
		o.invalidate(table, names, loadID)
		if err != nil && errors.Is(err, apperrors.ErrSchemaUnavailable) {
			return res, fmt.Errorf("validate: %w", err)
		}
		res.Message = "dataset failed schema validation"
		log.Warn("load aborted", zap.String("step", metrics.StepValidate))
		return res, nil
	}

	repo, err := storage.OpenWithRetry(ctx, o.opts.Store, o.opts.Retry, log)
	if err != nil {
		return res, err
	}
	defer repo.Close()
	dialect, err := storage.DialectFor(o.opts.Store.Kind)
	if err != nil {
		return res, err
	}
	cols := storage.PlanColumns(typeinfer.Columns(names))

	var dropped bool
	err = o.step(log, metrics.StepCreateTable, func() error {
		var err error
		dropped, err = storage.RecreateTable(ctx, repo, dialect, table, cols)
		return err
	})
	if err != nil {
		if dropped {
			o.invalidate(table, names, loadID)
		}
		return res, err
	}

	var n int64
	err = o.step(log, metrics.StepLoadRows, func() error {
		var err error
		n, err = storage.LoadRows(ctx, repo, table, cols, doc, o.opts.BatchSize, log)
		return err
	})
	if err != nil {
		o.invalidate(table, names, loadID)
		return res, err
	}
	metrics.RecordRows(o.opts.Job, "loaded", n)

	res.Valid = true
	res.Rows = n
	res.LoadedAt = time.Now().UTC()
	res.Message = fmt.Sprintf("loaded %d rows into %s", n, table)
	o.status = res.Status
	o.doc = doc
	log.Info("dataset ready", zap.Int64("rows", n), zap.Int("columns", len(names)))
	return res, nil
}

// convert reads src with the registered reader and renders the document.
func (o *Orchestrator) convert(ctx context.Context, src datasource.Source) (*xmldoc.Document, []string, error) {
	rd, err := o.opts.Readers.For(src.Name())
	if err != nil {
		return nil, nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	tbl, err := rd.Read(ctx, rc)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	return xmldoc.Convert(tbl)
}

// invalidate records that table no longer holds a trustworthy dataset.
func (o *Orchestrator) invalidate(table string, names []string, loadID string) {
	o.status = Status{Table: table, Columns: names, LoadID: loadID}
	o.doc = nil
}

func (o *Orchestrator) step(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStep(o.opts.Job, name, err, d)
	if err != nil {
		log.Warn("step failed", zap.String("step", name), zap.Duration("duration", d), zap.Error(err))
		return err
	}
	log.Debug("step done", zap.String("step", name), zap.Duration("duration", d))
	return nil
}
