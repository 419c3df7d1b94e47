package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"datasetd/internal/config"
	"datasetd/internal/datasource/file"
	"datasetd/internal/datasource/httpds"
	"datasetd/internal/pipeline"
	"datasetd/internal/storage"
)

func TestSetupMetrics(t *testing.T) {
	log := zaptest.NewLogger(t)

	h, cleanup, err := setupMetrics(config.MetricsConfig{Backend: "none"}, log)
	require.NoError(t, err)
	assert.Nil(t, h)
	cleanup()

	h, cleanup, err = setupMetrics(config.MetricsConfig{Backend: "prometheus", Job: "test"}, log)
	require.NoError(t, err)
	assert.NotNil(t, h)
	cleanup()

	_, _, err = setupMetrics(config.MetricsConfig{Backend: "pushgateway", Job: "test"}, log)
	assert.Error(t, err, "pushgateway requires a url")

	_, _, err = setupMetrics(config.MetricsConfig{Backend: "carrier-pigeon"}, log)
	assert.Error(t, err)
}

func TestPreloadSource(t *testing.T) {
	log := zaptest.NewLogger(t)
	assert.IsType(t, &httpds.Source{}, preloadSource("https://example.com/data/ev.csv", log))
	assert.IsType(t, &file.Local{}, preloadSource("/srv/data/ev.csv", log))
}

func TestPreload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ev_sales.csv")
	require.NoError(t, os.WriteFile(src, []byte("region,year,value\nAustria,2020,100\n"), 0o644))

	log := zaptest.NewLogger(t)
	orch := pipeline.New(pipeline.Options{
		Store:   storage.Config{Kind: "sqlite", DSN: filepath.Join(dir, "store.db")},
		Retry:   storage.RetryPolicy{Interval: 10 * time.Millisecond, Timeout: time.Second},
		XMLPath: filepath.Join(dir, "output.xml"),
		XSDPath: filepath.Join(dir, "output.xsd"),
	}, log)

	preload(context.Background(), orch, preloadSource(src, log), "", time.Minute, log)
	st := orch.Status()
	assert.True(t, st.Valid)
	assert.Equal(t, "ev_sales_csv", st.Table)

	// A missing source is logged, not fatal.
	preload(context.Background(), orch, preloadSource(filepath.Join(dir, "nope.csv"), log), "other", time.Minute, log)
	assert.Equal(t, "ev_sales_csv", orch.Status().Table)
}
