// Command datasetd serves dataset uploads and filter queries over HTTP.
//
// Configuration comes from an optional YAML file (-config) with DATASETD_*
// environment overrides. With -validate the configuration is linted and the
// process exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"datasetd/internal/config"
	"datasetd/internal/datasource"
	"datasetd/internal/datasource/file"
	"datasetd/internal/datasource/httpds"
	"datasetd/internal/logging"
	"datasetd/internal/metrics"
	"datasetd/internal/metrics/datadog"
	"datasetd/internal/metrics/prompush"
	"datasetd/internal/pipeline"
	"datasetd/internal/query"
	"datasetd/internal/server"
	"datasetd/internal/storage"

	// register all backends with the storage factory.
	_ "datasetd/internal/storage/all"
)

func main() {
	var (
		cfgPath  string
		validate bool
	)
	flag.StringVar(&cfgPath, "config", "", "YAML config path (env-only when empty)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := cfg.Validate()
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if len(config.Errors(issues)) > 0 {
		fatalf("configuration is invalid")
	}
	if validate {
		fmt.Fprintln(os.Stderr, "configuration is valid")
		os.Exit(0)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("datasetd stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	metricsHandler, closeMetrics, err := setupMetrics(cfg.Metrics, log)
	if err != nil {
		return err
	}
	defer closeMetrics()

	orch := pipeline.New(pipeline.Options{
		Store: storage.Config{Kind: cfg.Store.Kind, DSN: cfg.StoreDSN()},
		Retry: storage.RetryPolicy{
			Interval: cfg.Store.ConnectInterval,
			Timeout:  cfg.Store.ConnectTimeout,
		},
		BatchSize: cfg.Store.BatchSize,
		XMLPath:   cfg.OutputXMLPath(),
		XSDPath:   cfg.OutputXSDPath(),
		Job:       cfg.Metrics.Job,
	}, log)
	engine := query.New(query.Options{
		Job:         cfg.Metrics.Job,
		ResultsPath: cfg.Data.FilteredResultsPath,
	}, log)

	if cfg.Data.PreloadPath != "" {
		preload(ctx, orch, preloadSource(cfg.Data.PreloadPath, log), cfg.Data.PreloadTable, cfg.Server.RequestTimeout, log)
	}

	srv := server.NewServer(server.Config{
		Addr:           cfg.Server.Addr,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ChunkSize:      cfg.Server.ChunkSize,
		UploadsDir:     cfg.UploadsDir(),
		Metrics:        metricsHandler,
	}, orch, engine, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// setupMetrics installs the configured metrics backend. It returns the
// scrape handler (prometheus backend only) and a cleanup func that flushes.
func setupMetrics(m config.MetricsConfig, log *zap.Logger) (http.Handler, func(), error) {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", zap.Error(err))
		}
	}
	switch m.Backend {
	case "", "none":
		log.Debug("metrics: disabled")
		return nil, func() {}, nil
	case "prometheus":
		b, err := prompush.NewScrapeBackend(m.Job)
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		return b.Handler(), func() {}, nil
	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics: pushgateway", zap.String("url", m.PushgatewayURL), zap.String("job", m.Job))
		return nil, flush, nil
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.Namespace,
			GlobalTags: m.Tags,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics: datadog", zap.String("addr", m.DatadogAddr))
		return nil, func() {
			flush()
			_ = b.Close()
		}, nil
	default:
		return nil, nil, fmt.Errorf("metrics: unknown backend %q", m.Backend)
	}
}

// preloadSource opens path as a URL or a local file.
func preloadSource(path string, log *zap.Logger) datasource.Source {
	if httpds.IsURL(path) {
		return httpds.NewSource(httpds.NewClient(httpds.Config{MaxRetries: 3}, log), path)
	}
	return file.NewLocal(path)
}

// preload runs one load at startup. Failures are logged; the server starts
// regardless.
func preload(ctx context.Context, orch *pipeline.Orchestrator, src datasource.Source, table string, timeout time.Duration, log *zap.Logger) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := orch.Load(ctx, src, table)
	switch {
	case err != nil:
		log.Error("preload failed", zap.String("source", src.Name()), zap.Error(err))
	case !res.Valid:
		log.Warn("preload rejected", zap.String("source", src.Name()), zap.String("message", res.Message))
	default:
		log.Info("preload complete", zap.String("table", res.Table), zap.Int64("rows", res.Rows))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
