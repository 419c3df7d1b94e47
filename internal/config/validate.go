package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block startup.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced but does not
	// block startup.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "store.kind"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Errors filters issues down to those with SeverityError.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			out = append(out, iss)
		}
	}
	return out
}

// Validate performs static validation of c. It does not mutate c.
func (c Config) Validate() []Issue {
	var issues []Issue
	issues = append(issues, validateServer(c.Server)...)
	issues = append(issues, validateStore(c.Store)...)
	issues = append(issues, validateData(c.Data)...)
	issues = append(issues, validateLog(c.Log)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateServer(s ServerConfig) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Addr) == "" {
		issues = append(issues, Issue{SeverityError, "server.addr", "addr must not be empty"})
	}
	if s.RequestTimeout <= 0 {
		issues = append(issues, Issue{SeverityError, "server.request_timeout", "request_timeout must be > 0"})
	}
	if s.MaxUploadBytes <= 0 {
		issues = append(issues, Issue{SeverityError, "server.max_upload_bytes", "max_upload_bytes must be > 0"})
	}
	if s.ChunkSize <= 0 {
		issues = append(issues, Issue{SeverityError, "server.chunk_size", "chunk_size must be > 0"})
	}
	return issues
}

func validateStore(s StoreConfig) []Issue {
	var issues []Issue

	known := map[string]bool{
		"postgres": true,
		"mssql":    true,
		"sqlite":   true,
	}
	kind := strings.TrimSpace(s.Kind)
	switch {
	case kind == "":
		issues = append(issues, Issue{SeverityError, "store.kind", "kind must not be empty"})
	case !known[kind]:
		issues = append(issues, Issue{SeverityError, "store.kind", fmt.Sprintf("unknown store kind %q (expected postgres, mssql or sqlite)", kind)})
	}

	if kind != "sqlite" && strings.TrimSpace(s.DSN) == "" && strings.TrimSpace(s.Host) == "" {
		issues = append(issues, Issue{SeverityError, "store.dsn", "either dsn or host must be set"})
	}

	if s.ConnectInterval <= 0 {
		issues = append(issues, Issue{SeverityError, "store.connect_interval", "connect_interval must be > 0"})
	}
	if s.ConnectTimeout <= 0 {
		issues = append(issues, Issue{SeverityError, "store.connect_timeout", "connect_timeout must be > 0"})
	} else if s.ConnectInterval > s.ConnectTimeout {
		issues = append(issues, Issue{SeverityWarning, "store.connect_interval", "connect_interval exceeds connect_timeout; only one attempt will be made"})
	}

	if s.BatchSize < 0 {
		issues = append(issues, Issue{SeverityWarning, "store.batch_size", "negative batch_size is treated as 0 (single batch)"})
	}
	return issues
}

func validateData(d DataConfig) []Issue {
	var issues []Issue
	if strings.TrimSpace(d.Dir) == "" {
		issues = append(issues, Issue{SeverityError, "data.dir", "dir must not be empty"})
	}
	if d.PreloadTable != "" && d.PreloadPath == "" {
		issues = append(issues, Issue{SeverityWarning, "data.preload_table", "preload_table is ignored without preload_path"})
	}
	return issues
}

func validateLog(l LogConfig) []Issue {
	var issues []Issue
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		issues = append(issues, Issue{SeverityError, "log.level", fmt.Sprintf("invalid level %q", l.Level)})
	}
	switch l.Format {
	case "json", "console":
	default:
		issues = append(issues, Issue{SeverityError, "log.format", fmt.Sprintf("invalid format %q (expected json or console)", l.Format)})
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none", "prometheus":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway_url is required for the pushgateway backend"})
		} else if u, err := url.Parse(m.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", fmt.Sprintf("invalid url %q", m.PushgatewayURL)})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog_addr is required for the datadog backend"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend", fmt.Sprintf("unknown backend %q (expected none, prometheus, pushgateway or datadog)", m.Backend)})
	}
	if strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{SeverityWarning, "metrics.job", "job is empty; metrics will use the default job name"})
	}
	return issues
}
