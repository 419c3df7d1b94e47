// Package config loads datasetd configuration from an optional YAML file
// with environment variable overrides, and lints the result.
//
// Environment variables always override YAML values. Secrets (the store
// password) are read from the environment only.
package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the complete datasetd configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Data    DataConfig    `yaml:"data"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"DATASETD_ADDR" env-default:":8080"`

	// RequestTimeout bounds every request, including the store connect
	// retry of an upload.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"DATASETD_REQUEST_TIMEOUT" env-default:"120s"`

	// MaxUploadBytes caps the assembled size of one upload.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"DATASETD_MAX_UPLOAD_BYTES" env-default:"67108864"`

	// ChunkSize is the read size used to feed uploads to the assembler.
	ChunkSize int `yaml:"chunk_size" env:"DATASETD_CHUNK_SIZE" env-default:"65536"`
}

// StoreConfig holds relational store settings. DSN wins over the discrete
// host/port/user/database fields when both are set.
type StoreConfig struct {
	Kind     string `yaml:"kind" env:"DATASETD_STORE_KIND" env-default:"sqlite"`
	DSN      string `yaml:"dsn" env:"DATASETD_STORE_DSN"`
	Host     string `yaml:"host" env:"DATASETD_STORE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASETD_STORE_PORT"`
	User     string `yaml:"user" env:"DATASETD_STORE_USER"`
	Password string `yaml:"-" env:"DATASETD_STORE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASETD_STORE_DATABASE" env-default:"datasetd"`
	SSLMode  string `yaml:"ssl_mode" env:"DATASETD_STORE_SSLMODE" env-default:"disable"`

	ConnectInterval time.Duration `yaml:"connect_interval" env:"DATASETD_STORE_CONNECT_INTERVAL" env-default:"2s"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"DATASETD_STORE_CONNECT_TIMEOUT" env-default:"60s"`

	// BatchSize is the number of rows per bulk insert; 0 loads every row
	// in one batch.
	BatchSize int `yaml:"batch_size" env:"DATASETD_STORE_BATCH_SIZE" env-default:"0"`
}

// DataConfig holds on-disk artifact locations.
type DataConfig struct {
	// Dir holds output.xml, output.xsd and the uploads directory.
	Dir string `yaml:"dir" env:"DATASETD_DATA_DIR" env-default:"data"`

	// FilteredResultsPath, when set, receives the rows of each query with
	// at least one match.
	FilteredResultsPath string `yaml:"filtered_results_path" env:"DATASETD_FILTERED_RESULTS_PATH"`

	// PreloadPath is a file path or http(s) URL loaded once at startup.
	PreloadPath string `yaml:"preload_path" env:"DATASETD_PRELOAD_PATH"`

	// PreloadTable overrides the table name derived from PreloadPath.
	PreloadTable string `yaml:"preload_table" env:"DATASETD_PRELOAD_TABLE"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"DATASETD_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"DATASETD_LOG_FORMAT" env-default:"json"`
}

// MetricsConfig selects and configures the metrics backend.
type MetricsConfig struct {
	Backend        string   `yaml:"backend" env:"DATASETD_METRICS_BACKEND" env-default:"none"`
	PushgatewayURL string   `yaml:"pushgateway_url" env:"DATASETD_PUSHGATEWAY_URL"`
	Job            string   `yaml:"job" env:"DATASETD_METRICS_JOB" env-default:"datasetd"`
	DatadogAddr    string   `yaml:"datadog_addr" env:"DATASETD_DATADOG_ADDR" env-default:"127.0.0.1:8125"`
	Namespace      string   `yaml:"namespace" env:"DATASETD_METRICS_NAMESPACE"`
	Tags           []string `yaml:"tags" env:"DATASETD_METRICS_TAGS" env-separator:","`
}

// Load reads configuration from path with environment variable overrides.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cfg, nil
}

// Usage returns the environment variable help text.
func Usage() string {
	s, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return s
}

// StoreDSN returns the connection string for the configured store kind.
func (c *Config) StoreDSN() string {
	s := c.Store
	if strings.TrimSpace(s.DSN) != "" {
		return s.DSN
	}
	switch s.Kind {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			Host:     hostPort(s.Host, s.Port, 5432),
			Path:     "/" + s.Database,
			RawQuery: url.Values{"sslmode": {s.SSLMode}}.Encode(),
		}
		if s.User != "" {
			u.User = url.UserPassword(s.User, s.Password)
		}
		return u.String()
	case "mssql":
		u := url.URL{
			Scheme:   "sqlserver",
			Host:     hostPort(s.Host, s.Port, 1433),
			RawQuery: url.Values{"database": {s.Database}}.Encode(),
		}
		if s.User != "" {
			u.User = url.UserPassword(s.User, s.Password)
		}
		return u.String()
	case "sqlite":
		return filepath.Join(c.Data.Dir, "datasetd.db")
	default:
		return ""
	}
}

func hostPort(host string, port, def int) string {
	if port <= 0 {
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// OutputXMLPath is where the converted document of the last load is kept.
func (c *Config) OutputXMLPath() string { return filepath.Join(c.Data.Dir, "output.xml") }

// OutputXSDPath is where the schema generated for the last load is kept.
func (c *Config) OutputXSDPath() string { return filepath.Join(c.Data.Dir, "output.xsd") }

// UploadsDir holds persisted upload sources.
func (c *Config) UploadsDir() string { return filepath.Join(c.Data.Dir, "uploads") }
