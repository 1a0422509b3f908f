// Package config provides configuration loading for the taqload CLI.
// Configuration merges three sources in priority order: built-in defaults,
// an optional JSON file, and TAQLOAD_* / WRDS_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/quantbench/taqload/internal/taq"
	"github.com/quantbench/taqload/internal/wrds"
)

// Config is the complete application configuration.
type Config struct {
	// Source describes the TAQ library and table layout to query.
	Source SourceConfig `json:"source"`

	// Connection configures the WRDS Postgres client.
	Connection wrds.Config `json:"connection"`

	// Logging configures structured log output.
	Logging LoggingConfig `json:"logging"`

	// Export configures the optional local DuckDB sink.
	Export ExportConfig `json:"export"`
}

// SourceConfig carries the vendor-layout assumptions as configuration: the
// library/schema name, the dated-table naming scheme, and the default
// time-of-day window.
type SourceConfig struct {
	Library           string `json:"library" env:"TAQLOAD_LIBRARY"`
	TradePrefix       string `json:"trade_prefix" env:"TAQLOAD_TRADE_PREFIX"`
	QuotePrefix       string `json:"quote_prefix" env:"TAQLOAD_QUOTE_PREFIX"`
	TableSuffixLayout string `json:"table_suffix_layout" env:"TAQLOAD_TABLE_SUFFIX_LAYOUT"`
	WindowStart       string `json:"window_start" env:"TAQLOAD_WINDOW_START"`
	WindowEnd         string `json:"window_end" env:"TAQLOAD_WINDOW_END"`

	// Verbosity: 0 silent, 1 summary messages, 2 per-query diagnostics.
	Verbosity int `json:"verbosity" env:"TAQLOAD_VERBOSITY"`
}

// Naming returns the table naming scheme.
func (s SourceConfig) Naming() taq.TableNaming {
	return taq.TableNaming{
		TradePrefix:  s.TradePrefix,
		QuotePrefix:  s.QuotePrefix,
		SuffixLayout: s.TableSuffixLayout,
	}
}

// Window returns the default time-of-day window.
func (s SourceConfig) Window() taq.TimeWindow {
	return taq.TimeWindow{Start: s.WindowStart, End: s.WindowEnd}
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"TAQLOAD_LOG_LEVEL"`       // debug, info, warn, error
	Format     string `json:"format" env:"TAQLOAD_LOG_FORMAT"`     // json, text
	Output     string `json:"output" env:"TAQLOAD_LOG_OUTPUT"`     // stdout, stderr, file
	FilePath   string `json:"file_path" env:"TAQLOAD_LOG_FILE"`    // required when output is file
	MaxSize    int    `json:"max_size"`                            // MB per rotated file
	MaxBackups int    `json:"max_backups"`                         // rotated files kept
	MaxAge     int    `json:"max_age"`                             // days
	Compress   bool   `json:"compress"`
}

// ExportConfig configures the DuckDB sink used by the export command.
type ExportConfig struct {
	DatabasePath string `json:"database_path" env:"TAQLOAD_EXPORT_DB"`
}

// DefaultConfig returns the built-in defaults: the WRDS millisecond TAQ
// layout, the regular trading session, and summary verbosity.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Library:           taq.DefaultLibrary,
			TradePrefix:       "ctm",
			QuotePrefix:       "cqm",
			TableSuffixLayout: "20060102",
			WindowStart:       "09:30:00",
			WindowEnd:         "16:00:00",
			Verbosity:         taq.VerbositySummary,
		},
		Connection: wrds.DefaultConfig(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Export: ExportConfig{
			DatabasePath: "taq_ticks.duckdb",
		},
	}
}

// Load builds the configuration from defaults, an optional JSON file, and
// environment variables, then validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides configuration fields from the environment.
func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(dst *int, key string) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}

	setString(&c.Source.Library, "TAQLOAD_LIBRARY")
	setString(&c.Source.TradePrefix, "TAQLOAD_TRADE_PREFIX")
	setString(&c.Source.QuotePrefix, "TAQLOAD_QUOTE_PREFIX")
	setString(&c.Source.TableSuffixLayout, "TAQLOAD_TABLE_SUFFIX_LAYOUT")
	setString(&c.Source.WindowStart, "TAQLOAD_WINDOW_START")
	setString(&c.Source.WindowEnd, "TAQLOAD_WINDOW_END")
	setInt(&c.Source.Verbosity, "TAQLOAD_VERBOSITY")

	setString(&c.Connection.Host, "WRDS_HOST")
	setInt(&c.Connection.Port, "WRDS_PORT")
	setString(&c.Connection.Database, "WRDS_DATABASE")
	setString(&c.Connection.Username, "WRDS_USERNAME")
	setString(&c.Connection.Password, "WRDS_PASSWORD")
	setString(&c.Connection.SSLMode, "WRDS_SSLMODE")

	setString(&c.Logging.Level, "TAQLOAD_LOG_LEVEL")
	setString(&c.Logging.Format, "TAQLOAD_LOG_FORMAT")
	setString(&c.Logging.Output, "TAQLOAD_LOG_OUTPUT")
	setString(&c.Logging.FilePath, "TAQLOAD_LOG_FILE")

	setString(&c.Export.DatabasePath, "TAQLOAD_EXPORT_DB")
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.Source.Naming().Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Source.Window().Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if c.Source.Verbosity < taq.VerbositySilent || c.Source.Verbosity > taq.VerbosityDebug {
		return fmt.Errorf("source: verbosity must be between %d and %d", taq.VerbositySilent, taq.VerbosityDebug)
	}
	if err := c.Connection.Validate(); err != nil {
		return fmt.Errorf("connection: %w", err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging: file path is required when output is 'file'")
	}
	return nil
}
