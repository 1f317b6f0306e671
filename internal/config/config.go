// Package config provides configuration management for the mallard CLI.
//
// Values are merged from four sources, lowest to highest precedence:
// built-in defaults, a mallard.yaml config file, MALLARD_ environment
// variables, and command-line flags.
package config

import "fmt"

// Config holds all CLI configuration options.
type Config struct {
	Database     string `koanf:"database"`
	ReadOnly     bool   `koanf:"read_only"`
	StatePath    string `koanf:"state_path"`
	HistoryLimit int    `koanf:"history_limit"`
	Verbose      bool   `koanf:"verbose"`
	Output       string `koanf:"output"`
	Format       string `koanf:"format"`
	Table        string `koanf:"table"`

	// Extensions and Settings come from the config file only and are
	// applied to every connection the CLI opens.
	Extensions []string          `koanf:"extensions"`
	Settings   map[string]string `koanf:"settings"`
}

// Default configuration values.
const (
	// DefaultDatabase opens an in-memory database when no file is given.
	DefaultDatabase = ""

	// DefaultStatePath resolves to the per-user history database.
	DefaultStatePath = ""

	DefaultHistoryLimit = 1000
	DefaultOutput       = "text"
	DefaultFormat       = "table"
)

// Validate checks enum-valued fields.
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output %q: must be text or json", c.Output)
	}
	switch c.Format {
	case "table", "json", "csv", "md":
	default:
		return fmt.Errorf("invalid format %q: must be table, json, csv or md", c.Format)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("invalid history_limit %d: must not be negative", c.HistoryLimit)
	}
	return nil
}
