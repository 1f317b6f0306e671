package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mallard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestLoadConfig_Defaults verifies the built-in defaults when no other
// source is present.
func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err, "explicit missing config file should fail")

	ResetConfig()
	cfg, err = LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.False(t, cfg.ReadOnly)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, "table", cfg.Format)
}

// TestLoadConfig_FromFile verifies values read from an explicit config file.
func TestLoadConfig_FromFile(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfigFile(t, `database: warehouse.duckdb
read_only: true
history_limit: 25
format: json
table: users
extensions:
  - json
  - httpfs
settings:
  threads: "4"
  memory_limit: 4GB
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "warehouse.duckdb", cfg.Database)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "users", cfg.Table)
	assert.Equal(t, []string{"json", "httpfs"}, cfg.Extensions)
	assert.Equal(t, map[string]string{"threads": "4", "memory_limit": "4GB"}, cfg.Settings)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

// TestLoadConfig_EnvOverridesFile verifies that env vars override the file.
func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfigFile(t, `history_limit: 25
format: csv
`)

	require.NoError(t, os.Setenv("MALLARD_HISTORY_LIMIT", "99"))
	require.NoError(t, os.Setenv("MALLARD_READ_ONLY", "true"))
	defer func() {
		_ = os.Unsetenv("MALLARD_HISTORY_LIMIT")
		_ = os.Unsetenv("MALLARD_READ_ONLY")
	}()

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, 99, cfg.HistoryLimit, "env var should override config file")
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, "csv", cfg.Format, "file value should survive where no env var is set")
}

// TestLoadConfig_FlagPrecedence verifies that explicitly set flags win over
// env vars and the config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfigFile(t, `format: csv`)

	require.NoError(t, os.Setenv("MALLARD_FORMAT", "json"))
	defer func() { _ = os.Unsetenv("MALLARD_FORMAT") }()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "table", "output format")
	require.NoError(t, flags.Set("format", "md"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "md", cfg.Format, "flag value should override config file and env var")
}

// TestLoadConfig_UnchangedFlagDoesNotOverride verifies that a flag left at
// its default does not shadow lower-precedence sources.
func TestLoadConfig_UnchangedFlagDoesNotOverride(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfigFile(t, `format: csv`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "table", "output format")
	// Note: not calling flags.Set(), so Changed is false

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Format, "file value should be used when flag is not set")
}

// TestLoadConfig_FlagPathsBecomeAbsolute verifies path flags are anchored to
// the CWD and that the --state flag maps onto state_path.
func TestLoadConfig_FlagPathsBecomeAbsolute(t *testing.T) {
	ResetConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database", "", "database file")
	flags.String("state", "", "history database file")
	require.NoError(t, flags.Set("database", "data/local.duckdb"))
	require.NoError(t, flags.Set("state", "state/history.db"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Database), "database path should be absolute, got %q", cfg.Database)
	assert.True(t, filepath.IsAbs(cfg.StatePath), "state path should be absolute, got %q", cfg.StatePath)
	assert.Equal(t, "local.duckdb", filepath.Base(cfg.Database))
	assert.Equal(t, "history.db", filepath.Base(cfg.StatePath))
}

// TestLoadConfig_MemoryDatabaseKeptVerbatim verifies :memory: is never
// treated as a relative path.
func TestLoadConfig_MemoryDatabaseKeptVerbatim(t *testing.T) {
	ResetConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database", "", "database file")
	require.NoError(t, flags.Set("database", ":memory:"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.Database)
}

// TestConfig_Validate tests the Config.Validate method.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr string
	}{
		{
			name: "valid",
			cfg:  Config{Output: "text", Format: "table"},
		},
		{
			name:      "bad output",
			cfg:       Config{Output: "xml", Format: "table"},
			wantErr:   true,
			errSubstr: "invalid output",
		},
		{
			name:      "bad format",
			cfg:       Config{Output: "text", Format: "parquet"},
			wantErr:   true,
			errSubstr: "invalid format",
		},
		{
			name:      "negative history limit",
			cfg:       Config{Output: "json", Format: "csv", HistoryLimit: -1},
			wantErr:   true,
			errSubstr: "history_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestGetLogger verifies the context round-trip and the discard fallback.
func TestGetLogger(t *testing.T) {
	ctx := t.Context()

	logger := GetLogger(ctx)
	require.NotNil(t, logger, "missing logger should fall back to a discard logger")
}
