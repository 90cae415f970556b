package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultMigrationsDir      = "./migrations"
	DefaultModelsFile         = "./models.yml"
	DefaultVersionTablePrefix = "schema_version"
	DefaultLockTimeout        = 5 * time.Second
	DefaultStatementTimeout   = 30 * time.Second
)

// Config holds the orchestrator configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL        string
	SandboxDatabaseURL string
	MigrationsDir      string
	ModelsFile         string
	VersionTablePrefix string
	LockTimeout        time.Duration
	StatementTimeout   time.Duration
	Extensions         []string
	Sandbox            bool
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL        string   `yaml:"database_url"`
	SandboxDatabaseURL string   `yaml:"sandbox_database_url"`
	MigrationsDir      string   `yaml:"migrations_dir"`
	ModelsFile         string   `yaml:"models_file"`
	VersionTablePrefix string   `yaml:"version_table_prefix"`
	LockTimeout        string   `yaml:"lock_timeout"`
	StatementTimeout   string   `yaml:"statement_timeout"`
	Extensions         []string `yaml:"extensions"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir:      DefaultMigrationsDir,
		ModelsFile:         DefaultModelsFile,
		VersionTablePrefix: DefaultVersionTablePrefix,
		LockTimeout:        DefaultLockTimeout,
		StatementTimeout:   DefaultStatementTimeout,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if raw.SandboxDatabaseURL != "" {
		cfg.SandboxDatabaseURL = raw.SandboxDatabaseURL
	}

	if raw.MigrationsDir != "" {
		cfg.MigrationsDir = raw.MigrationsDir
	}

	if raw.ModelsFile != "" {
		cfg.ModelsFile = raw.ModelsFile
	}

	if raw.VersionTablePrefix != "" {
		cfg.VersionTablePrefix = raw.VersionTablePrefix
	}

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if len(raw.Extensions) > 0 {
		cfg.Extensions = normalizeList(raw.Extensions)
	}

	return cfg, nil
}

// MergeEnv overrides config fields from MIGRATE_* environment variables.
// MIGRATE_EXTENSIONS is the comma-separated enabled-extensions list; an
// absent or empty value leaves the config-file list untouched.
func MergeEnv(cfg *Config) {
	if v := os.Getenv("MIGRATE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv("MIGRATE_SANDBOX_DATABASE_URL"); v != "" {
		cfg.SandboxDatabaseURL = v
	}

	if v := os.Getenv("MIGRATE_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}

	if v := os.Getenv("MIGRATE_MODELS_FILE"); v != "" {
		cfg.ModelsFile = v
	}

	if v := os.Getenv("MIGRATE_EXTENSIONS"); v != "" {
		cfg.Extensions = ParseExtensionsList(v)
	}

	if v := os.Getenv("MIGRATE_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}
}

// ParseExtensionsList splits a comma-separated enabled-extensions value,
// trimming whitespace and dropping empty entries.
func ParseExtensionsList(v string) []string {
	return normalizeList(strings.Split(v, ","))
}

func normalizeList(in []string) []string {
	var out []string

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}

	return out
}

// EffectiveDatabaseURL returns the sandbox URL when sandbox mode is enabled
// and a sandbox URL is configured, otherwise the primary URL.
func (c *Config) EffectiveDatabaseURL() string {
	if c.Sandbox && c.SandboxDatabaseURL != "" {
		return c.SandboxDatabaseURL
	}

	return c.DatabaseURL
}
