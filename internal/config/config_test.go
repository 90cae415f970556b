package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveohlh/scopemigrate/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scopemigrate.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestNew_defaults(t *testing.T) {
	t.Parallel()

	cfg := config.New()

	assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
	assert.Equal(t, config.DefaultModelsFile, cfg.ModelsFile)
	assert.Equal(t, config.DefaultVersionTablePrefix, cfg.VersionTablePrefix)
	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
	assert.Equal(t, config.DefaultStatementTimeout, cfg.StatementTimeout)
	assert.Empty(t, cfg.Extensions)
	assert.False(t, cfg.Sandbox)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "full config",
			content: `database_url: postgres://app:secret@db/prod
sandbox_database_url: postgres://app:secret@db/scratch
migrations_dir: ./db/revisions
models_file: ./db/models.yml
version_table_prefix: revtrack
lock_timeout: 10s
statement_timeout: 2m
extensions:
  - audit
  - billing
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://app:secret@db/prod", cfg.DatabaseURL)
				assert.Equal(t, "postgres://app:secret@db/scratch", cfg.SandboxDatabaseURL)
				assert.Equal(t, "./db/revisions", cfg.MigrationsDir)
				assert.Equal(t, "./db/models.yml", cfg.ModelsFile)
				assert.Equal(t, "revtrack", cfg.VersionTablePrefix)
				assert.Equal(t, 10*time.Second, cfg.LockTimeout)
				assert.Equal(t, 2*time.Minute, cfg.StatementTimeout)
				assert.Equal(t, []string{"audit", "billing"}, cfg.Extensions)
			},
		},
		{
			name:    "partial config keeps defaults",
			content: "database_url: postgres://db/app\n",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://db/app", cfg.DatabaseURL)
				assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
				assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
			},
		},
		{
			name:    "extension entries are trimmed",
			content: "extensions: [' audit ', '', 'billing']\n",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, []string{"audit", "billing"}, cfg.Extensions)
			},
		},
		{
			name:        "invalid lock_timeout",
			content:     "lock_timeout: soon\n",
			wantErr:     true,
			errContains: "parsing lock_timeout",
		},
		{
			name:        "invalid statement_timeout",
			content:     "statement_timeout: 5 parsecs\n",
			wantErr:     true,
			errContains: "parsing statement_timeout",
		},
		{
			name:        "malformed yaml",
			content:     "database_url: [unclosed\n",
			wantErr:     true,
			errContains: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)

			cfg, err := config.Load(path, false)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)

				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.yml")

	cfg, err := config.Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, config.New(), cfg)

	_, err = config.Load(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestMergeEnv(t *testing.T) { //nolint:paralleltest // mutates process environment
	t.Setenv("MIGRATE_DATABASE_URL", "postgres://env/db")
	t.Setenv("MIGRATE_SANDBOX_DATABASE_URL", "postgres://env/scratch")
	t.Setenv("MIGRATE_MIGRATIONS_DIR", "/env/migrations")
	t.Setenv("MIGRATE_MODELS_FILE", "/env/models.yml")
	t.Setenv("MIGRATE_EXTENSIONS", "audit, billing ,")
	t.Setenv("MIGRATE_LOCK_TIMEOUT", "7s")
	t.Setenv("MIGRATE_STATEMENT_TIMEOUT", "90s")

	cfg := config.New()
	config.MergeEnv(cfg)

	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "postgres://env/scratch", cfg.SandboxDatabaseURL)
	assert.Equal(t, "/env/migrations", cfg.MigrationsDir)
	assert.Equal(t, "/env/models.yml", cfg.ModelsFile)
	assert.Equal(t, []string{"audit", "billing"}, cfg.Extensions)
	assert.Equal(t, 7*time.Second, cfg.LockTimeout)
	assert.Equal(t, 90*time.Second, cfg.StatementTimeout)
}

func TestMergeEnv_invalidDurationsIgnored(t *testing.T) { //nolint:paralleltest // mutates process environment
	t.Setenv("MIGRATE_LOCK_TIMEOUT", "whenever")

	cfg := config.New()
	config.MergeEnv(cfg)

	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
}

func TestParseExtensionsList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, config.ParseExtensionsList("a,b"))
	assert.Equal(t, []string{"audit"}, config.ParseExtensionsList(" audit , "))
	assert.Empty(t, config.ParseExtensionsList(""))
	assert.Empty(t, config.ParseExtensionsList(" , ,"))
}

func TestEffectiveDatabaseURL(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		DatabaseURL:        "postgres://db/prod",
		SandboxDatabaseURL: "postgres://db/scratch",
	}

	assert.Equal(t, "postgres://db/prod", cfg.EffectiveDatabaseURL())

	cfg.Sandbox = true
	assert.Equal(t, "postgres://db/scratch", cfg.EffectiveDatabaseURL())

	cfg.SandboxDatabaseURL = ""
	assert.Equal(t, "postgres://db/prod", cfg.EffectiveDatabaseURL())
}
