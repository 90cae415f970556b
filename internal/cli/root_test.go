package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daveohlh/scopemigrate/internal/config"
)

func flagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")
	cmd.Flags().String("models-file", "", "")
	cmd.Flags().Bool("sandbox", false, "")

	return cmd
}

func TestMergeFlags_databaseURL_overridesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := flagCmd()

	require.NoError(t, cmd.Flags().Set("database-url", "postgres://test:5432/db"))

	mergeFlags(cmd, cfg)
	assert.Equal(t, "postgres://test:5432/db", cfg.DatabaseURL)
}

func TestMergeFlags_sandbox_overridesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := flagCmd()

	require.NoError(t, cmd.Flags().Set("sandbox", "true"))

	mergeFlags(cmd, cfg)
	assert.True(t, cfg.Sandbox)
}

func TestMergeFlags_unchangedFlags_preserveConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.DatabaseURL = "postgres://original:5432/db"
	cfg.MigrationsDir = "/original/dir"
	cfg.ModelsFile = "/original/models.yml"

	mergeFlags(flagCmd(), cfg)
	assert.Equal(t, "postgres://original:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "/original/dir", cfg.MigrationsDir)
	assert.Equal(t, "/original/models.yml", cfg.ModelsFile)
}

func TestLoadConfig_missingFile_usesDefaults(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	cmd := flagCmd()

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, config.DefaultMigrationsDir, AppConfig.MigrationsDir)
	assert.Equal(t, config.DefaultVersionTablePrefix, AppConfig.VersionTablePrefix)
}

func TestLoadConfig_validFile_loadsValues(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "test-config.yml")

	yamlContent := "migrations_dir: /from/yaml\nlock_timeout: 12s\nextensions: [billing]\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	cmd := flagCmd()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, "/from/yaml", AppConfig.MigrationsDir)
	assert.Equal(t, 12*time.Second, AppConfig.LockTimeout)
	assert.Equal(t, []string{"billing"}, AppConfig.Extensions)
}

func TestLoadConfig_invalidFile_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad-config.yml")

	require.NoError(t, os.WriteFile(cfgPath, []byte("extensions: [unclosed"), 0o600))

	cmd := flagCmd()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}
