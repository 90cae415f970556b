package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daveohlh/scopemigrate/internal/config"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the scopemigrate CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "scopemigrate",
	Version: version,
	Short:   "Multi-scope PostgreSQL schema migration orchestrator",
	Long: `scopemigrate manages independent migration histories for a core
application and its pluggable extensions inside one PostgreSQL database.
Each scope owns its tables, keeps its own version record, and migrates
without touching objects owned by other scopes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", "scopemigrate.yml", "path to configuration file")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("migrations-dir", "", "path to revision artifacts")
	rootCmd.PersistentFlags().String("models-file", "", "path to the declared-model file")
	rootCmd.PersistentFlags().Bool("sandbox", false, "run against the sandbox database")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
}

// Execute runs the root command. Called from main.
func Execute() {
	ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context so in-flight
// operations observe cancellation.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)
	mergeFlags(cmd, cfg)

	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}

	if cmd.Flags().Changed("migrations-dir") {
		cfg.MigrationsDir, _ = cmd.Flags().GetString("migrations-dir")
	}

	if cmd.Flags().Changed("models-file") {
		cfg.ModelsFile, _ = cmd.Flags().GetString("models-file")
	}

	if cmd.Flags().Changed("sandbox") {
		cfg.Sandbox, _ = cmd.Flags().GetBool("sandbox")
	}
}
