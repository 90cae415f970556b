package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daveohlh/scopemigrate/internal/config"
	"github.com/daveohlh/scopemigrate/internal/database"
	"github.com/daveohlh/scopemigrate/internal/logger"
	"github.com/daveohlh/scopemigrate/internal/manager"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New(
	"database URL is required (set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

// session bundles the wired manager with the resources backing it.
type session struct {
	mgr      *manager.Manager
	registry *scope.Registry
	close    func()
}

// newSession loads the declared model, connects to the database, and wires
// the orchestration manager. Callers must invoke close when done.
func newSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*session, error) {
	if cfg.EffectiveDatabaseURL() == "" {
		return nil, errDatabaseURLRequired
	}

	reg, err := scope.LoadModels(cfg.ModelsFile)
	if err != nil {
		return nil, fmt.Errorf("loading declared model: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Connecting to %s\n", config.RedactURL(cfg.EffectiveDatabaseURL()))

	pool, err := database.NewPool(ctx, cfg.EffectiveDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	mgr, err := manager.New(cfg, reg, pool, newLogger(cmd.ErrOrStderr(), verbose))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &session{mgr: mgr, registry: reg, close: pool.Close}, nil
}

func newLogger(w io.Writer, verbose bool) logger.Logger {
	return logger.New(w, verbose)
}

// cmdContext returns the command's context, falling back to Background.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
