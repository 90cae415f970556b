package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daveohlh/scopemigrate/internal/manager"
)

var upgradeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "upgrade",
	Short: "Apply pending revisions",
	Long: `Apply pending revisions for one scope, or for core and every
enabled extension in dependency order. High-risk operations block the
upgrade unless --force is given.`,
	RunE: runUpgrade,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerScopeFlags(upgradeCmd)
	upgradeCmd.Flags().String("target", "", "revision id to stop at (default latest)")
	upgradeCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	upgradeCmd.Flags().Bool("force", false, "apply despite high-risk findings")
	rootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	opts := manager.UpgradeOptions{}
	opts.Target, _ = cmd.Flags().GetString("target")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.Force, _ = cmd.Flags().GetBool("force")

	ctx := cmdContext(cmd)

	sess, err := newSession(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	all, _ := cmd.Flags().GetBool("all")
	if all {
		outcomes, runErr := sess.mgr.RunAll(ctx, opts)
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-12s FAILED: %v\n", outcome.Scope, outcome.Err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-12s ok\n", outcome.Scope)
			}
		}

		return runErr
	}

	scopes, err := targetScopes(cmd, cfg, sess.registry)
	if err != nil {
		return err
	}

	var failed []error

	for _, sc := range scopes {
		if upErr := sess.mgr.Upgrade(ctx, sc, opts); upErr != nil {
			failed = append(failed, fmt.Errorf("scope %s: %w", sc, upErr))
		}
	}

	return errors.Join(failed...)
}
