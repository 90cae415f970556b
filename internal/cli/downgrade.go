package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daveohlh/scopemigrate/internal/manager"
)

var downgradeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "downgrade",
	Short: "Revert applied revisions",
	Long: `Revert revisions down to an explicit target. The target is a
revision id, or "none" to revert a scope's entire chain. There is no
implicit full revert. With --all, dependent scopes are reverted before
the scopes they depend on.`,
	RunE: runDowngrade,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerScopeFlags(downgradeCmd)
	downgradeCmd.Flags().String("target", "", "revision id, or none/base for a full revert")
	downgradeCmd.Flags().Bool("dry-run", false, "show what would be reverted without executing")
	rootCmd.AddCommand(downgradeCmd)
}

func runDowngrade(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	opts := manager.DowngradeOptions{}
	opts.Target, _ = cmd.Flags().GetString("target")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")

	ctx := cmdContext(cmd)

	sess, err := newSession(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	scopes, err := targetScopes(cmd, cfg, sess.registry)
	if err != nil {
		return err
	}

	// Reverse dependency order: extensions come off before core.
	scopes = reverseScopes(scopes)

	var failed []error

	for _, sc := range scopes {
		if downErr := sess.mgr.Downgrade(ctx, sc, opts); downErr != nil {
			failed = append(failed, fmt.Errorf("scope %s: %w", sc, downErr))
		}
	}

	return errors.Join(failed...)
}
