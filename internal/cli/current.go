package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "current",
	Short: "Show a scope's current revision",
	RunE:  runCurrent,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerScopeFlags(currentCmd)
	rootCmd.AddCommand(currentCmd)
}

func runCurrent(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
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

	out := cmd.OutOrStdout()

	var failed []error

	for _, sc := range scopes {
		current, curErr := sess.mgr.Current(ctx, sc)
		if curErr != nil {
			failed = append(failed, fmt.Errorf("scope %s: %w", sc, curErr))
			continue
		}

		if current == "" {
			current = "(none)"
		}

		fmt.Fprintf(out, "%-12s %s\n", sc, current)
	}

	return errors.Join(failed...)
}
