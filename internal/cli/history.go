package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "history",
	Short: "Show a scope's revision chain",
	Long: `Display a scope's revision chain root-first, marking which
revisions are applied and which is current.`,
	RunE: runHistory,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerScopeFlags(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
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
		entries, histErr := sess.mgr.History(ctx, sc)
		if histErr != nil {
			failed = append(failed, fmt.Errorf("scope %s: %w", sc, histErr))
			continue
		}

		fmt.Fprintf(out, "%s:\n", sc)

		if len(entries) == 0 {
			fmt.Fprintln(out, "  (no revisions)")
			continue
		}

		for _, entry := range entries {
			marker := " "
			if entry.Current {
				marker = "*"
			} else if entry.Applied {
				marker = "+"
			}

			fmt.Fprintf(out, "  %s %s  %s\n", marker, entry.Revision.ID, entry.Revision.Message)
		}
	}

	return errors.Join(failed...)
}
