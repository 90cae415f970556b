package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "debug",
	Short: "Dump a scope's diagnostic state",
	Long: `Dump a scope's resolved state: the redacted connection target,
version table, current and head revisions, pending count, and the tables
the scope owns.`,
	RunE: runDebug,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerScopeFlags(debugCmd)
	rootCmd.AddCommand(debugCmd)
}

func runDebug(cmd *cobra.Command, _ []string) error {
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
		report, dbgErr := sess.mgr.Debug(ctx, sc)
		if dbgErr != nil {
			failed = append(failed, fmt.Errorf("scope %s: %w", sc, dbgErr))
			continue
		}

		current := report.Current
		if current == "" {
			current = "(none)"
		}

		head := report.Head
		if head == "" {
			head = "(empty chain)"
		}

		fmt.Fprintf(out, "scope:         %s\n", report.Scope)
		fmt.Fprintf(out, "database:      %s\n", report.DatabaseURL)
		fmt.Fprintf(out, "version table: %s\n", report.VersionTable)
		fmt.Fprintf(out, "current:       %s\n", current)
		fmt.Fprintf(out, "head:          %s\n", head)
		fmt.Fprintf(out, "revisions:     %d (%d pending)\n", report.ChainLength, report.Pending)
		fmt.Fprintf(out, "owned tables:  %s\n\n", strings.Join(report.OwnedTables, ", "))
	}

	return errors.Join(failed...)
}
