package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daveohlh/scopemigrate/internal/generate"
	"github.com/daveohlh/scopemigrate/internal/manager"
	"github.com/daveohlh/scopemigrate/internal/revision"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

var revisionCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "revision",
	Short: "Generate a new revision",
	Long: `Generate a new revision artifact chained onto the scope's head.
By default the upgrade and downgrade operations are autogenerated from
the difference between the declared model and the live schema; pass
--no-autogenerate for an empty template to fill in by hand.`,
	RunE: runRevision,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerScopeFlags(revisionCmd)
	revisionCmd.Flags().StringP("message", "m", "", "revision message (required)")
	revisionCmd.Flags().Bool("no-autogenerate", false, "emit an empty template instead of diffing the schema")
	revisionCmd.Flags().Bool("regenerate", false, "discard the scope's chain and emit a fresh root")
	_ = revisionCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(revisionCmd)
}

func runRevision(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	opts := manager.CreateOptions{}
	opts.Message, _ = cmd.Flags().GetString("message")
	opts.Regenerate, _ = cmd.Flags().GetBool("regenerate")

	noAutogen, _ := cmd.Flags().GetBool("no-autogenerate")
	opts.Autogenerate = !noAutogen

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

	var failed []error

	for _, sc := range scopes {
		rev, genErr := sess.mgr.CreateRevision(ctx, sc, opts)
		if repErr := reportRevision(cmd.OutOrStdout(), sc, rev, genErr); repErr != nil {
			failed = append(failed, repErr)
		}
	}

	return errors.Join(failed...)
}

// reportRevision prints one scope's generation outcome. A scope with no
// pending schema differences reports "no changes" and is never a failure.
func reportRevision(out io.Writer, sc scope.Scope, rev *revision.Revision, err error) error {
	if errors.Is(err, generate.ErrNoChanges) {
		fmt.Fprintf(out, "  %-12s no changes\n", sc)
		return nil
	}

	if err != nil {
		return fmt.Errorf("scope %s: %w", sc, err)
	}

	fmt.Fprintf(out, "  %-12s %s  %s\n", sc, rev.ID, rev.FilePath)

	return nil
}
