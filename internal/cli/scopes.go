package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daveohlh/scopemigrate/internal/config"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

// errScopeFlagConflict is returned when --extension and --all are combined.
var errScopeFlagConflict = errors.New("--extension and --all are mutually exclusive")

// registerScopeFlags adds the scope-selection flags every operational
// command carries.
func registerScopeFlags(cmd *cobra.Command) {
	cmd.Flags().String("extension", "", "operate on one extension scope instead of core")
	cmd.Flags().Bool("all", false, "operate on core and every enabled extension")
}

// targetScopes resolves the scope-selection flags to the ordered list of
// scopes the command operates on. Default is core alone; --all expands to
// every enabled scope in dependency order.
func targetScopes(cmd *cobra.Command, cfg *config.Config, reg *scope.Registry) ([]scope.Scope, error) {
	ext, _ := cmd.Flags().GetString("extension")
	all, _ := cmd.Flags().GetBool("all")

	if ext != "" && all {
		return nil, errScopeFlagConflict
	}

	if all {
		enabled := make([]scope.Scope, 0, len(cfg.Extensions))
		for _, name := range cfg.Extensions {
			enabled = append(enabled, scope.Scope(name))
		}

		return scope.DependencyOrder(reg, enabled)
	}

	if ext != "" {
		sc := scope.Scope(ext)
		if !sc.Valid() {
			return nil, fmt.Errorf("%w: %q", scope.ErrInvalidScopeName, ext)
		}

		return []scope.Scope{sc}, nil
	}

	return []scope.Scope{scope.Core}, nil
}

// reverseScopes returns the scopes in reverse order, so dependents are
// processed before the scopes they depend on.
func reverseScopes(scopes []scope.Scope) []scope.Scope {
	out := make([]scope.Scope, len(scopes))
	for i, sc := range scopes {
		out[len(scopes)-1-i] = sc
	}

	return out
}
