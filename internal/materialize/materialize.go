// Package materialize builds the complete, self-consistent configuration
// context the execution engine needs for exactly one scope and operation,
// and guarantees that every ephemeral artifact created for the operation is
// removed on all exit paths.
package materialize

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daveohlh/scopemigrate/internal/config"
	"github.com/daveohlh/scopemigrate/internal/logger"
	"github.com/daveohlh/scopemigrate/internal/revision"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

// OperationKind classifies the operation a RunConfig is materialized for.
type OperationKind string

// Operation kinds.
const (
	OpUpgrade   OperationKind = "upgrade"
	OpDowngrade OperationKind = "downgrade"
	OpRevision  OperationKind = "revision"
	OpInspect   OperationKind = "inspect"
)

// RunConfig is the in-memory configuration context for one scope and one
// operation: connection, script directory, version-table name, and the
// object-inclusion predicate. It also owns an ephemeral working directory
// that exists only for the operation's duration.
type RunConfig struct {
	Scope            scope.Scope
	Operation        OperationKind
	DatabaseURL      string
	ScriptDir        string
	VersionTable     string
	Include          func(table string) bool
	LockTimeout      time.Duration
	StatementTimeout time.Duration

	workDir string
}

// WorkDir returns the operation's ephemeral working directory.
func (rc *RunConfig) WorkDir() string {
	return rc.workDir
}

// TempPath returns a path inside the ephemeral working directory. Files
// written there never outlive the operation.
func (rc *RunConfig) TempPath(name string) string {
	return filepath.Join(rc.workDir, name)
}

// Materializer produces scoped RunConfigs. Construct one per process and
// pass it by reference; it holds no global state.
type Materializer struct {
	cfg *config.Config
	log logger.Logger
}

// New creates a Materializer over the loaded configuration.
func New(cfg *config.Config, log logger.Logger) *Materializer {
	return &Materializer{cfg: cfg, log: log}
}

// WithScopedConfig materializes a RunConfig for the scope and operation,
// passes it to fn, and tears down every generated artifact afterwards —
// on normal return, on error, and on panic. A teardown failure is logged
// as a warning and never masks fn's result.
func (m *Materializer) WithScopedConfig(
	sc scope.Scope,
	op OperationKind,
	include func(table string) bool,
	fn func(rc *RunConfig) error,
) error {
	// Per-operation directory name, so two operations can never collide
	// on a shared artifact path.
	workDir, err := os.MkdirTemp("", fmt.Sprintf("scopemigrate-%s-%s-*", sc, op))
	if err != nil {
		return fmt.Errorf("creating ephemeral workdir for scope %s: %w", sc, err)
	}

	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			m.log.Warn("cleanup of ephemeral workdir %s failed: %v", workDir, rmErr)
		}
	}()

	rc := &RunConfig{
		Scope:            sc,
		Operation:        op,
		DatabaseURL:      m.cfg.EffectiveDatabaseURL(),
		ScriptDir:        revision.ScopeDir(m.cfg.MigrationsDir, sc),
		VersionTable:     sc.VersionTable(m.cfg.VersionTablePrefix),
		Include:          m.excludeTracking(include),
		LockTimeout:      m.cfg.LockTimeout,
		StatementTimeout: m.cfg.StatementTimeout,
		workDir:          workDir,
	}

	return fn(rc)
}

// excludeTracking wraps an ownership predicate so version-tracking tables
// are never treated as schema objects, claimed or otherwise.
func (m *Materializer) excludeTracking(include func(table string) bool) func(table string) bool {
	prefix := m.cfg.VersionTablePrefix + "_"

	return func(table string) bool {
		if len(table) >= len(prefix) && table[:len(prefix)] == prefix {
			return false
		}

		if include == nil {
			return true
		}

		return include(table)
	}
}
