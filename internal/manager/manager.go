// Package manager is the orchestration façade: it binds ownership
// resolution, revision graphs, version tracking, safety analysis, and the
// execution engine into the operations the CLI exposes.
package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveohlh/scopemigrate/internal/analyzer"
	"github.com/daveohlh/scopemigrate/internal/config"
	"github.com/daveohlh/scopemigrate/internal/executor"
	"github.com/daveohlh/scopemigrate/internal/generate"
	"github.com/daveohlh/scopemigrate/internal/logger"
	"github.com/daveohlh/scopemigrate/internal/materialize"
	"github.com/daveohlh/scopemigrate/internal/revision"
	"github.com/daveohlh/scopemigrate/internal/schema"
	"github.com/daveohlh/scopemigrate/internal/scope"
	"github.com/daveohlh/scopemigrate/internal/tracker"
)

// Engine applies and reverts ordered revision paths.
type Engine interface {
	Upgrade(ctx context.Context, sc scope.Scope, path []revision.Revision) error
	Downgrade(ctx context.Context, sc scope.Scope, path []revision.Revision) error
}

// VersionStore tracks each scope's current revision.
type VersionStore interface {
	Current(ctx context.Context, sc scope.Scope) (string, error)
	SetCurrent(ctx context.Context, sc scope.Scope, revisionID string) error
}

// RevisionCreator produces new revision artifacts.
type RevisionCreator interface {
	Create(ctx context.Context, req generate.Request) (*revision.Revision, error)
	Regenerate(ctx context.Context, req generate.Request, versions generate.VersionStamper) (*revision.Revision, error)
}

// UpgradeOptions control an upgrade operation.
type UpgradeOptions struct {
	Target string // revision id or "latest"; empty means latest
	DryRun bool
	Force  bool // apply despite high-risk findings
}

// DowngradeOptions control a downgrade operation.
type DowngradeOptions struct {
	Target string // revision id, "none", or "base"; required
	DryRun bool
}

// CreateOptions control revision generation.
type CreateOptions struct {
	Message      string
	Autogenerate bool
	Regenerate   bool // discard the chain and emit a fresh root
}

// Outcome is the result of one scope's run within a multi-scope operation.
type Outcome struct {
	Scope scope.Scope
	Err   error
}

// HistoryEntry is one revision annotated with its applied state.
type HistoryEntry struct {
	Revision revision.Revision
	Applied  bool
	Current  bool
}

// DebugReport summarizes a scope's state for diagnostics.
type DebugReport struct {
	Scope        scope.Scope
	DatabaseURL  string // redacted
	VersionTable string
	Current      string // empty when unapplied
	Head         string // empty when the chain is empty
	ChainLength  int
	Pending      int
	OwnedTables  []string
}

// Manager coordinates all migration operations across scopes.
type Manager struct {
	cfg       *config.Config
	registry  *scope.Registry
	ownership scope.Ownership
	mat       *materialize.Materializer
	log       logger.Logger
	pool      *pgxpool.Pool

	store    VersionStore
	creator  RevisionCreator
	analyze  *analyzer.Analyzer
	engineFn func(dryRun bool) Engine
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore overrides the version store.
func WithStore(s VersionStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithCreator overrides the revision creator.
func WithCreator(c RevisionCreator) Option {
	return func(m *Manager) { m.creator = c }
}

// WithEngineFunc overrides execution engine construction.
func WithEngineFunc(fn func(dryRun bool) Engine) Option {
	return func(m *Manager) { m.engineFn = fn }
}

// WithAnalyzer overrides the safety analyzer.
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(m *Manager) { m.analyze = a }
}

// New builds a Manager over the loaded configuration and declared model.
// Ownership is resolved eagerly so conflicting declarations fail before
// any operation runs.
func New(cfg *config.Config, registry *scope.Registry, pool *pgxpool.Pool, log logger.Logger, opts ...Option) (*Manager, error) {
	ownership, err := scope.Resolve(registry.Tables())
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       cfg,
		registry:  registry,
		ownership: ownership,
		mat:       materialize.New(cfg, log),
		log:       log,
		pool:      pool,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = tracker.New(pool, cfg.VersionTablePrefix)
	}

	if m.creator == nil {
		m.creator = generate.New(cfg.MigrationsDir, registry, schema.NewReflector(pool))
	}

	if m.analyze == nil {
		m.analyze = analyzer.New()
	}

	if m.engineFn == nil {
		m.engineFn = func(dryRun bool) Engine {
			return executor.New(pool, tracker.New(pool, cfg.VersionTablePrefix),
				executor.WithLockTimeout(cfg.LockTimeout),
				executor.WithStatementTimeout(cfg.StatementTimeout),
				executor.WithDryRun(dryRun),
				executor.WithProgressCallback(m.logProgress),
			)
		}
	}

	return m, nil
}

// Upgrade moves one scope from its recorded state to the target revision.
func (m *Manager) Upgrade(ctx context.Context, sc scope.Scope, opts UpgradeOptions) error {
	if err := m.checkScope(sc); err != nil {
		return err
	}

	target := opts.Target
	if target == "" {
		target = revision.TargetLatest
	}

	return m.mat.WithScopedConfig(sc, materialize.OpUpgrade, m.ownership.IncludePredicate(sc, sc.IsCore()), func(rc *materialize.RunConfig) error {
		graph, current, err := m.loadState(ctx, sc)
		if err != nil {
			return err
		}

		path, err := graph.UpgradePath(current, target)
		if err != nil {
			return err
		}

		if len(path) == 0 {
			m.log.Info("scope %s already at %s", sc, target)
			return nil
		}

		if err := m.checkSafety(sc, path, opts.Force); err != nil {
			return err
		}

		m.log.Info("upgrading scope %s: %d revision(s) toward %s", sc, len(path), target)

		return m.engineFn(opts.DryRun).Upgrade(ctx, sc, path)
	})
}

// Downgrade reverts one scope down to the target revision. The target is
// mandatory; there is no implicit full revert.
func (m *Manager) Downgrade(ctx context.Context, sc scope.Scope, opts DowngradeOptions) error {
	if err := m.checkScope(sc); err != nil {
		return err
	}

	if opts.Target == "" {
		return ErrTargetRequired
	}

	return m.mat.WithScopedConfig(sc, materialize.OpDowngrade, m.ownership.IncludePredicate(sc, sc.IsCore()), func(rc *materialize.RunConfig) error {
		graph, current, err := m.loadState(ctx, sc)
		if err != nil {
			return err
		}

		path, err := graph.DowngradePath(current, opts.Target)
		if err != nil {
			return err
		}

		if len(path) == 0 {
			m.log.Info("scope %s already at %s", sc, opts.Target)
			return nil
		}

		m.log.Info("downgrading scope %s: %d revision(s) toward %s", sc, len(path), opts.Target)

		return m.engineFn(opts.DryRun).Downgrade(ctx, sc, path)
	})
}

// CreateRevision generates a new revision for the scope, inside an
// ephemeral working directory that is gone once the operation returns.
func (m *Manager) CreateRevision(ctx context.Context, sc scope.Scope, opts CreateOptions) (*revision.Revision, error) {
	if err := m.checkScope(sc); err != nil {
		return nil, err
	}

	var rev *revision.Revision

	err := m.mat.WithScopedConfig(sc, materialize.OpRevision, m.ownership.IncludePredicate(sc, sc.IsCore()), func(rc *materialize.RunConfig) error {
		req := generate.Request{
			Scope:        sc,
			Message:      opts.Message,
			Autogenerate: opts.Autogenerate,
			Include:      rc.Include,
			WorkDir:      rc.WorkDir(),
		}

		var genErr error

		if opts.Regenerate {
			rev, genErr = m.creator.Regenerate(ctx, req, m.store)
		} else {
			rev, genErr = m.creator.Create(ctx, req)
		}

		return genErr
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("created revision %s for scope %s: %s", rev.ID, sc, rev.Message)

	return rev, nil
}

// RunAll upgrades every enabled scope in dependency order, core first. A
// failing scope is reported in its outcome and does not stop the scopes
// after it. The returned error is ErrScopesFailed when any scope failed.
func (m *Manager) RunAll(ctx context.Context, opts UpgradeOptions) ([]Outcome, error) {
	order, err := m.enabledOrder()
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(order))
	failed := 0

	for _, sc := range order {
		runErr := m.Upgrade(ctx, sc, opts)
		if runErr != nil {
			failed++

			m.log.Error("scope %s failed: %v", sc, runErr)
		}

		outcomes = append(outcomes, Outcome{Scope: sc, Err: runErr})
	}

	if failed > 0 {
		return outcomes, fmt.Errorf("%w: %d of %d", ErrScopesFailed, failed, len(order))
	}

	return outcomes, nil
}

// History returns the scope's full chain, root-first, annotated with which
// revisions have been applied.
func (m *Manager) History(ctx context.Context, sc scope.Scope) ([]HistoryEntry, error) {
	if err := m.checkScope(sc); err != nil {
		return nil, err
	}

	graph, current, err := m.loadState(ctx, sc)
	if err != nil {
		return nil, err
	}

	// A recorded revision missing from the chain means the database and
	// the artifacts have diverged; annotating would silently mislabel.
	if current != "" {
		if _, err := graph.Get(current); err != nil {
			return nil, err
		}
	}

	chain := graph.Revisions()
	entries := make([]HistoryEntry, 0, len(chain))
	applied := current != ""

	for i := range chain {
		entry := HistoryEntry{
			Revision: chain[i],
			Applied:  applied,
			Current:  chain[i].ID == current,
		}

		if entry.Current {
			// Everything after the current revision is pending.
			applied = false
			entry.Applied = true
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Current returns the scope's recorded revision id, or empty when the
// scope has never been applied.
func (m *Manager) Current(ctx context.Context, sc scope.Scope) (string, error) {
	if err := m.checkScope(sc); err != nil {
		return "", err
	}

	current, err := m.store.Current(ctx, sc)
	if err != nil {
		if errors.Is(err, tracker.ErrNoVersion) {
			return "", nil
		}

		return "", err
	}

	return current, nil
}

// Debug collects a scope's diagnostic state: ownership, chain shape, and
// version-record position.
func (m *Manager) Debug(ctx context.Context, sc scope.Scope) (*DebugReport, error) {
	if err := m.checkScope(sc); err != nil {
		return nil, err
	}

	graph, current, err := m.loadState(ctx, sc)
	if err != nil {
		return nil, err
	}

	report := &DebugReport{
		Scope:        sc,
		DatabaseURL:  config.RedactURL(m.cfg.EffectiveDatabaseURL()),
		VersionTable: sc.VersionTable(m.cfg.VersionTablePrefix),
		Current:      current,
		ChainLength:  len(graph.Revisions()),
		OwnedTables:  m.ownership.OwnedBy(sc),
	}

	if head := graph.Head(); head != nil {
		report.Head = head.ID
	}

	pending, err := graph.UpgradePath(current, revision.TargetLatest)
	if err != nil {
		return nil, err
	}

	report.Pending = len(pending)

	return report, nil
}

// loadState loads the scope's revision chain and its recorded current
// revision. A missing version record reads as empty current.
func (m *Manager) loadState(ctx context.Context, sc scope.Scope) (*revision.Graph, string, error) {
	revisions, err := revision.LoadScopeDir(m.cfg.MigrationsDir, sc)
	if err != nil {
		return nil, "", err
	}

	graph, err := revision.NewGraph(sc, revisions)
	if err != nil {
		return nil, "", err
	}

	current, err := m.store.Current(ctx, sc)
	if err != nil {
		if !errors.Is(err, tracker.ErrNoVersion) {
			return nil, "", err
		}

		current = ""
	}

	return graph, current, nil
}

// checkSafety analyzes the path's upgrade operations and refuses to apply
// high-risk revisions unless forced.
func (m *Manager) checkSafety(sc scope.Scope, path []revision.Revision, force bool) error {
	results, err := m.analyze.AnalyzeAll(path)
	if err != nil {
		return err
	}

	for i := range results {
		for _, f := range results[i].Findings {
			m.log.Warn("scope %s: revision %s: [%s] %s (%s)",
				sc, results[i].Revision.ID, f.Severity, f.Message, f.Suggestion)
		}

		if results[i].HasHighOrCritical() && !force {
			return fmt.Errorf("scope %s: revision %s: %w", sc, results[i].Revision.ID, ErrUnsafeRevision)
		}
	}

	return nil
}

// checkScope validates that the scope is core or an enabled, declared
// extension.
func (m *Manager) checkScope(sc scope.Scope) error {
	if !sc.Valid() {
		return fmt.Errorf("%w: %q", scope.ErrInvalidScopeName, string(sc))
	}

	if sc.IsCore() {
		return nil
	}

	if _, err := m.registry.Extension(sc); err != nil {
		return err
	}

	for _, name := range m.cfg.Extensions {
		if scope.Scope(name) == sc {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrExtensionDisabled, sc)
}

// enabledOrder resolves the configured extensions against the registry and
// returns all enabled scopes in dependency order, core first.
func (m *Manager) enabledOrder() ([]scope.Scope, error) {
	enabled := make([]scope.Scope, 0, len(m.cfg.Extensions))
	for _, name := range m.cfg.Extensions {
		enabled = append(enabled, scope.Scope(name))
	}

	return scope.DependencyOrder(m.registry, enabled)
}

func (m *Manager) logProgress(ev executor.ProgressEvent) {
	switch ev.Status {
	case executor.StatusStarting:
		m.log.Debug("%s %s: starting", ev.Direction, ev.Revision.ID)
	case executor.StatusCompleted:
		m.log.Info("%s %s: done in %s", ev.Direction, ev.Revision.ID, ev.Duration)
	case executor.StatusFailed:
		m.log.Error("%s %s: failed after %s: %v", ev.Direction, ev.Revision.ID, ev.Duration, ev.Error)
	case executor.StatusSkipped:
		m.log.Info("%s %s: skipped (dry-run)", ev.Direction, ev.Revision.ID)
	}
}
