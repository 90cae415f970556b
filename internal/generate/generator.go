// Package generate produces new revision artifacts for a scope, either as
// empty templates or autogenerated from the difference between the declared
// model and the live database schema.
package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daveohlh/scopemigrate/internal/parser"
	"github.com/daveohlh/scopemigrate/internal/revision"
	"github.com/daveohlh/scopemigrate/internal/schema"
	"github.com/daveohlh/scopemigrate/internal/scope"
)

// SchemaReflector reads live table definitions, filtered by an inclusion
// predicate.
type SchemaReflector interface {
	Tables(ctx context.Context, include func(table string) bool) ([]schema.Table, error)
}

// VersionStamper moves a scope's version record to a regenerated root.
type VersionStamper interface {
	SetCurrent(ctx context.Context, sc scope.Scope, revisionID string) error
}

// Request describes one revision to generate.
type Request struct {
	Scope        scope.Scope
	Message      string
	Autogenerate bool
	Include      func(table string) bool // ownership predicate for reflection
	WorkDir      string                  // ephemeral staging dir, may be empty
}

// Generator creates revision artifacts appended to a scope's chain.
type Generator struct {
	migrationsDir string
	registry      *scope.Registry
	reflector     SchemaReflector
	now           func() time.Time
	newID         func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithIDFunc overrides revision id generation.
func WithIDFunc(fn func() string) Option {
	return func(g *Generator) { g.newID = fn }
}

// New creates a Generator writing under migrationsDir.
func New(migrationsDir string, registry *scope.Registry, reflector SchemaReflector, opts ...Option) *Generator {
	g := &Generator{
		migrationsDir: migrationsDir,
		registry:      registry,
		reflector:     reflector,
		now:           time.Now,
		newID:         revision.NewID,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Create generates one revision for the request's scope, chained onto the
// current head, and persists its artifact. Autogenerated revisions with an
// empty diff are discarded and reported as ErrNoChanges.
func (g *Generator) Create(ctx context.Context, req Request) (*revision.Revision, error) {
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}

	existing, err := revision.LoadScopeDir(g.migrationsDir, req.Scope)
	if err != nil {
		return nil, err
	}

	graph, err := revision.NewGraph(req.Scope, existing)
	if err != nil {
		return nil, err
	}

	rev := g.template(req, graph)

	if req.Autogenerate {
		diff, err := g.diff(ctx, req)
		if err != nil {
			return nil, err
		}

		if diff.Empty() {
			return nil, fmt.Errorf("scope %s: %w", req.Scope, ErrNoChanges)
		}

		rev.UpgradeOps = diff.Upgrade
		rev.DowngradeOps = diff.Downgrade
	}

	if err := g.finalize(req, rev); err != nil {
		return nil, err
	}

	return rev, nil
}

// Regenerate discards a scope's entire chain and emits a fresh root whose
// operations rebuild the declared model from an empty schema. The live
// schema already matches the new root, so the scope's version record is
// stamped to it rather than reset.
func (g *Generator) Regenerate(ctx context.Context, req Request, versions VersionStamper) (*revision.Revision, error) {
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}

	if err := revision.RemoveAll(g.migrationsDir, req.Scope); err != nil {
		return nil, err
	}

	rev := &revision.Revision{
		ID:          g.newID(),
		Scope:       req.Scope,
		BranchLabel: req.Scope.BranchLabel(),
		Message:     req.Message,
		CreatedAt:   g.now().UTC(),
	}

	diff := schema.Compare(g.registry.TablesFor(req.Scope), nil)
	rev.UpgradeOps = diff.Upgrade
	rev.DowngradeOps = diff.Downgrade

	if err := g.finalize(req, rev); err != nil {
		return nil, err
	}

	if err := versions.SetCurrent(ctx, req.Scope, rev.ID); err != nil {
		return nil, fmt.Errorf("stamping version record for scope %s: %w", req.Scope, err)
	}

	return rev, nil
}

// finalize validates, checksums, stages, and persists one revision.
func (g *Generator) finalize(req Request, rev *revision.Revision) error {
	if err := parser.ValidateOps(rev.UpgradeOps); err != nil {
		return fmt.Errorf("scope %s: upgrade ops: %w", req.Scope, err)
	}

	if err := parser.ValidateOps(rev.DowngradeOps); err != nil {
		return fmt.Errorf("scope %s: downgrade ops: %w", req.Scope, err)
	}

	rev.Checksum = revision.ComputeChecksum(rev.UpgradeOps)

	if err := g.stage(req, rev); err != nil {
		return err
	}

	return revision.Write(g.migrationsDir, rev)
}

// template builds an op-less revision chained onto the graph head, with a
// branch label only when the revision roots a non-core scope's chain.
func (g *Generator) template(req Request, graph *revision.Graph) *revision.Revision {
	rev := &revision.Revision{
		ID:        g.newID(),
		Scope:     req.Scope,
		Message:   req.Message,
		CreatedAt: g.now().UTC(),
	}

	if head := graph.Head(); head != nil {
		rev.DownID = head.ID
	} else {
		rev.BranchLabel = req.Scope.BranchLabel()
	}

	return rev
}

// diff compares the scope's declared tables to what actually exists in the
// database, restricted to objects the scope owns.
func (g *Generator) diff(ctx context.Context, req Request) (*schema.Diff, error) {
	include := req.Include
	if include == nil {
		include = func(string) bool { return true }
	}

	live, err := g.reflector.Tables(ctx, include)
	if err != nil {
		return nil, fmt.Errorf("reflecting schema for scope %s: %w", req.Scope, err)
	}

	declared := g.registry.TablesFor(req.Scope)

	return schema.Compare(declared, live), nil
}

// stage writes the candidate artifact into the operation's ephemeral
// workdir first, so a failure before persistence leaves no partial file in
// the migrations tree.
func (g *Generator) stage(req Request, rev *revision.Revision) error {
	if req.WorkDir == "" {
		return nil
	}

	data, err := revision.Marshal(rev)
	if err != nil {
		return err
	}

	candidate := filepath.Join(req.WorkDir, rev.Filename())
	if err := os.WriteFile(candidate, data, 0o644); err != nil {
		return fmt.Errorf("staging revision candidate: %w", err)
	}

	return nil
}
