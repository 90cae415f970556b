package analyzer

import (
	"fmt"

	"github.com/daveohlh/scopemigrate/internal/parser"
	"github.com/daveohlh/scopemigrate/internal/revision"
)

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against a revision's upgrade operations.
type Analyzer struct {
	registry *Registry
	parseFn  func(string) (*parser.ParseResult, error)
}

// New creates an Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: NewDefaultRegistry(),
		parseFn:  parser.Parse,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithParser overrides the SQL parser function (useful for testing).
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// Analyze parses and analyzes a single revision, returning all findings.
func (a *Analyzer) Analyze(r *revision.Revision) (*Result, error) {
	var findings []Finding

	maxSeverity := Safe

	for opIndex, op := range r.UpgradeOps {
		parsed, err := a.parseFn(op)
		if err != nil {
			return nil, fmt.Errorf("parsing revision %s operation %d: %w", r.ID, opIndex+1, err)
		}

		for _, stmt := range parsed.Stmts {
			for _, rule := range a.registry.Rules() {
				fs := rule.Check(stmt, opIndex)
				for i := range fs {
					if fs[i].Severity > maxSeverity {
						maxSeverity = fs[i].Severity
					}
				}

				findings = append(findings, fs...)
			}
		}
	}

	return &Result{
		Revision:    r,
		Findings:    findings,
		MaxSeverity: maxSeverity,
	}, nil
}

// AnalyzeAll analyzes multiple revisions and returns a result per revision.
func (a *Analyzer) AnalyzeAll(revisions []revision.Revision) ([]Result, error) {
	results := make([]Result, 0, len(revisions))

	for i := range revisions {
		r, err := a.Analyze(&revisions[i])
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}
