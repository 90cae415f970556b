package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed AST and original SQL.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// ValidateOps parses every operation of a revision, rejecting the first one
// the PostgreSQL grammar cannot accept. Revision artifacts are validated at
// generation and load time so malformed SQL fails before any mutation.
func ValidateOps(ops []string) error {
	for i, op := range ops {
		if _, err := Parse(op); err != nil {
			return fmt.Errorf("operation %d: %w", i+1, err)
		}
	}

	return nil
}

// HasConcurrentIndex parses the SQL and reports whether any statement is a
// CREATE INDEX CONCURRENTLY. Such statements cannot run inside a transaction
// block and must be executed directly on the pool.
func HasConcurrentIndex(sql string) (bool, error) {
	result, err := Parse(sql)
	if err != nil {
		return false, fmt.Errorf("parsing SQL for concurrent index detection: %w", err)
	}

	for _, stmt := range result.Stmts {
		node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
		if !ok {
			continue
		}

		if node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return true, nil
		}
	}

	return false, nil
}
