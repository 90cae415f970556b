package analyzer

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Rule is the interface all danger-detection rules implement.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Check examines a single parsed statement and returns any findings.
	Check(stmt *pg_query.RawStmt, opIndex int) []Finding
}

// Registry holds a collection of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a Registry with the built-in detection rules.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&DestructiveRule{})
	r.Register(&ColumnTypeRewriteRule{})
	r.Register(&NonConcurrentIndexRule{})

	return r
}

// Register adds a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns all registered rules.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// tableName extracts a qualified table name from a RangeVar.
func tableName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return "<unknown>"
	}

	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}

	return rv.Relname
}

// DestructiveRule detects DROP TABLE and TRUNCATE operations.
type DestructiveRule struct{}

func (r *DestructiveRule) ID() string { return "destructive-op" }

func (r *DestructiveRule) Check(stmt *pg_query.RawStmt, opIndex int) []Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_DropStmt:
		return r.checkDrop(node.DropStmt, opIndex)
	case *pg_query.Node_TruncateStmt:
		return r.checkTruncate(node.TruncateStmt, opIndex)
	default:
		return nil
	}
}

func (r *DestructiveRule) checkDrop(drop *pg_query.DropStmt, opIndex int) []Finding {
	if drop == nil || drop.RemoveType != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}

	return []Finding{{
		Rule:       r.ID(),
		Severity:   Critical,
		Table:      strings.Join(dropTableNames(drop), ", "),
		Message:    "DROP TABLE permanently deletes all data",
		Suggestion: "Confirm the table is unreferenced and a backup exists before upgrading",
		OpIndex:    opIndex,
	}}
}

func (r *DestructiveRule) checkTruncate(trunc *pg_query.TruncateStmt, opIndex int) []Finding {
	if trunc == nil {
		return nil
	}

	var tables []string

	for _, rel := range trunc.Relations {
		if rv, ok := rel.Node.(*pg_query.Node_RangeVar); ok {
			tables = append(tables, tableName(rv.RangeVar))
		}
	}

	return []Finding{{
		Rule:       r.ID(),
		Severity:   Critical,
		Table:      strings.Join(tables, ", "),
		Message:    "TRUNCATE removes all rows and is difficult to reverse",
		Suggestion: "Confirm a backup exists before upgrading",
		OpIndex:    opIndex,
	}}
}

func dropTableNames(drop *pg_query.DropStmt) []string {
	var tables []string

	for _, obj := range drop.Objects {
		listNode, ok := obj.Node.(*pg_query.Node_List)
		if !ok {
			continue
		}

		var parts []string

		for _, item := range listNode.List.Items {
			if s, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, s.String_.Sval)
			}
		}

		if len(parts) > 0 {
			tables = append(tables, strings.Join(parts, "."))
		}
	}

	return tables
}

// ColumnTypeRewriteRule detects ALTER COLUMN TYPE, which rewrites the whole
// table under an ACCESS EXCLUSIVE lock.
type ColumnTypeRewriteRule struct{}

func (r *ColumnTypeRewriteRule) ID() string { return "column-type-rewrite" }

func (r *ColumnTypeRewriteRule) Check(stmt *pg_query.RawStmt, opIndex int) []Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt

	var findings []Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		if cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AlterColumnType {
			continue
		}

		findings = append(findings, Finding{
			Rule:       r.ID(),
			Severity:   High,
			Table:      tableName(alt.Relation),
			Message:    "ALTER COLUMN TYPE rewrites the entire table while holding an ACCESS EXCLUSIVE lock",
			Suggestion: "Stage it: add a new column, backfill, swap, then drop the old column",
			OpIndex:    opIndex,
		})
	}

	return findings
}

// NonConcurrentIndexRule detects CREATE INDEX without CONCURRENTLY.
type NonConcurrentIndexRule struct{}

func (r *NonConcurrentIndexRule) ID() string { return "create-index-not-concurrent" }

func (r *NonConcurrentIndexRule) Check(stmt *pg_query.RawStmt, opIndex int) []Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok {
		return nil
	}

	if node.IndexStmt.Concurrent {
		return nil
	}

	return []Finding{{
		Rule:       r.ID(),
		Severity:   High,
		Table:      tableName(node.IndexStmt.Relation),
		Message:    "CREATE INDEX without CONCURRENTLY locks the table for writes",
		Suggestion: "Use CREATE INDEX CONCURRENTLY to avoid blocking writes",
		OpIndex:    opIndex,
	}}
}
