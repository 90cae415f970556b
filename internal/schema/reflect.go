package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Column is one reflected or rendered table column.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	Default string
}

// Table is one reflected table with its columns in ordinal order.
type Table struct {
	Name    string
	Columns []Column
}

// Reflector reads the live database's schema from information_schema.
type Reflector struct {
	pool *pgxpool.Pool
}

// NewReflector creates a Reflector over the given pool.
func NewReflector(pool *pgxpool.Pool) *Reflector {
	return &Reflector{pool: pool}
}

// Tables returns the public-schema base tables admitted by the include
// predicate, with columns, sorted by table name.
func (r *Reflector) Tables(ctx context.Context, include func(table string) bool) ([]Table, error) {
	names, err := r.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	var tables []Table

	for _, name := range names {
		if !include(name) {
			continue
		}

		cols, err := r.columns(ctx, name)
		if err != nil {
			return nil, err
		}

		tables = append(tables, Table{Name: name, Columns: cols})
	}

	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	return tables, nil
}

func (r *Reflector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("reflecting table names: %w", err)
	}
	defer rows.Close()

	names, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var name string
		if scanErr := row.Scan(&name); scanErr != nil {
			return "", fmt.Errorf("scanning table name: %w", scanErr)
		}

		return name, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting table names: %w", err)
	}

	return names, nil
}

func (r *Reflector) columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT column_name, data_type, is_nullable, COALESCE(column_default, '')
		 FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1
		 ORDER BY ordinal_position`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("reflecting columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var (
			c        Column
			nullable string
		)

		if scanErr := row.Scan(&c.Name, &c.Type, &nullable, &c.Default); scanErr != nil {
			return Column{}, fmt.Errorf("scanning column of %s: %w", table, scanErr)
		}

		c.NotNull = nullable == "NO"

		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting columns of %s: %w", table, err)
	}

	return cols, nil
}
