package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daveohlh/scopemigrate/internal/scope"
)

// Diff holds the paired DDL needed to reconcile a live schema with the
// declared one. Upgrade moves live toward declared; Downgrade reverses it.
type Diff struct {
	Upgrade   []string
	Downgrade []string
}

// Empty reports whether no differences were found.
func (d *Diff) Empty() bool {
	return len(d.Upgrade) == 0
}

// Compare diffs the declared tables of one scope against the live reflected
// tables (already filtered to that scope's objects) and emits only the
// operations needed to reconcile them.
func Compare(declared []scope.TableDeclaration, live []Table) *Diff {
	d := &Diff{}

	liveByName := make(map[string]Table, len(live))
	for _, t := range live {
		liveByName[t.Name] = t
	}

	declaredNames := make(map[string]bool, len(declared))

	ordered := make([]scope.TableDeclaration, len(declared))
	copy(ordered, declared)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	for _, decl := range ordered {
		declaredNames[decl.Name] = true

		liveTable, exists := liveByName[decl.Name]
		if !exists {
			d.Upgrade = append(d.Upgrade, renderCreateTable(decl.Name, declaredColumns(decl)))
			d.Downgrade = append(d.Downgrade, renderDropTable(decl.Name))

			continue
		}

		compareColumns(d, decl.Name, declaredColumns(decl), liveTable.Columns)
	}

	// Live tables the scope owns but the declarations no longer mention.
	for _, t := range live {
		if declaredNames[t.Name] {
			continue
		}

		d.Upgrade = append(d.Upgrade, renderDropTable(t.Name))
		d.Downgrade = append(d.Downgrade, renderCreateTable(t.Name, t.Columns))
	}

	return d
}

func declaredColumns(decl scope.TableDeclaration) []Column {
	cols := make([]Column, len(decl.Columns))

	for i, c := range decl.Columns {
		cols[i] = Column{
			Name:    c.Name,
			Type:    NormalizeType(c.Type),
			NotNull: c.NotNull,
			Default: c.Default,
		}
	}

	return cols
}

func compareColumns(d *Diff, table string, declared, live []Column) {
	liveByName := make(map[string]Column, len(live))
	for _, c := range live {
		liveByName[c.Name] = c
	}

	declaredNames := make(map[string]bool, len(declared))

	for _, want := range declared {
		declaredNames[want.Name] = true

		have, exists := liveByName[want.Name]
		if !exists {
			d.Upgrade = append(d.Upgrade,
				fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, renderColumn(want)))
			d.Downgrade = append(d.Downgrade,
				fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, want.Name))

			continue
		}

		if NormalizeType(have.Type) != want.Type {
			d.Upgrade = append(d.Upgrade,
				fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", table, want.Name, want.Type))
			d.Downgrade = append(d.Downgrade,
				fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
					table, want.Name, NormalizeType(have.Type)))
		}

		if have.NotNull != want.NotNull {
			if want.NotNull {
				d.Upgrade = append(d.Upgrade,
					fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, want.Name))
				d.Downgrade = append(d.Downgrade,
					fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, want.Name))
			} else {
				d.Upgrade = append(d.Upgrade,
					fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, want.Name))
				d.Downgrade = append(d.Downgrade,
					fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, want.Name))
			}
		}
	}

	for _, have := range live {
		if declaredNames[have.Name] {
			continue
		}

		d.Upgrade = append(d.Upgrade,
			fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, have.Name))
		d.Downgrade = append(d.Downgrade,
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, renderColumn(have)))
	}
}

func renderCreateTable(name string, cols []Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = renderColumn(c)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
}

func renderDropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", name)
}

func renderColumn(c Column) string {
	var b strings.Builder

	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(c.Type)

	if c.NotNull {
		b.WriteString(" NOT NULL")
	}

	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}

	return b.String()
}

// typeAliases maps common shorthand type names to the spellings
// information_schema reports, so declared and reflected types compare equal.
var typeAliases = map[string]string{ //nolint:gochecknoglobals // lookup table
	"int":         "integer",
	"int4":        "integer",
	"int8":        "bigint",
	"int2":        "smallint",
	"bool":        "boolean",
	"float4":      "real",
	"float8":      "double precision",
	"timestamptz": "timestamp with time zone",
	"timetz":      "time with time zone",
	"varchar":     "character varying",
	"char":        "character",
	"decimal":     "numeric",
	"serial":      "integer",
	"bigserial":   "bigint",
}

// NormalizeType lowercases a type name and resolves common aliases to the
// information_schema spelling.
func NormalizeType(t string) string {
	normalized := strings.ToLower(strings.TrimSpace(t))

	if canonical, ok := typeAliases[normalized]; ok {
		return canonical
	}

	return normalized
}
