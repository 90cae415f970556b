package scope

import (
	"fmt"
	"sort"
)

// ColumnDeclaration describes one column of a declared table.
type ColumnDeclaration struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	NotNull bool   `yaml:"not_null"`
	Default string `yaml:"default"`
}

// TableDeclaration describes one table and the scope that registered it.
// ExtendsExisting marks a declaration that augments a table owned by
// another scope; such a declaration never claims ownership.
type TableDeclaration struct {
	Name            string              `yaml:"name"`
	Scope           Scope               `yaml:"scope"`
	ExtendsExisting bool                `yaml:"extends_existing"`
	Columns         []ColumnDeclaration `yaml:"columns"`
}

// ExtensionDeclaration registers a pluggable extension scope and the
// extensions it depends on, if any.
type ExtensionDeclaration struct {
	Name      Scope   `yaml:"name"`
	DependsOn []Scope `yaml:"depends_on"`
}

// Registry collects table and extension declarations for one process.
// It is constructed once and passed by reference to every component;
// there is no package-level registry state.
type Registry struct {
	tables     []TableDeclaration
	extensions map[Scope]ExtensionDeclaration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		extensions: make(map[Scope]ExtensionDeclaration),
	}
}

// DeclareExtension registers an extension scope.
func (r *Registry) DeclareExtension(d ExtensionDeclaration) error {
	if !d.Name.Valid() || d.Name.IsCore() {
		return fmt.Errorf("%w: %q", ErrInvalidScopeName, d.Name)
	}

	r.extensions[d.Name] = d

	return nil
}

// DeclareTable registers a table declaration with its explicit scope tag.
// Declaring the same table twice in the same scope is an error; declaring
// it in a second scope is allowed here and judged during resolution.
func (r *Registry) DeclareTable(d TableDeclaration) error {
	if !d.Scope.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidScopeName, d.Scope)
	}

	if d.Name == "" {
		return fmt.Errorf("declaring table in scope %s: empty table name", d.Scope)
	}

	for _, existing := range r.tables {
		if existing.Name == d.Name && existing.Scope == d.Scope {
			return fmt.Errorf("%w: table %s in scope %s", ErrDuplicateDeclaration, d.Name, d.Scope)
		}
	}

	r.tables = append(r.tables, d)

	return nil
}

// Tables returns all table declarations in registration order.
func (r *Registry) Tables() []TableDeclaration {
	out := make([]TableDeclaration, len(r.tables))
	copy(out, r.tables)

	return out
}

// TablesFor returns the declarations owned by the given scope, excluding
// extends_existing declarations, in registration order.
func (r *Registry) TablesFor(s Scope) []TableDeclaration {
	var out []TableDeclaration

	for _, d := range r.tables {
		if d.Scope == s && !d.ExtendsExisting {
			out = append(out, d)
		}
	}

	return out
}

// Extension returns the declaration for a named extension scope.
func (r *Registry) Extension(name Scope) (ExtensionDeclaration, error) {
	d, ok := r.extensions[name]
	if !ok {
		return ExtensionDeclaration{}, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}

	return d, nil
}

// Extensions returns all declared extension scopes sorted by name.
func (r *Registry) Extensions() []ExtensionDeclaration {
	out := make([]ExtensionDeclaration, 0, len(r.extensions))

	for _, d := range r.extensions {
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}
