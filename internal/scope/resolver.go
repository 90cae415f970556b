package scope

import (
	"fmt"
	"sort"
)

// Ownership maps each declared table to the single scope that owns it.
type Ownership map[string]Scope

// Resolve classifies every registered table into exactly one owning scope.
// A declaration marked extends_existing never claims ownership. Two scopes
// claiming the same table without the marker is a fatal conflict; resolution
// does not pick a winner.
func Resolve(declarations []TableDeclaration) (Ownership, error) {
	owned := make(Ownership)

	for _, d := range declarations {
		if d.ExtendsExisting {
			continue
		}

		if owner, claimed := owned[d.Name]; claimed && owner != d.Scope {
			return nil, fmt.Errorf(
				"%w: table %s claimed by scopes %s and %s",
				ErrOwnershipConflict, d.Name, owner, d.Scope,
			)
		}

		owned[d.Name] = d.Scope
	}

	return owned, nil
}

// OwnedBy returns the tables owned by the given scope, sorted by name.
func (o Ownership) OwnedBy(s Scope) []string {
	var out []string

	for table, owner := range o {
		if owner == s {
			out = append(out, table)
		}
	}

	sort.Strings(out)

	return out
}

// IncludePredicate builds the object-inclusion predicate handed to the
// execution engine for one scope. It admits objects owned by the target
// scope; when includeUnclaimed is true it also admits objects no scope
// has claimed. Callers set includeUnclaimed for the core scope, which
// absorbs everything extensions leave unclaimed; extension scopes see
// only their own objects.
func (o Ownership) IncludePredicate(target Scope, includeUnclaimed bool) func(table string) bool {
	return func(table string) bool {
		owner, claimed := o[table]
		if !claimed {
			return includeUnclaimed
		}

		return owner == target
	}
}
