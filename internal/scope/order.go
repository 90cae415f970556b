package scope

import (
	"fmt"
	"sort"
)

// DependencyOrder returns the processing order for the enabled extension
// scopes with core prepended. Extensions are independent of each other
// unless one declares a dependency, in which case dependencies come first.
// An enabled extension depending on a disabled one and dependency cycles
// are both configuration errors.
func DependencyOrder(reg *Registry, enabled []Scope) ([]Scope, error) {
	enabledSet := make(map[Scope]bool, len(enabled))
	for _, s := range enabled {
		enabledSet[s] = true
	}

	deps := make(map[Scope][]Scope, len(enabled))

	for _, s := range enabled {
		decl, err := reg.Extension(s)
		if err != nil {
			return nil, err
		}

		for _, dep := range decl.DependsOn {
			if dep.IsCore() {
				continue // core always precedes every extension anyway
			}

			if !enabledSet[dep] {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrDependencyDisabled, s, dep)
			}

			deps[s] = append(deps[s], dep)
		}
	}

	sorted, err := topoSort(enabled, deps)
	if err != nil {
		return nil, err
	}

	return append([]Scope{Core}, sorted...), nil
}

// topoSort is Kahn's algorithm with deterministic tie-breaking by name.
func topoSort(nodes []Scope, deps map[Scope][]Scope) ([]Scope, error) {
	indegree := make(map[Scope]int, len(nodes))
	dependents := make(map[Scope][]Scope)

	for _, n := range nodes {
		indegree[n] = len(deps[n])

		for _, dep := range deps[n] {
			dependents[dep] = append(dependents[dep], n)
		}
	}

	var ready []Scope

	for _, n := range nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var order []Scope

	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		next := dependents[n]
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })

		for _, m := range next {
			indegree[m]--
			if indegree[m] == 0 {
				ready = append(ready, m)
			}
		}
	}

	if len(order) != len(nodes) {
		var stuck []string

		for _, n := range nodes {
			if indegree[n] > 0 {
				stuck = append(stuck, string(n))
			}
		}

		sort.Strings(stuck)

		return nil, fmt.Errorf("%w: involving %v", ErrDependencyCycle, stuck)
	}

	return order, nil
}
