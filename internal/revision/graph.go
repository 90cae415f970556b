package revision

import (
	"fmt"

	"github.com/daveohlh/scopemigrate/internal/scope"
)

// Target sentinels accepted by path computations.
const (
	TargetLatest = "latest"
	TargetNone   = "none"
	TargetBase   = "base" // alias for none
)

// Graph holds one scope's revisions ordered from root to head and answers
// path queries for upgrades and downgrades. Construction validates that
// the revisions form a single linear chain with correct branch labeling.
type Graph struct {
	scope scope.Scope
	chain []Revision // index 0 is the root
	index map[string]int
}

// NewGraph validates the scope's revisions and returns an ordered Graph.
func NewGraph(s scope.Scope, revisions []Revision) (*Graph, error) {
	g := &Graph{scope: s, index: make(map[string]int)}

	if len(revisions) == 0 {
		return g, nil
	}

	chain, err := orderChain(s, revisions)
	if err != nil {
		return nil, err
	}

	if err := checkBranchLabels(s, chain); err != nil {
		return nil, err
	}

	g.chain = chain

	for i := range chain {
		g.index[chain[i].ID] = i
	}

	return g, nil
}

// orderChain links revisions root-first and rejects anything that is not a
// single linear history.
func orderChain(s scope.Scope, revisions []Revision) ([]Revision, error) {
	byID := make(map[string]*Revision, len(revisions))
	childOf := make(map[string]string) // parent id -> child id

	var root *Revision

	for i := range revisions {
		r := &revisions[i]

		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("scope %s: %w: duplicate revision %s", s, ErrBrokenChain, r.ID)
		}

		byID[r.ID] = r

		if r.IsRoot() {
			if root != nil {
				return nil, fmt.Errorf(
					"scope %s: %w: multiple roots %s and %s", s, ErrBrokenChain, root.ID, r.ID,
				)
			}

			root = r

			continue
		}

		if prev, branched := childOf[r.DownID]; branched {
			return nil, fmt.Errorf(
				"scope %s: %w: %s has children %s and %s", s, ErrBranchedChain, r.DownID, prev, r.ID,
			)
		}

		childOf[r.DownID] = r.ID
	}

	if root == nil {
		return nil, fmt.Errorf("scope %s: %w: no root revision", s, ErrBrokenChain)
	}

	chain := make([]Revision, 0, len(revisions))

	for cur := root; cur != nil; {
		chain = append(chain, *cur)

		childID, ok := childOf[cur.ID]
		if !ok {
			break
		}

		cur = byID[childID]
	}

	if len(chain) != len(revisions) {
		return nil, fmt.Errorf(
			"scope %s: %w: %d of %d revisions reachable from root",
			s, ErrBrokenChain, len(chain), len(revisions),
		)
	}

	return chain, nil
}

// checkBranchLabels enforces label-on-root-only: an extension chain's root
// carries the scope's label, nothing else does, and core is never labeled.
func checkBranchLabels(s scope.Scope, chain []Revision) error {
	for i := range chain {
		r := &chain[i]

		switch {
		case i == 0 && !s.IsCore():
			if r.BranchLabel != s.BranchLabel() {
				return fmt.Errorf(
					"scope %s: %w: root %s carries label %q, want %q",
					s, ErrBranchLabel, r.ID, r.BranchLabel, s.BranchLabel(),
				)
			}
		case r.BranchLabel != "":
			return fmt.Errorf(
				"scope %s: %w: non-root %s carries label %q", s, ErrBranchLabel, r.ID, r.BranchLabel,
			)
		}
	}

	return nil
}

// IsEmpty reports whether the scope has no revisions.
func (g *Graph) IsEmpty() bool {
	return len(g.chain) == 0
}

// Head returns the newest revision, or nil for an empty chain.
func (g *Graph) Head() *Revision {
	if g.IsEmpty() {
		return nil
	}

	head := g.chain[len(g.chain)-1]

	return &head
}

// Revisions returns the chain ordered root-first.
func (g *Graph) Revisions() []Revision {
	out := make([]Revision, len(g.chain))
	copy(out, g.chain)

	return out
}

// Get returns the revision with the given id.
func (g *Graph) Get(id string) (*Revision, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("scope %s: %w: %s", g.scope, ErrUnknownRevision, id)
	}

	rev := g.chain[i]

	return &rev, nil
}

// position resolves a recorded current revision id to a chain index.
// An empty current means "before the root" and maps to -1.
func (g *Graph) position(current string) (int, error) {
	if current == "" {
		return -1, nil
	}

	i, ok := g.index[current]
	if !ok {
		return 0, fmt.Errorf(
			"scope %s: recorded revision %s: %w", g.scope, current, ErrUnknownRevision,
		)
	}

	return i, nil
}

// UpgradePath returns the revisions to apply, oldest first, to move from
// the recorded current state to the target ("latest" or a revision id).
// A target equal to current yields an empty path.
func (g *Graph) UpgradePath(current, target string) ([]Revision, error) {
	curIdx, err := g.position(current)
	if err != nil {
		return nil, err
	}

	tgtIdx := len(g.chain) - 1

	if target != TargetLatest {
		i, ok := g.index[target]
		if !ok {
			return nil, fmt.Errorf("scope %s: target %s: %w", g.scope, target, ErrUnknownRevision)
		}

		tgtIdx = i
	}

	if tgtIdx < curIdx {
		return nil, fmt.Errorf(
			"scope %s: target %s is behind current %s: %w",
			g.scope, target, current, ErrUnreachableRevision,
		)
	}

	path := make([]Revision, 0, tgtIdx-curIdx)
	path = append(path, g.chain[curIdx+1:tgtIdx+1]...)

	return path, nil
}

// DowngradePath returns the revisions to revert, newest first, to move
// from the recorded current state down to the target. Target "none" (or
// "base") reverts the whole chain; the caller then clears the scope's
// version record. A target equal to current yields an empty path.
func (g *Graph) DowngradePath(current, target string) ([]Revision, error) {
	curIdx, err := g.position(current)
	if err != nil {
		return nil, err
	}

	tgtIdx := -1

	if target != TargetNone && target != TargetBase {
		i, ok := g.index[target]
		if !ok {
			return nil, fmt.Errorf("scope %s: target %s: %w", g.scope, target, ErrUnknownRevision)
		}

		tgtIdx = i
	}

	if tgtIdx > curIdx {
		return nil, fmt.Errorf(
			"scope %s: target %s is ahead of current %s: %w",
			g.scope, target, current, ErrUnreachableRevision,
		)
	}

	path := make([]Revision, 0, curIdx-tgtIdx)

	for i := curIdx; i > tgtIdx; i-- {
		path = append(path, g.chain[i])
	}

	return path, nil
}
