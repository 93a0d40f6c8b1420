// Package analysis provides the graph analyses for Kintree.
//
// It computes generation depths for hierarchical layout, extracts
// ancestor/descendant lineages, and enumerates all shortest connection
// paths between two people. All analyses operate on a loaded
// graph.FamilyGraph and produce derived sets; none of them mutate the
// relationship structure.
package analysis

import (
	"fmt"

	"github.com/kintree/kintree-go/internal/graph"
)

// AssignGenerations computes an integer generation depth for every person.
//
// Roots (people who are never the target of a child edge) are generation 0.
// The assignment iterates full passes over all relationships until a pass
// produces no change:
//   - a child edge raises the child to at least parent+1 once the parent
//     is assigned;
//   - a partner edge copies an assigned generation onto an unassigned
//     partner, and when both ends are assigned but disagree, the edge
//     target is overwritten with the source's value.
//
// The directional overwrite on conflicting partner generations mirrors the
// established behavior; see DESIGN.md for why it is preserved rather than
// replaced with a conflict error.
//
// People unreachable from any root keep GenerationUnassigned. A hard pass
// cap guards against non-terminating propagation on malformed input
// (child edges pointing backward into a deeper generation through partner
// links); exceeding it returns an *graph.IntegrityError.
func AssignGenerations(g *graph.FamilyGraph) error {
	people := g.People()
	for _, p := range people {
		if g.HasIncoming(p.ID, graph.RelChild) {
			p.Generation = graph.GenerationUnassigned
		} else {
			p.Generation = 0
		}
	}

	rels := g.Relationships()

	// Each productive pass raises or assigns at least one generation, and
	// generations are bounded by the edge count on well-formed data, so
	// people+edges passes is enough headroom for any consistent graph.
	maxPasses := len(people) + len(rels) + 1

	for pass := 0; ; pass++ {
		if pass >= maxPasses {
			return &graph.IntegrityError{Problems: []string{
				fmt.Sprintf("generation assignment did not converge after %d passes", maxPasses),
			}}
		}

		changed := false
		for _, rel := range rels {
			switch rel.Type {
			case graph.RelChild:
				if propagateChild(g, rel) {
					changed = true
				}
			case graph.RelPartner:
				if propagatePartner(g, rel) {
					changed = true
				}
			}
		}

		if !changed {
			return nil
		}
	}
}

// propagateChild raises the child to at least parent+1. Reports whether the
// child's generation increased.
func propagateChild(g *graph.FamilyGraph, rel *graph.Relationship) bool {
	parent := g.GetPerson(rel.Source)
	child := g.GetPerson(rel.Target)
	if parent == nil || child == nil {
		return false
	}

	if parent.Generation == graph.GenerationUnassigned {
		return false
	}

	if child.Generation < parent.Generation+1 {
		child.Generation = parent.Generation + 1
		return true
	}
	return false
}

// propagatePartner equalizes the generations of a partner pair. Reports
// whether either endpoint changed.
func propagatePartner(g *graph.FamilyGraph, rel *graph.Relationship) bool {
	a := g.GetPerson(rel.Source)
	b := g.GetPerson(rel.Target)
	if a == nil || b == nil {
		return false
	}

	aSet := a.Generation != graph.GenerationUnassigned
	bSet := b.Generation != graph.GenerationUnassigned

	switch {
	case aSet && !bSet:
		b.Generation = a.Generation
		return true
	case bSet && !aSet:
		a.Generation = b.Generation
		return true
	case aSet && bSet && a.Generation != b.Generation:
		// Directional tie-break: the edge target yields to the source.
		b.Generation = a.Generation
		return true
	}
	return false
}

// GenerationSpan returns the minimum and maximum assigned generation.
// Unassigned people are ignored. ok is false when nobody is assigned.
func GenerationSpan(g *graph.FamilyGraph) (min, max int, ok bool) {
	for _, p := range g.People() {
		if p.Generation == graph.GenerationUnassigned {
			continue
		}
		if !ok {
			min, max, ok = p.Generation, p.Generation, true
			continue
		}
		if p.Generation < min {
			min = p.Generation
		}
		if p.Generation > max {
			max = p.Generation
		}
	}
	return min, max, ok
}
