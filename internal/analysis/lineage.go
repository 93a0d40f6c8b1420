package analysis

import (
	"github.com/kintree/kintree-go/internal/graph"
)

// LineageHighlight is the derived highlight state for a selected person:
// the person plus their full ancestor and descendant closure, and every
// relationship with both endpoints inside that set.
type LineageHighlight struct {
	// PersonID is the selected person.
	PersonID string

	// Members is {PersonID} ∪ ancestors ∪ descendants.
	Members map[string]bool

	// Edges are the relationships with both endpoints in Members.
	Edges []*graph.Relationship
}

// Ancestors returns the set of person IDs reachable by repeatedly
// following child edges backward (child to parent) from the given person,
// excluding the person themselves.
//
// Returns a *graph.NotFoundError if the ID is not in the graph.
func Ancestors(g *graph.FamilyGraph, personID string) (map[string]bool, error) {
	if !g.HasPerson(personID) {
		return nil, &graph.NotFoundError{ID: personID}
	}
	return closure(g, personID, parentIDs), nil
}

// Descendants returns the set of person IDs reachable by repeatedly
// following child edges forward (parent to child) from the given person,
// excluding the person themselves.
//
// Returns a *graph.NotFoundError if the ID is not in the graph.
func Descendants(g *graph.FamilyGraph, personID string) (map[string]bool, error) {
	if !g.HasPerson(personID) {
		return nil, &graph.NotFoundError{ID: personID}
	}
	return closure(g, personID, childIDs), nil
}

// Lineage composes Ancestors and Descendants into a single highlight:
// the member set and the subset of relationships whose both endpoints lie
// within it. This is a pure computation with no rendering side effects.
func Lineage(g *graph.FamilyGraph, personID string) (*LineageHighlight, error) {
	ancestors, err := Ancestors(g, personID)
	if err != nil {
		return nil, err
	}
	descendants, err := Descendants(g, personID)
	if err != nil {
		return nil, err
	}

	members := make(map[string]bool, len(ancestors)+len(descendants)+1)
	members[personID] = true
	for id := range ancestors {
		members[id] = true
	}
	for id := range descendants {
		members[id] = true
	}

	var edges []*graph.Relationship
	for _, rel := range g.Relationships() {
		if members[rel.Source] && members[rel.Target] {
			edges = append(edges, rel)
		}
	}

	return &LineageHighlight{
		PersonID: personID,
		Members:  members,
		Edges:    edges,
	}, nil
}

// closure walks the graph from start with an explicit stack worklist,
// collecting everything the step function yields. The per-call visited set
// guarantees termination even on cyclic input, and deduplicates people
// reachable along multiple branches. The start person is excluded from the
// result.
func closure(g *graph.FamilyGraph, start string, step func(*graph.FamilyGraph, string) []string) map[string]bool {
	result := make(map[string]bool)
	visited := map[string]bool{start: true}
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range step(g, current) {
			if visited[next] {
				continue
			}
			visited[next] = true
			result[next] = true
			stack = append(stack, next)
		}
	}

	return result
}

func parentIDs(g *graph.FamilyGraph, personID string) []string {
	rels := g.Incoming(personID, graph.RelChild)
	ids := make([]string, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.Source)
	}
	return ids
}

func childIDs(g *graph.FamilyGraph, personID string) []string {
	rels := g.Outgoing(personID, graph.RelChild)
	ids := make([]string, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.Target)
	}
	return ids
}
