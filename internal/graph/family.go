// Package graph provides the in-memory family graph for Kintree.
//
// FamilyGraph is a lightweight, map-backed graph that stores Person and
// Relationship instances with O(1) lookups by ID. Secondary indexes on
// relationship type and adjacency lists keep lookups proportional to the
// result set rather than the total graph size.
package graph

import (
	"sync"
)

// FamilyGraph is an in-memory graph of people and their typed relationships.
//
// People are keyed by their ID string; relationships are keyed likewise.
// The graph is built once per loaded dataset and treated as read-only
// afterwards, with the single exception of the Generation field on each
// Person, which the generation assigner annotates in place.
//
// All query methods are backed by secondary indexes so that lookups by
// relationship type or adjacency are O(result) rather than O(graph).
type FamilyGraph struct {
	mu            sync.RWMutex
	people        map[string]*Person
	relationships map[string]*Relationship

	// Secondary indexes — kept in sync by the add helpers.
	byType   map[RelType]map[string]*Relationship
	outgoing map[string]map[string]*Relationship
	incoming map[string]map[string]*Relationship
}

// NewFamilyGraph creates a new empty family graph.
func NewFamilyGraph() *FamilyGraph {
	return &FamilyGraph{
		people:        make(map[string]*Person),
		relationships: make(map[string]*Relationship),
		byType:        make(map[RelType]map[string]*Relationship),
		outgoing:      make(map[string]map[string]*Relationship),
		incoming:      make(map[string]map[string]*Relationship),
	}
}

// PersonCount returns the number of people without list materialization.
func (g *FamilyGraph) PersonCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.people)
}

// RelationshipCount returns the number of relationships without list materialization.
func (g *FamilyGraph) RelationshipCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.relationships)
}

// AddPerson adds a person to the graph, replacing any existing person with
// the same ID. The generation is forced to the unassigned sentinel; any
// pre-populated generation from an external producer is overwritten by the
// assigner.
func (g *FamilyGraph) AddPerson(p *Person) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p.Generation = GenerationUnassigned
	g.people[p.ID] = p
}

// GetPerson returns the person with the given ID, or nil if they do not exist.
func (g *FamilyGraph) GetPerson(personID string) *Person {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.people[personID]
}

// HasPerson reports whether a person with the given ID exists.
func (g *FamilyGraph) HasPerson(personID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.people[personID]
	return ok
}

// People returns all people in the graph.
func (g *FamilyGraph) People() []*Person {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*Person, 0, len(g.people))
	for _, p := range g.people {
		result = append(result, p)
	}
	return result
}

// Relationships returns all relationships in the graph.
func (g *FamilyGraph) Relationships() []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*Relationship, 0, len(g.relationships))
	for _, rel := range g.relationships {
		result = append(result, rel)
	}
	return result
}

// AddRelationship adds a relationship to the graph, replacing any existing
// relationship with the same ID.
func (g *FamilyGraph) AddRelationship(rel *Relationship) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Remove old relationship from indexes
	if old, ok := g.relationships[rel.ID]; ok {
		delete(g.byType[old.Type], rel.ID)
		delete(g.outgoing[old.Source], rel.ID)
		delete(g.incoming[old.Target], rel.ID)
	}

	g.relationships[rel.ID] = rel

	if g.byType[rel.Type] == nil {
		g.byType[rel.Type] = make(map[string]*Relationship)
	}
	g.byType[rel.Type][rel.ID] = rel

	if g.outgoing[rel.Source] == nil {
		g.outgoing[rel.Source] = make(map[string]*Relationship)
	}
	g.outgoing[rel.Source][rel.ID] = rel

	if g.incoming[rel.Target] == nil {
		g.incoming[rel.Target] = make(map[string]*Relationship)
	}
	g.incoming[rel.Target][rel.ID] = rel
}

// RelationshipsByType returns all relationships with the given type.
func (g *FamilyGraph) RelationshipsByType(relType RelType) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rels, ok := g.byType[relType]
	if !ok {
		return nil
	}

	result := make([]*Relationship, 0, len(rels))
	for _, rel := range rels {
		result = append(result, rel)
	}
	return result
}

// Outgoing returns relationships originating from the given person ID.
// If relType is provided, only relationships of that type are returned.
func (g *FamilyGraph) Outgoing(personID string, relType ...RelType) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterRels(g.outgoing[personID], relType)
}

// Incoming returns relationships targeting the given person ID.
// If relType is provided, only relationships of that type are returned.
func (g *FamilyGraph) Incoming(personID string, relType ...RelType) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterRels(g.incoming[personID], relType)
}

// HasIncoming returns true if the person has any incoming relationship of
// the given type.
func (g *FamilyGraph) HasIncoming(personID string, relType RelType) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rels, ok := g.incoming[personID]
	if !ok {
		return false
	}

	for _, rel := range rels {
		if rel.Type == relType {
			return true
		}
	}
	return false
}

// Parents returns the people with a child edge into the given person.
func (g *FamilyGraph) Parents(personID string) []*Person {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var parents []*Person
	for _, rel := range g.incoming[personID] {
		if rel.Type != RelChild {
			continue
		}
		if parent, exists := g.people[rel.Source]; exists {
			parents = append(parents, parent)
		}
	}
	return parents
}

// Children returns the people the given person has a child edge to.
func (g *FamilyGraph) Children(personID string) []*Person {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var children []*Person
	for _, rel := range g.outgoing[personID] {
		if rel.Type != RelChild {
			continue
		}
		if child, exists := g.people[rel.Target]; exists {
			children = append(children, child)
		}
	}
	return children
}

// Partners returns the people connected to the given person by a partner
// edge in either direction.
func (g *FamilyGraph) Partners(personID string) []*Person {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var partners []*Person
	for _, rel := range g.outgoing[personID] {
		if rel.Type != RelPartner {
			continue
		}
		if p, exists := g.people[rel.Target]; exists {
			partners = append(partners, p)
		}
	}
	for _, rel := range g.incoming[personID] {
		if rel.Type != RelPartner {
			continue
		}
		if p, exists := g.people[rel.Source]; exists {
			partners = append(partners, p)
		}
	}
	return partners
}

// NeighborIDs returns the IDs of every person directly connected to the
// given person by any relationship in either direction, deduplicated.
// This is the undirected adjacency used by the path finder.
func (g *FamilyGraph) NeighborIDs(personID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var neighbors []string

	for _, rel := range g.outgoing[personID] {
		if !seen[rel.Target] {
			seen[rel.Target] = true
			neighbors = append(neighbors, rel.Target)
		}
	}
	for _, rel := range g.incoming[personID] {
		if !seen[rel.Source] {
			seen[rel.Source] = true
			neighbors = append(neighbors, rel.Source)
		}
	}
	return neighbors
}

// Validate checks referential integrity: every relationship endpoint must
// resolve to a person in the graph. Returns an *IntegrityError listing
// every dangling reference, or nil if the graph is consistent.
func (g *FamilyGraph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var problems []string
	for _, rel := range g.relationships {
		if _, ok := g.people[rel.Source]; !ok {
			problems = append(problems, "relationship "+rel.ID+" references missing person "+rel.Source)
		}
		if _, ok := g.people[rel.Target]; !ok {
			problems = append(problems, "relationship "+rel.ID+" references missing person "+rel.Target)
		}
	}

	if len(problems) > 0 {
		return &IntegrityError{Problems: problems}
	}
	return nil
}

// Stats returns a summary of graph size.
func (g *FamilyGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return map[string]int{
		"people":        len(g.people),
		"relationships": len(g.relationships),
	}
}

// filterRels materializes a relationship index entry, optionally keeping
// only the given type. Must be called with at least a read lock held.
func filterRels(rels map[string]*Relationship, relType []RelType) []*Relationship {
	if rels == nil {
		return nil
	}

	if len(relType) > 0 && relType[0] != "" {
		result := make([]*Relationship, 0)
		for _, rel := range rels {
			if rel.Type == relType[0] {
				result = append(result, rel)
			}
		}
		return result
	}

	result := make([]*Relationship, 0, len(rels))
	for _, rel := range rels {
		result = append(result, rel)
	}
	return result
}
