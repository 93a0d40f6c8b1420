package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kintree/kintree-go/internal/graph"
)

// MemoryBackend is an in-memory implementation of Backend for testing and
// for serving a dataset without touching disk.
type MemoryBackend struct {
	mu            sync.RWMutex
	people        map[string]*graph.Person
	relationships map[string]*graph.Relationship
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		people:        make(map[string]*graph.Person),
		relationships: make(map[string]*graph.Relationship),
	}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people = nil
	m.relationships = nil
	return nil
}

// BulkLoad implements Backend.
func (m *MemoryBackend) BulkLoad(ctx context.Context, g *graph.FamilyGraph) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.people = make(map[string]*graph.Person)
	m.relationships = make(map[string]*graph.Relationship)

	for _, person := range g.People() {
		p := *person
		m.people[p.ID] = &p
	}
	for _, rel := range g.Relationships() {
		r := *rel
		m.relationships[r.ID] = &r
	}
	return nil
}

// LoadGraph implements Backend.
func (m *MemoryBackend) LoadGraph(ctx context.Context) (*graph.FamilyGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := graph.NewFamilyGraph()
	for _, person := range m.people {
		p := *person
		gen := p.Generation
		g.AddPerson(&p)
		p.Generation = gen
	}
	for _, rel := range m.relationships {
		r := *rel
		g.AddRelationship(&r)
	}
	return g, nil
}

// GetPerson implements Backend.
func (m *MemoryBackend) GetPerson(ctx context.Context, personID string) (*graph.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.people[personID], nil
}

// FindByName implements Backend. Matching mirrors the Badger backend:
// every query token must prefix-match a name or nickname token.
func (m *MemoryBackend) FindByName(ctx context.Context, query string, limit int) ([]FindResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := tokenizeName(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var results []FindResult
	for _, person := range m.people {
		tokens := tokenizeName(person.Name)
		if person.Nickname != "" {
			tokens = append(tokens, tokenizeName(person.Nickname)...)
		}

		score := 0
		for _, qt := range queryTokens {
			for _, token := range tokens {
				if strings.HasPrefix(token, qt) {
					score++
					break
				}
			}
		}
		if score < len(queryTokens) {
			continue
		}

		results = append(results, FindResult{
			PersonID:   person.ID,
			Name:       person.Name,
			Generation: person.Generation,
			Score:      score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// PersonCount implements Backend.
func (m *MemoryBackend) PersonCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.people)
}

// RelationshipCount implements Backend.
func (m *MemoryBackend) RelationshipCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relationships)
}
