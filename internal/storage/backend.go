// Package storage provides the persistent dataset store for Kintree.
//
// It defines the Backend interface that all storage implementations must
// satisfy, along with common types used across backends. A backend holds
// the most recently loaded family dataset, including the generation
// annotations computed at load time, so query commands can run without
// re-parsing the source document.
package storage

import (
	"context"

	"github.com/kintree/kintree-go/internal/graph"
)

// FindResult is a name-search hit.
type FindResult struct {
	// PersonID is the ID of the matching person.
	PersonID string

	// Name is the person's display name.
	Name string

	// Generation is the person's assigned generation.
	Generation int

	// Score is the number of query tokens the name matched (higher is better).
	Score int
}

// Backend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Lifecycle methods

	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Bulk operations

	// BulkLoad replaces the entire store with the contents of the graph.
	BulkLoad(ctx context.Context, g *graph.FamilyGraph) error

	// LoadGraph rehydrates the stored dataset into a FamilyGraph,
	// preserving generation annotations.
	LoadGraph(ctx context.Context) (*graph.FamilyGraph, error)

	// Person operations

	// GetPerson returns a single person by ID, or nil if not found.
	GetPerson(ctx context.Context, personID string) (*graph.Person, error)

	// FindByName searches people by name tokens. Every query token must
	// prefix-match some name token. Results are ordered by score, then name.
	FindByName(ctx context.Context, query string, limit int) ([]FindResult, error)

	// Counts

	// PersonCount returns the number of stored people.
	PersonCount() int

	// RelationshipCount returns the number of stored relationships.
	RelationshipCount() int
}
