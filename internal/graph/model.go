// Package graph provides the family relationship graph data model for Kintree.
//
// It defines the person node and typed relationship edge that represent a
// loaded family dataset, and the map-backed graph that serves adjacency
// lookups to the analysis layer.
package graph

// RelType represents the type of relationship between two people.
type RelType string

const (
	// RelChild is a directed parent-to-child edge: Source is the parent,
	// Target is the child.
	RelChild RelType = "child"

	// RelPartner is a union between two people. The edge carries a
	// direction in its representation but is semantically symmetric.
	RelPartner RelType = "partner"
)

// GenerationUnassigned is the sentinel generation value for a person the
// assigner has not reached. Roots are generation 0, so the sentinel must
// be negative.
const GenerationUnassigned = -1

// Person represents a node in the family graph.
type Person struct {
	// ID is the stable unique identifier for the person.
	ID string

	// Name is the display name.
	Name string

	// Generation is the depth from the root generation, computed by the
	// generation assigner. GenerationUnassigned until assignment runs.
	Generation int

	// PhotoPath is an optional reference to an image resource. It plays
	// no role in analysis.
	PhotoPath string

	// Gender is an optional free-form gender string from the person record.
	Gender string

	// BirthDate is an optional birth date string (YYYY-MM-DD) from the
	// person record.
	BirthDate string

	// Nickname is an optional nickname from the person record.
	Nickname string
}

// Relationship represents a typed edge between two people.
type Relationship struct {
	// ID is the unique identifier for the relationship.
	// Format: {type}:{source_id}:{target_id}
	ID string

	// Type is the relationship type.
	Type RelType

	// Source is the ID of the source person (the parent for child edges).
	Source string

	// Target is the ID of the target person (the child for child edges).
	Target string
}

// GenerateRelID creates a deterministic relationship ID from type and endpoints.
// Format: {type}:{source_id}:{target_id}
func GenerateRelID(relType RelType, sourceID, targetID string) string {
	return string(relType) + ":" + sourceID + ":" + targetID
}

// ValidRelType reports whether t is a known relationship type.
func ValidRelType(t RelType) bool {
	return t == RelChild || t == RelPartner
}
