package graph

import (
	"fmt"
	"strings"
)

// IntegrityError reports a data-integrity fault in a loaded dataset:
// a relationship referencing a person that does not exist, or a
// generation propagation that failed to reach a fixpoint.
//
// Integrity faults are fatal at load time; the core does not attempt
// partial recovery.
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	if len(e.Problems) == 1 {
		return "data integrity fault: " + e.Problems[0]
	}
	return fmt.Sprintf("data integrity fault (%d problems): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// NotFoundError reports a lookup with a person ID absent from the graph.
// IDs are expected to originate from the graph itself, so this indicates
// a caller bug rather than bad data.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("person %q not found in graph", e.ID)
}
