package analysis

import (
	"sort"
	"strings"

	"github.com/kintree/kintree-go/internal/graph"
)

// ShortestPaths returns every path of minimum edge count between two
// people, treating child and partner edges as undirected for connectivity.
//
// Each path is a sequence of person IDs with no repeated ID. When start
// and end are the same person the result is the single trivial path
// containing only that ID. When the two people are in different connected
// components the result is empty with a nil error; "no path" is an answer,
// not a failure. Unknown IDs return a *graph.NotFoundError.
//
// The search enumerates partial paths breadth-first rather than visiting
// nodes once, because every minimal path must be retained. A
// (person, depth) visited record stops re-expansion of a person at depths
// already proven non-improving while still letting multiple minimal paths
// share a person at the same depth. Worst-case cost is exponential in
// graphs with many equal-length paths; family graphs are small enough
// that this is an accepted scale assumption.
//
// Results are sorted lexicographically so output is stable across runs.
func ShortestPaths(g *graph.FamilyGraph, startID, endID string) ([][]string, error) {
	if !g.HasPerson(startID) {
		return nil, &graph.NotFoundError{ID: startID}
	}
	if !g.HasPerson(endID) {
		return nil, &graph.NotFoundError{ID: endID}
	}

	if startID == endID {
		return [][]string{{startID}}, nil
	}

	const unset = -1
	best := unset
	var results [][]string

	// First depth at which each person was reached.
	reached := make(map[string]int)

	queue := [][]string{{startID}}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		depth := len(path) - 1

		// Anything already longer than a known complete path cannot improve.
		if best != unset && depth > best {
			continue
		}

		last := path[len(path)-1]

		if last == endID {
			switch {
			case best == unset || depth < best:
				best = depth
				results = [][]string{path}
			case depth == best:
				results = append(results, path)
			}
			continue
		}

		// Skip expansion when this person was already reached at a
		// strictly shallower depth; equal depth still expands so that
		// distinct minimal paths through a shared person all survive.
		if seen, ok := reached[last]; ok {
			if depth > seen {
				continue
			}
		} else {
			reached[last] = depth
		}

		for _, neighbor := range g.NeighborIDs(last) {
			if containsID(path, neighbor) {
				continue
			}
			extended := make([]string, len(path), len(path)+1)
			copy(extended, path)
			extended = append(extended, neighbor)
			queue = append(queue, extended)
		}
	}

	sortPaths(results)
	return results, nil
}

// PathEdges returns the relationships traversed by any of the given paths.
// An edge matches a path step in either direction, and each relationship
// appears at most once.
func PathEdges(g *graph.FamilyGraph, paths [][]string) []*graph.Relationship {
	steps := make(map[[2]string]bool)
	for _, path := range paths {
		for i := 0; i+1 < len(path); i++ {
			steps[[2]string{path[i], path[i+1]}] = true
		}
	}

	var edges []*graph.Relationship
	for _, rel := range g.Relationships() {
		if steps[[2]string{rel.Source, rel.Target}] || steps[[2]string{rel.Target, rel.Source}] {
			edges = append(edges, rel)
		}
	}
	return edges
}

func containsID(path []string, id string) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}

func sortPaths(paths [][]string) {
	sort.Slice(paths, func(i, j int) bool {
		return strings.Join(paths[i], "\x00") < strings.Join(paths[j], "\x00")
	})
}
