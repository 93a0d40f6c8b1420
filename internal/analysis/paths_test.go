package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintree/kintree-go/internal/graph"
)

func TestShortestPaths(t *testing.T) {
	t.Parallel()

	t.Run("SamePersonTrivialPath", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		paths, err := ShortestPaths(g, "P", "P")
		require.NoError(t, err)

		assert.Equal(t, [][]string{{"P"}}, paths)
	})

	t.Run("DirectEdge", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		paths, err := ShortestPaths(g, "P", "Q")
		require.NoError(t, err)

		assert.Equal(t, [][]string{{"P", "Q"}}, paths)
	})

	t.Run("DiamondYieldsBothMinimalPaths", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(
			[]string{"A", "B", "C", "D"},
			rel(graph.RelChild, "A", "B"),
			rel(graph.RelChild, "B", "D"),
			rel(graph.RelChild, "A", "C"),
			rel(graph.RelChild, "C", "D"),
		)

		paths, err := ShortestPaths(g, "A", "D")
		require.NoError(t, err)

		assert.Equal(t, [][]string{
			{"A", "B", "D"},
			{"A", "C", "D"},
		}, paths)
	})

	t.Run("LongerPathsDiscarded", func(t *testing.T) {
		t.Parallel()
		// Triangle: A-B, B-C, A-C. Only the direct edge is minimal.
		g := buildGraph(
			[]string{"A", "B", "C"},
			rel(graph.RelChild, "A", "B"),
			rel(graph.RelChild, "B", "C"),
			rel(graph.RelPartner, "A", "C"),
		)

		paths, err := ShortestPaths(g, "A", "C")
		require.NoError(t, err)

		assert.Equal(t, [][]string{{"A", "C"}}, paths)
	})

	t.Run("EdgesAreUndirected", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		// C1 to GA runs against the direction of both child edges.
		paths, err := ShortestPaths(g, "C1", "GA")
		require.NoError(t, err)

		require.NotEmpty(t, paths)
		for _, path := range paths {
			assert.Len(t, path, 3)
			assert.Equal(t, "C1", path[0])
			assert.Equal(t, "GA", path[len(path)-1])
		}
	})

	t.Run("AllPathsSameMinimalLength", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		paths, err := ShortestPaths(g, "GA", "C2")
		require.NoError(t, err)

		require.NotEmpty(t, paths)
		want := len(paths[0])
		for _, path := range paths {
			assert.Len(t, path, want)
		}
	})

	t.Run("SimplePathsOnly", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		paths, err := ShortestPaths(g, "GA", "C1")
		require.NoError(t, err)

		for _, path := range paths {
			seen := make(map[string]bool)
			for _, id := range path {
				assert.False(t, seen[id], "path %v repeats %s", path, id)
				seen[id] = true
			}
		}
	})

	t.Run("DisconnectedComponentsEmptyNotError", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(
			[]string{"A", "B", "X", "Y"},
			rel(graph.RelChild, "A", "B"),
			rel(graph.RelChild, "X", "Y"),
		)

		paths, err := ShortestPaths(g, "A", "Y")
		require.NoError(t, err)

		assert.Empty(t, paths)
	})

	t.Run("SharedMidpointKeepsAllMinimalPaths", func(t *testing.T) {
		t.Parallel()
		// Two ways into M and two ways out: all four 4-node paths are
		// minimal and pass through the shared midpoint.
		g := buildGraph(
			[]string{"S", "L1", "L2", "M", "R1", "R2", "E"},
			rel(graph.RelChild, "S", "L1"),
			rel(graph.RelChild, "S", "L2"),
			rel(graph.RelChild, "L1", "M"),
			rel(graph.RelChild, "L2", "M"),
			rel(graph.RelChild, "M", "R1"),
			rel(graph.RelChild, "M", "R2"),
			rel(graph.RelChild, "R1", "E"),
			rel(graph.RelChild, "R2", "E"),
		)

		paths, err := ShortestPaths(g, "S", "E")
		require.NoError(t, err)

		assert.Equal(t, [][]string{
			{"S", "L1", "M", "R1", "E"},
			{"S", "L1", "M", "R2", "E"},
			{"S", "L2", "M", "R1", "E"},
			{"S", "L2", "M", "R2", "E"},
		}, paths)
	})

	t.Run("UnknownStart", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		_, err := ShortestPaths(g, "nobody", "P")

		var notFound *graph.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("UnknownEnd", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		_, err := ShortestPaths(g, "P", "nobody")
		assert.Error(t, err)
	})
}

func TestPathEdges(t *testing.T) {
	t.Parallel()

	t.Run("DiamondEdges", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(
			[]string{"A", "B", "C", "D"},
			rel(graph.RelChild, "A", "B"),
			rel(graph.RelChild, "B", "D"),
			rel(graph.RelChild, "A", "C"),
			rel(graph.RelChild, "C", "D"),
		)

		paths, err := ShortestPaths(g, "A", "D")
		require.NoError(t, err)

		edges := PathEdges(g, paths)
		edgeIDs := make([]string, 0, len(edges))
		for _, e := range edges {
			edgeIDs = append(edgeIDs, e.ID)
		}

		assert.ElementsMatch(t, []string{
			"child:A:B", "child:B:D", "child:A:C", "child:C:D",
		}, edgeIDs)
	})

	t.Run("MatchesAgainstEdgeDirection", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(
			[]string{"A", "B"},
			rel(graph.RelChild, "A", "B"),
		)

		// The path runs child-to-parent; the stored edge still matches.
		edges := PathEdges(g, [][]string{{"B", "A"}})

		require.Len(t, edges, 1)
		assert.Equal(t, "child:A:B", edges[0].ID)
	})

	t.Run("NoPaths", func(t *testing.T) {
		t.Parallel()
		g := threeGenerations()

		assert.Empty(t, PathEdges(g, nil))
	})
}
