package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintree/kintree-go/internal/graph"
)

// testFamily: parents A and B (partners) with children X and Y; Z is X's
// child. W and V form a disconnected couple.
func testFamily() *graph.FamilyGraph {
	g := graph.NewFamilyGraph()
	for _, id := range []string{"A", "B", "X", "Y", "Z", "W", "V"} {
		g.AddPerson(&graph.Person{ID: id, Name: id})
	}
	addRel(g, graph.RelPartner, "A", "B")
	addRel(g, graph.RelChild, "A", "X")
	addRel(g, graph.RelChild, "B", "X")
	addRel(g, graph.RelChild, "A", "Y")
	addRel(g, graph.RelChild, "B", "Y")
	addRel(g, graph.RelChild, "X", "Z")
	addRel(g, graph.RelPartner, "W", "V")
	return g
}

func addRel(g *graph.FamilyGraph, relType graph.RelType, source, target string) {
	g.AddRelationship(&graph.Relationship{
		ID:     graph.GenerateRelID(relType, source, target),
		Type:   relType,
		Source: source,
		Target: target,
	})
}

func TestNewController(t *testing.T) {
	t.Parallel()

	c := NewController(testFamily())

	assert.Equal(t, ModeLineage, c.Mode())

	snap := c.Snapshot()
	assert.Empty(t, snap.Selection)
	assert.Nil(t, snap.LineageMembers)
	assert.Nil(t, snap.Paths)
	assert.False(t, snap.NoPath)
}

func TestController_LineageMode(t *testing.T) {
	t.Parallel()

	t.Run("PickHighlightsLineage", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())

		snap, err := c.Pick("X")
		require.NoError(t, err)

		assert.Equal(t, ModeLineage, snap.Mode)
		assert.Equal(t, map[string]bool{
			"X": true, "A": true, "B": true, "Z": true,
		}, snap.LineageMembers)
		assert.NotEmpty(t, snap.LineageEdges)
		assert.Empty(t, snap.Selection)
	})

	t.Run("NewPickReplacesHighlight", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())

		_, err := c.Pick("X")
		require.NoError(t, err)

		snap, err := c.Pick("W")
		require.NoError(t, err)

		assert.Equal(t, map[string]bool{"W": true}, snap.LineageMembers)
	})

	t.Run("CanvasPickClearsHighlight", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())

		_, err := c.Pick("X")
		require.NoError(t, err)

		snap := c.PickCanvas()

		assert.Nil(t, snap.LineageMembers)
		assert.Nil(t, snap.LineageEdges)
	})

	t.Run("ModifiedPickSelectsWithoutModeSwitch", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())

		_, err := c.Pick("X")
		require.NoError(t, err)

		snap, err := c.PickModified("A")
		require.NoError(t, err)

		assert.Equal(t, ModeLineage, snap.Mode)
		assert.Equal(t, []string{"A"}, snap.Selection)
		// The lineage highlight from the plain pick survives.
		assert.NotNil(t, snap.LineageMembers)

		snap, err = c.PickModified("Z")
		require.NoError(t, err)

		assert.Equal(t, []string{"A", "Z"}, snap.Selection)
		assert.Equal(t, [][]string{{"A", "X", "Z"}}, snap.Paths)
	})

	t.Run("UnknownID", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())

		_, err := c.Pick("nobody")

		var notFound *graph.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestController_PathMode(t *testing.T) {
	t.Parallel()

	t.Run("SelectionBuildsToPairThenResets", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())
		c.SetMode(ModePath)

		snap, err := c.Pick("X")
		require.NoError(t, err)
		assert.Equal(t, []string{"X"}, snap.Selection)
		assert.Nil(t, snap.Paths)

		snap, err = c.Pick("Y")
		require.NoError(t, err)
		assert.Equal(t, []string{"X", "Y"}, snap.Selection)
		require.NotEmpty(t, snap.Paths)
		assert.NotEmpty(t, snap.PathEdges)

		// Third distinct pick starts a new singleton selection.
		snap, err = c.Pick("Z")
		require.NoError(t, err)
		assert.Equal(t, []string{"Z"}, snap.Selection)
		assert.Nil(t, snap.Paths)
	})

	t.Run("PairComputesAllShortestPaths", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())
		c.SetMode(ModePath)

		_, err := c.Pick("X")
		require.NoError(t, err)
		snap, err := c.Pick("Y")
		require.NoError(t, err)

		// X and Y connect through either parent.
		assert.Equal(t, [][]string{
			{"X", "A", "Y"},
			{"X", "B", "Y"},
		}, snap.Paths)
	})

	t.Run("RepickDeselects", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())
		c.SetMode(ModePath)

		_, err := c.Pick("X")
		require.NoError(t, err)
		_, err = c.Pick("Y")
		require.NoError(t, err)

		snap, err := c.Pick("X")
		require.NoError(t, err)

		assert.Equal(t, []string{"Y"}, snap.Selection)
		assert.Nil(t, snap.Paths, "path highlight clears when the pair breaks")
	})

	t.Run("NoPathIsInformational", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())
		c.SetMode(ModePath)

		_, err := c.Pick("X")
		require.NoError(t, err)
		snap, err := c.Pick("W")
		require.NoError(t, err)

		assert.True(t, snap.NoPath)
		assert.Empty(t, snap.Paths)
		assert.Equal(t, []string{"X", "W"}, snap.Selection, "selection survives a no-path result")
	})

	t.Run("CanvasPickClearsSelectionNotMode", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())
		c.SetMode(ModePath)

		_, err := c.Pick("X")
		require.NoError(t, err)
		_, err = c.Pick("Y")
		require.NoError(t, err)

		snap := c.PickCanvas()

		assert.Equal(t, ModePath, snap.Mode)
		assert.Empty(t, snap.Selection)
		assert.Nil(t, snap.Paths)
		assert.False(t, snap.NoPath)
	})
}

func TestController_ModeTransitions(t *testing.T) {
	t.Parallel()

	t.Run("ToggleClearsEverything", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())
		c.SetMode(ModePath)

		_, err := c.Pick("X")
		require.NoError(t, err)
		_, err = c.Pick("Y")
		require.NoError(t, err)

		mode := c.ToggleMode()
		assert.Equal(t, ModeLineage, mode)

		snap := c.Snapshot()
		assert.Empty(t, snap.Selection)
		assert.Nil(t, snap.Paths)
		assert.Nil(t, snap.PathEdges)

		// A subsequent plain pick only highlights lineage.
		snap, err = c.Pick("X")
		require.NoError(t, err)
		assert.NotNil(t, snap.LineageMembers)
		assert.Nil(t, snap.Paths)
		assert.Empty(t, snap.Selection)
	})

	t.Run("ToggleFromLineage", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())

		_, err := c.Pick("X")
		require.NoError(t, err)

		assert.Equal(t, ModePath, c.ToggleMode())
		assert.Nil(t, c.Snapshot().LineageMembers)
	})

	t.Run("SetSameModeStillClears", func(t *testing.T) {
		t.Parallel()
		c := NewController(testFamily())

		_, err := c.Pick("X")
		require.NoError(t, err)

		c.SetMode(ModeLineage)
		assert.Nil(t, c.Snapshot().LineageMembers)
	})
}
