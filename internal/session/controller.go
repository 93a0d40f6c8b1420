// Package session provides the interaction state machine for Kintree.
//
// A Controller interprets discrete user picks against a loaded family
// graph and maintains the current selection and highlight state. It is
// the single owner of all mutable exploration state for a session;
// handlers receive the controller instead of reaching for globals.
package session

import (
	"github.com/kintree/kintree-go/internal/analysis"
	"github.com/kintree/kintree-go/internal/graph"
)

// Mode is the active interaction mode. Exactly one mode is active at a time.
type Mode string

const (
	// ModeLineage highlights the full lineage of a picked person.
	ModeLineage Mode = "lineage"

	// ModePath collects up to two picked people and highlights every
	// shortest connection between them.
	ModePath Mode = "path"
)

// maxSelection is the size of the path-mode selection set.
const maxSelection = 2

// Snapshot is the renderer-facing view of the controller state after an
// interaction. All sets are derived and ephemeral; a new pick replaces them.
type Snapshot struct {
	// Mode is the active interaction mode.
	Mode Mode

	// Selection holds the 0-2 currently selected person IDs, in pick order.
	Selection []string

	// LineageMembers is the lineage highlight set, nil when inactive.
	LineageMembers map[string]bool

	// LineageEdges are the relationships with both endpoints in LineageMembers.
	LineageEdges []*graph.Relationship

	// Paths holds every minimal connection path for a completed pair,
	// nil when no path highlight is active.
	Paths [][]string

	// PathEdges are the relationships traversed by Paths.
	PathEdges []*graph.Relationship

	// NoPath is set when a completed pair has no connection. Informational;
	// the selection is left in place.
	NoPath bool
}

// Controller is the mode-driven selection state machine. It is constructed
// once per session and is not safe for concurrent use; the interaction
// model is single-threaded, with each user action fully processed before
// the next (see the serve loop).
type Controller struct {
	g *graph.FamilyGraph

	mode      Mode
	selection []string

	lineage *analysis.LineageHighlight

	paths     [][]string
	pathEdges []*graph.Relationship
	noPath    bool
}

// NewController creates a controller for the given graph, starting in
// lineage mode with no selection.
func NewController(g *graph.FamilyGraph) *Controller {
	return &Controller{
		g:    g,
		mode: ModeLineage,
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// SetMode switches the interaction mode. Any transition clears all
// selection and highlight state, including a transition to the mode
// already active.
func (c *Controller) SetMode(mode Mode) {
	c.mode = mode
	c.clearAll()
}

// ToggleMode switches to the other mode, clearing all state.
func (c *Controller) ToggleMode() Mode {
	if c.mode == ModeLineage {
		c.SetMode(ModePath)
	} else {
		c.SetMode(ModeLineage)
	}
	return c.mode
}

// Pick handles a plain pick on a person.
//
// In lineage mode the person's lineage replaces any prior lineage
// highlight. In path mode the person is toggled in or out of the
// selection set. Returns a *graph.NotFoundError for an unknown ID.
func (c *Controller) Pick(personID string) (*Snapshot, error) {
	if !c.g.HasPerson(personID) {
		return nil, &graph.NotFoundError{ID: personID}
	}

	if c.mode == ModeLineage {
		lineage, err := analysis.Lineage(c.g, personID)
		if err != nil {
			return nil, err
		}
		c.lineage = lineage
		return c.snapshot(), nil
	}

	return c.pickForPath(personID)
}

// PickModified handles a modified pick (secondary trigger held). In
// lineage mode it routes to path-selection handling without switching
// mode; in path mode it behaves like a plain pick.
func (c *Controller) PickModified(personID string) (*Snapshot, error) {
	if !c.g.HasPerson(personID) {
		return nil, &graph.NotFoundError{ID: personID}
	}
	return c.pickForPath(personID)
}

// PickCanvas handles a pick on empty canvas. In lineage mode it clears all
// highlighting; in path mode it clears the selection set and any path
// highlight without changing mode.
func (c *Controller) PickCanvas() *Snapshot {
	if c.mode == ModeLineage {
		c.clearAll()
	} else {
		c.clearPathState()
	}
	return c.snapshot()
}

// Snapshot returns the current renderer-facing state.
func (c *Controller) Snapshot() *Snapshot {
	return c.snapshot()
}

// pickForPath toggles the person in the selection set and recomputes the
// path highlight when the set reaches two members.
func (c *Controller) pickForPath(personID string) (*Snapshot, error) {
	switch {
	case c.isSelected(personID):
		c.removeFromSelection(personID)
		c.clearPathHighlight()
	case len(c.selection) < maxSelection:
		c.selection = append(c.selection, personID)
	default:
		// Third distinct pick: restart with a singleton selection.
		c.selection = []string{personID}
		c.clearPathHighlight()
	}

	if len(c.selection) == maxSelection {
		paths, err := analysis.ShortestPaths(c.g, c.selection[0], c.selection[1])
		if err != nil {
			return nil, err
		}

		if len(paths) == 0 {
			// No connection between the pair. Informational; the
			// selection set is left unchanged.
			c.clearPathHighlight()
			c.noPath = true
		} else {
			c.paths = paths
			c.pathEdges = analysis.PathEdges(c.g, paths)
			c.noPath = false
		}
	}

	return c.snapshot(), nil
}

func (c *Controller) isSelected(personID string) bool {
	for _, id := range c.selection {
		if id == personID {
			return true
		}
	}
	return false
}

func (c *Controller) removeFromSelection(personID string) {
	kept := c.selection[:0]
	for _, id := range c.selection {
		if id != personID {
			kept = append(kept, id)
		}
	}
	c.selection = kept
}

func (c *Controller) clearPathHighlight() {
	c.paths = nil
	c.pathEdges = nil
	c.noPath = false
}

func (c *Controller) clearPathState() {
	c.selection = nil
	c.clearPathHighlight()
}

func (c *Controller) clearAll() {
	c.lineage = nil
	c.clearPathState()
}

func (c *Controller) snapshot() *Snapshot {
	s := &Snapshot{
		Mode:      c.mode,
		Selection: append([]string(nil), c.selection...),
		Paths:     c.paths,
		PathEdges: c.pathEdges,
		NoPath:    c.noPath,
	}
	if c.lineage != nil {
		s.LineageMembers = c.lineage.Members
		s.LineageEdges = c.lineage.Edges
	}
	return s
}
