// Package mcp provides the MCP (Model Context Protocol) exploration server
// for Kintree.
//
// The server exposes the interactive selection session over stdio JSON-RPC:
// tools drive the mode and pick state machine, resources expose read-only
// dataset views. Requests are processed strictly one at a time, matching the
// single-threaded interaction model of the session controller.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kintree/kintree-go/internal/analysis"
	"github.com/kintree/kintree-go/internal/graph"
	"github.com/kintree/kintree-go/internal/session"
	"github.com/kintree/kintree-go/internal/storage"
)

// Server represents the MCP exploration server.
type Server struct {
	storage StorageBackend
	server  *mcp.Server

	// mu serializes all access to the session state. Tool calls arrive one
	// per JSON-RPC request, but the watch reload path swaps the graph from
	// another goroutine.
	mu      sync.Mutex
	graph   *graph.FamilyGraph
	session *session.Controller
}

// StorageBackend defines the storage interface the server depends on.
type StorageBackend interface {
	LoadGraph(ctx context.Context) (*graph.FamilyGraph, error)
	FindByName(ctx context.Context, query string, limit int) ([]storage.FindResult, error)
	PersonCount() int
	RelationshipCount() int
	Close() error
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new exploration server over the stored dataset.
func NewServer(ctx context.Context, store StorageBackend) (*Server, error) {
	g, err := store.LoadGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	s := &Server{
		storage: store,
		graph:   g,
		session: session.NewController(g),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "kintree",
		Version: "0.1.0",
	}, nil)

	return s, nil
}

// SetGraph replaces the session graph. The running session is reset; a
// selection against the previous dataset has no meaning in the new one.
func (s *Server) SetGraph(g *graph.FamilyGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
	s.session = session.NewController(g)
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "kin_mode",
			Description: "Set or toggle the interaction mode (lineage or path). Switching clears the selection and all highlights.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"mode": {Type: "string", Description: "Target mode: 'lineage' or 'path'. Omit to toggle."},
				},
			},
		},
		{
			Name:        "kin_pick",
			Description: "Pick a person. In lineage mode this highlights their full lineage; in path mode it toggles them in the selection pair.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"person": {Type: "string", Description: "Person ID or name"},
				},
				Required: []string{"person"},
			},
		},
		{
			Name:        "kin_pick_modified",
			Description: "Pick a person with the modifier held: path-style selection without leaving lineage mode.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"person": {Type: "string", Description: "Person ID or name"},
				},
				Required: []string{"person"},
			},
		},
		{
			Name:        "kin_clear",
			Description: "Pick on empty canvas: clears highlights (lineage mode) or the selection pair (path mode).",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
		{
			Name:        "kin_lineage",
			Description: "Report the ancestors and descendants of a person without touching the session state.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"person": {Type: "string", Description: "Person ID or name"},
				},
				Required: []string{"person"},
			},
		},
		{
			Name:        "kin_paths",
			Description: "Report every shortest connection path between two people without touching the session state.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"from": {Type: "string", Description: "First person ID or name"},
					"to":   {Type: "string", Description: "Second person ID or name"},
				},
				Required: []string{"from", "to"},
			},
		},
		{
			Name:        "kin_find",
			Description: "Search people by name. Returns ranked matches with IDs and generations.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Name to search for"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "kin://overview",
			Name:        "Dataset Overview",
			Description: "High-level statistics about the loaded family dataset and the session state",
			MimeType:    "text/plain",
		},
		{
			URI:         "kin://generations",
			Name:        "Generation Listing",
			Description: "Every person grouped by assigned generation",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "kin_mode":
		mode, _ := args["mode"].(string)
		return s.handleMode(mode)
	case "kin_pick":
		person, _ := args["person"].(string)
		return s.handlePick(ctx, person, false)
	case "kin_pick_modified":
		person, _ := args["person"].(string)
		return s.handlePick(ctx, person, true)
	case "kin_clear":
		return s.formatSnapshot(s.session.PickCanvas()), nil
	case "kin_lineage":
		person, _ := args["person"].(string)
		return s.handleLineage(ctx, person)
	case "kin_paths":
		from, _ := args["from"].(string)
		to, _ := args["to"].(string)
		return s.handlePaths(ctx, from, to)
	case "kin_find":
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return s.handleFind(ctx, query, int(limit))
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch uri {
	case "kin://overview":
		return s.getOverview(), nil
	case "kin://generations":
		return s.getGenerationListing(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Parse JSON-RPC request
		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		// Handle request
		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "kintree",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Tool Handlers

func (s *Server) handleMode(mode string) (string, error) {
	switch mode {
	case "":
		s.session.ToggleMode()
	case string(session.ModeLineage):
		s.session.SetMode(session.ModeLineage)
	case string(session.ModePath):
		s.session.SetMode(session.ModePath)
	default:
		return "", fmt.Errorf("unknown mode %q (want 'lineage' or 'path')", mode)
	}

	return fmt.Sprintf("Mode: %s. Selection and highlights cleared.", s.session.Mode()), nil
}

func (s *Server) handlePick(ctx context.Context, person string, modified bool) (string, error) {
	if person == "" {
		return "No person provided", nil
	}

	personID, err := s.resolvePerson(ctx, person)
	if err != nil {
		return "", err
	}

	var snap *session.Snapshot
	if modified {
		snap, err = s.session.PickModified(personID)
	} else {
		snap, err = s.session.Pick(personID)
	}
	if err != nil {
		return "", err
	}

	return s.formatSnapshot(snap), nil
}

func (s *Server) handleLineage(ctx context.Context, person string) (string, error) {
	if person == "" {
		return "No person provided", nil
	}

	personID, err := s.resolvePerson(ctx, person)
	if err != nil {
		return "", err
	}

	ancestors, err := analysis.Ancestors(s.graph, personID)
	if err != nil {
		return "", err
	}
	descendants, err := analysis.Descendants(s.graph, personID)
	if err != nil {
		return "", err
	}

	p := s.graph.GetPerson(personID)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Lineage of **%s** (%s)\n\n", p.Name, p.ID))
	sb.WriteString(s.formatPersonSet("Ancestors", ancestors, personID))
	sb.WriteString("\n")
	sb.WriteString(s.formatPersonSet("Descendants", descendants, personID))

	return sb.String(), nil
}

func (s *Server) handlePaths(ctx context.Context, from, to string) (string, error) {
	if from == "" || to == "" {
		return "Both 'from' and 'to' are required", nil
	}

	fromID, err := s.resolvePerson(ctx, from)
	if err != nil {
		return "", err
	}
	toID, err := s.resolvePerson(ctx, to)
	if err != nil {
		return "", err
	}

	paths, err := analysis.ShortestPaths(s.graph, fromID, toID)
	if err != nil {
		return "", err
	}

	fromPerson := s.graph.GetPerson(fromID)
	toPerson := s.graph.GetPerson(toID)

	if len(paths) == 0 {
		return fmt.Sprintf("No connection between %s and %s.", fromPerson.Name, toPerson.Name), nil
	}

	var sb strings.Builder
	hops := len(paths[0]) - 1
	sb.WriteString(fmt.Sprintf("%d shortest path(s) between **%s** and **%s** (%d hops):\n\n",
		len(paths), fromPerson.Name, toPerson.Name, hops))
	for i, path := range paths {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s.formatPath(path)))
	}

	return sb.String(), nil
}

func (s *Server) handleFind(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	results, err := s.storage.FindByName(ctx, query, limit)
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s) for '%s':\n\n", len(results), query))
	for i, r := range results {
		if r.Generation != graph.GenerationUnassigned {
			sb.WriteString(fmt.Sprintf("%d. **%s** (%s, generation %d)\n", i+1, r.Name, r.PersonID, r.Generation))
		} else {
			sb.WriteString(fmt.Sprintf("%d. **%s** (%s)\n", i+1, r.Name, r.PersonID))
		}
	}
	sb.WriteString("\nNext: Use `kin_pick` to highlight a person in the session.")

	return sb.String(), nil
}

// resolvePerson turns a person reference (exact ID or a name query) into a
// person ID present in the session graph. Caller must hold s.mu.
func (s *Server) resolvePerson(ctx context.Context, ref string) (string, error) {
	if s.graph.HasPerson(ref) {
		return ref, nil
	}

	results, err := s.storage.FindByName(ctx, ref, 5)
	if err != nil {
		return "", fmt.Errorf("searching for %q: %w", ref, err)
	}

	// The store may hold a different snapshot than a watch-reloaded session
	// graph; only accept matches that exist in the session graph.
	var candidates []storage.FindResult
	for _, r := range results {
		if s.graph.HasPerson(r.PersonID) {
			candidates = append(candidates, r)
		}
	}

	switch len(candidates) {
	case 0:
		return "", &graph.NotFoundError{ID: ref}
	case 1:
		return candidates[0].PersonID, nil
	default:
		names := make([]string, 0, len(candidates))
		for _, r := range candidates {
			names = append(names, fmt.Sprintf("%s (%s)", r.Name, r.PersonID))
		}
		return "", fmt.Errorf("ambiguous person %q: %s", ref, strings.Join(names, ", "))
	}
}

// formatSnapshot renders the session state after an interaction.
func (s *Server) formatSnapshot(snap *session.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mode: %s\n", snap.Mode))

	if len(snap.Selection) > 0 {
		names := make([]string, 0, len(snap.Selection))
		for _, id := range snap.Selection {
			names = append(names, s.personLabel(id))
		}
		sb.WriteString(fmt.Sprintf("Selection: %s\n", strings.Join(names, ", ")))
	} else {
		sb.WriteString("Selection: none\n")
	}

	if snap.LineageMembers != nil {
		members := make([]string, 0, len(snap.LineageMembers))
		for id := range snap.LineageMembers {
			members = append(members, s.personLabel(id))
		}
		sort.Strings(members)
		sb.WriteString(fmt.Sprintf("\nLineage highlight (%d people, %d edges):\n", len(members), len(snap.LineageEdges)))
		for _, m := range members {
			sb.WriteString(fmt.Sprintf("- %s\n", m))
		}
	}

	if snap.NoPath {
		sb.WriteString("\nNo connection between the selected pair.\n")
	} else if len(snap.Paths) > 0 {
		hops := len(snap.Paths[0]) - 1
		sb.WriteString(fmt.Sprintf("\nPath highlight: %d shortest path(s), %d hops:\n", len(snap.Paths), hops))
		for i, path := range snap.Paths {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s.formatPath(path)))
		}
	}

	return sb.String()
}

// formatPersonSet renders a titled section for a set of person IDs, skipping
// the person the set was computed for.
func (s *Server) formatPersonSet(title string, ids map[string]bool, selfID string) string {
	var labels []string
	for id := range ids {
		if id == selfID {
			continue
		}
		labels = append(labels, s.personLabel(id))
	}
	sort.Strings(labels)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s (%d)\n", title, len(labels)))
	if len(labels) == 0 {
		sb.WriteString("none\n")
		return sb.String()
	}
	for _, l := range labels {
		sb.WriteString(fmt.Sprintf("- %s\n", l))
	}
	return sb.String()
}

func (s *Server) formatPath(path []string) string {
	names := make([]string, 0, len(path))
	for _, id := range path {
		if p := s.graph.GetPerson(id); p != nil {
			names = append(names, p.Name)
		} else {
			names = append(names, id)
		}
	}
	return strings.Join(names, " -> ")
}

func (s *Server) personLabel(id string) string {
	if p := s.graph.GetPerson(id); p != nil {
		return fmt.Sprintf("%s (%s)", p.Name, p.ID)
	}
	return id
}

// Resource Handlers

func (s *Server) getOverview() string {
	var sb strings.Builder
	sb.WriteString("# Kintree Dataset Overview\n\n")
	sb.WriteString(fmt.Sprintf("**People:** %d\n", s.graph.PersonCount()))
	sb.WriteString(fmt.Sprintf("**Relationships:** %d\n", s.graph.RelationshipCount()))
	sb.WriteString(fmt.Sprintf("**Partner edges:** %d\n", len(s.graph.RelationshipsByType(graph.RelPartner))))
	sb.WriteString(fmt.Sprintf("**Child edges:** %d\n", len(s.graph.RelationshipsByType(graph.RelChild))))

	if min, max, ok := analysis.GenerationSpan(s.graph); ok {
		sb.WriteString(fmt.Sprintf("**Generations:** %d (%d..%d)\n", max-min+1, min, max))
	}

	snap := s.session.Snapshot()
	sb.WriteString(fmt.Sprintf("\n## Session\n\n**Mode:** %s\n", snap.Mode))
	sb.WriteString(fmt.Sprintf("**Selection:** %d\n", len(snap.Selection)))

	return sb.String()
}

func (s *Server) getGenerationListing() string {
	byGen := make(map[int][]*graph.Person)
	var unassigned []*graph.Person
	for _, p := range s.graph.People() {
		if p.Generation == graph.GenerationUnassigned {
			unassigned = append(unassigned, p)
			continue
		}
		byGen[p.Generation] = append(byGen[p.Generation], p)
	}

	gens := make([]int, 0, len(byGen))
	for gen := range byGen {
		gens = append(gens, gen)
	}
	sort.Ints(gens)

	var sb strings.Builder
	sb.WriteString("# Generations\n\n")
	for _, gen := range gens {
		people := byGen[gen]
		sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })

		sb.WriteString(fmt.Sprintf("## Generation %d (%d)\n", gen, len(people)))
		for _, p := range people {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", p.Name, p.ID))
		}
		sb.WriteString("\n")
	}

	if len(unassigned) > 0 {
		sort.Slice(unassigned, func(i, j int) bool { return unassigned[i].Name < unassigned[j].Name })
		sb.WriteString(fmt.Sprintf("## Unassigned (%d)\n", len(unassigned)))
		for _, p := range unassigned {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", p.Name, p.ID))
		}
	}

	return sb.String()
}

// Helper functions

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
