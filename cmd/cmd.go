// Package cmd provides CLI command implementations for Kintree.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/kintree/kintree-go/internal/analysis"
	"github.com/kintree/kintree-go/internal/graph"
	"github.com/kintree/kintree-go/internal/loader"
	"github.com/kintree/kintree-go/internal/storage"
	"github.com/kintree/kintree-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// dataDir is the per-directory dataset store created by `kintree load`.
const dataDir = ".kintree"

// LoadCmd loads a family dataset into the local store.
type LoadCmd struct {
	Path      string `arg:"" optional:"" default:"family.yml" help:"Dataset document (YAML or JSON)"`
	PeopleDir string `help:"Load a data repository layout (people/ directory plus relationships.yml)"`
	GitRef    string `help:"Load the data repository snapshot at a git revision"`
}

// Run executes the load command.
func (c *LoadCmd) Run() error {
	ctx := context.Background()

	g, source, err := c.loadDataset()
	if err != nil {
		return err
	}

	if err := analysis.AssignGenerations(g); err != nil {
		return fmt.Errorf("assigning generations: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	kintreeDir := filepath.Join(cwd, dataDir)
	if err := os.MkdirAll(kintreeDir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", dataDir, err)
	}

	dbPath := filepath.Join(kintreeDir, "badger")
	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.BulkLoad(ctx, g); err != nil {
		return fmt.Errorf("storing dataset: %w", err)
	}

	minGen, maxGen, hasGen := analysis.GenerationSpan(g)
	generations := 0
	if hasGen {
		generations = maxGen - minGen + 1
	}

	// Write meta.json
	meta := map[string]any{
		"version": Version,
		"name":    filepath.Base(cwd),
		"source":  source,
		"stats": map[string]any{
			"people":        g.PersonCount(),
			"relationships": g.RelationshipCount(),
			"generations":   generations,
		},
		"loaded_at": time.Now().UTC().Format(time.RFC3339),
	}

	metaPath := filepath.Join(kintreeDir, "meta.json")
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}

	color.Green("✓ Load complete")
	fmt.Printf("  Source:         %s\n", source)
	fmt.Printf("  People:         %d\n", g.PersonCount())
	fmt.Printf("  Relationships:  %d\n", g.RelationshipCount())
	fmt.Printf("  Generations:    %d\n", generations)

	return nil
}

// loadDataset builds the graph from whichever source the flags select.
func (c *LoadCmd) loadDataset() (*graph.FamilyGraph, string, error) {
	if c.GitRef != "" {
		root := c.PeopleDir
		if root == "" {
			root = "."
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, "", fmt.Errorf("resolving %s: %w", root, err)
		}
		g, err := loader.LoadGitRef(absRoot, c.GitRef)
		if err != nil {
			return nil, "", err
		}
		return g, fmt.Sprintf("%s@%s", absRoot, c.GitRef), nil
	}

	if c.PeopleDir != "" {
		absRoot, err := filepath.Abs(c.PeopleDir)
		if err != nil {
			return nil, "", fmt.Errorf("resolving %s: %w", c.PeopleDir, err)
		}
		g, err := loader.LoadPeopleDir(absRoot)
		if err != nil {
			return nil, "", err
		}
		return g, absRoot, nil
	}

	absPath, err := filepath.Abs(c.Path)
	if err != nil {
		return nil, "", fmt.Errorf("resolving %s: %w", c.Path, err)
	}
	g, err := loader.Load(absPath)
	if err != nil {
		return nil, "", err
	}
	return g, absPath, nil
}

// GenerationsCmd prints every person grouped by assigned generation.
type GenerationsCmd struct{}

// Run executes the generations command.
func (c *GenerationsCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	g, err := store.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	byGen := make(map[int][]*graph.Person)
	var unassigned []*graph.Person
	for _, p := range g.People() {
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

	for _, gen := range gens {
		people := byGen[gen]
		sortPeopleByName(people)

		color.Cyan("Generation %d (%d)", gen, len(people))
		for _, p := range people {
			fmt.Printf("  %s (%s)\n", p.Name, p.ID)
		}
		fmt.Println()
	}

	if len(unassigned) > 0 {
		sortPeopleByName(unassigned)
		color.Yellow("Unassigned (%d)", len(unassigned))
		for _, p := range unassigned {
			fmt.Printf("  %s (%s)\n", p.Name, p.ID)
		}
	}

	return nil
}

// LineageCmd prints the ancestors and descendants of a person.
type LineageCmd struct {
	Person string `arg:"" help:"Person ID or name"`
}

// Run executes the lineage command.
func (c *LineageCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	g, err := store.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	personID, err := resolvePerson(ctx, store, g, c.Person)
	if err != nil {
		return err
	}
	person := g.GetPerson(personID)

	ancestors, err := analysis.Ancestors(g, personID)
	if err != nil {
		return err
	}
	descendants, err := analysis.Descendants(g, personID)
	if err != nil {
		return err
	}

	fmt.Printf("Lineage of %s (%s)\n\n", person.Name, person.ID)

	printPersonSet(g, "Ancestors", ancestors, personID)
	fmt.Println()
	printPersonSet(g, "Descendants", descendants, personID)

	return nil
}

// printPersonSet prints a titled section for a set of person IDs, skipping
// the person the set was computed for.
func printPersonSet(g *graph.FamilyGraph, title string, ids map[string]bool, selfID string) {
	var people []*graph.Person
	for id := range ids {
		if id == selfID {
			continue
		}
		if p := g.GetPerson(id); p != nil {
			people = append(people, p)
		}
	}
	sortPeopleByName(people)

	color.Cyan("%s (%d)", title, len(people))
	if len(people) == 0 {
		fmt.Println("  none")
		return
	}
	for _, p := range people {
		if p.Generation != graph.GenerationUnassigned {
			fmt.Printf("  %s (%s, generation %d)\n", p.Name, p.ID, p.Generation)
		} else {
			fmt.Printf("  %s (%s)\n", p.Name, p.ID)
		}
	}
}

// PathsCmd prints every shortest connection path between two people.
type PathsCmd struct {
	From string `arg:"" help:"First person ID or name"`
	To   string `arg:"" help:"Second person ID or name"`
}

// Run executes the paths command.
func (c *PathsCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	g, err := store.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	fromID, err := resolvePerson(ctx, store, g, c.From)
	if err != nil {
		return err
	}
	toID, err := resolvePerson(ctx, store, g, c.To)
	if err != nil {
		return err
	}

	paths, err := analysis.ShortestPaths(g, fromID, toID)
	if err != nil {
		return err
	}

	from := g.GetPerson(fromID)
	to := g.GetPerson(toID)

	if len(paths) == 0 {
		fmt.Printf("No connection between %s and %s\n", from.Name, to.Name)
		return nil
	}

	hops := len(paths[0]) - 1
	fmt.Printf("%d shortest path(s) between %s and %s (%d hops)\n\n", len(paths), from.Name, to.Name, hops)

	for i, path := range paths {
		names := make([]string, 0, len(path))
		for _, id := range path {
			if p := g.GetPerson(id); p != nil {
				names = append(names, p.Name)
			} else {
				names = append(names, id)
			}
		}
		fmt.Printf("%d. %s\n", i+1, strings.Join(names, " -> "))
	}

	return nil
}

// FindCmd searches people by name.
type FindCmd struct {
	Query string `arg:"" help:"Name to search for"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the find command.
func (c *FindCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.FindByName(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, r := range results {
		if r.Generation != graph.GenerationUnassigned {
			fmt.Printf("%d. %s (%s, generation %d)\n", i+1, r.Name, r.PersonID, r.Generation)
		} else {
			fmt.Printf("%d. %s (%s)\n", i+1, r.Name, r.PersonID)
		}
	}

	return nil
}

// ReportCmd prints a summary report of the loaded dataset.
type ReportCmd struct{}

// Run executes the report command.
func (c *ReportCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	g, err := store.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	color.Cyan("Dataset report")
	fmt.Printf("  People:            %d\n", g.PersonCount())
	fmt.Printf("  Partner edges:     %d\n", len(g.RelationshipsByType(graph.RelPartner)))
	fmt.Printf("  Child edges:       %d\n", len(g.RelationshipsByType(graph.RelChild)))

	minGen, maxGen, hasGen := analysis.GenerationSpan(g)
	if hasGen {
		fmt.Printf("  Generations:       %d (%d..%d)\n", maxGen-minGen+1, minGen, maxGen)
	}

	var roots, isolated []*graph.Person
	for _, p := range g.People() {
		if !g.HasIncoming(p.ID, graph.RelChild) {
			roots = append(roots, p)
		}
		if len(g.NeighborIDs(p.ID)) == 0 {
			isolated = append(isolated, p)
		}
	}

	sortPeopleByName(roots)
	fmt.Printf("  Roots:             %d\n", len(roots))
	for _, p := range roots {
		fmt.Printf("    %s (%s)\n", p.Name, p.ID)
	}

	if len(isolated) > 0 {
		sortPeopleByName(isolated)
		color.Yellow("  Unconnected:       %d", len(isolated))
		for _, p := range isolated {
			fmt.Printf("    %s (%s)\n", p.Name, p.ID)
		}
	}

	return nil
}

// WatchCmd reloads the dataset into the store on every change.
type WatchCmd struct {
	Path string `arg:"" optional:"" default:"family.yml" help:"Dataset document to watch"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	kintreeDir := filepath.Join(cwd, dataDir)
	if err := os.MkdirAll(kintreeDir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", dataDir, err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(kintreeDir, "badger"), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n\n", c.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	err = loader.Watch(ctx, c.Path,
		func(g *graph.FamilyGraph) error {
			if err := analysis.AssignGenerations(g); err != nil {
				return err
			}
			if err := store.BulkLoad(ctx, g); err != nil {
				return err
			}
			color.Green("✓ Reloaded: %d people, %d relationships", g.PersonCount(), g.RelationshipCount())
			return nil
		},
		func(err error) {
			color.Red("Reload failed: %v", err)
		})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// ServeCmd starts the MCP exploration server on stdio.
type ServeCmd struct {
	Watch   bool   `short:"w" help:"Reload the session graph when the dataset changes"`
	Dataset string `default:"family.yml" help:"Dataset document to watch (with --watch)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server, err := mcp.NewServer(ctx, store)
	if err != nil {
		return err
	}

	if c.Watch {
		fmt.Fprintln(os.Stderr, "Starting exploration server with watch mode...")

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			err := loader.Watch(watchCtx, c.Dataset,
				func(g *graph.FamilyGraph) error {
					if err := analysis.AssignGenerations(g); err != nil {
						return err
					}
					server.SetGraph(g)
					return nil
				},
				func(err error) {
					fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
				})
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()
	} else {
		fmt.Fprintln(os.Stderr, "Starting exploration server...")
	}

	// No other output to stdout - the server uses stdio for JSON-RPC only
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// StatusCmd shows dataset status for the current directory.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	metaPath := filepath.Join(cwd, dataDir, "meta.json")
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no dataset found at %s. Run 'kintree load' first", cwd)
		}
		return fmt.Errorf("reading meta.json: %w", err)
	}

	var meta map[string]any
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("parsing meta.json: %w", err)
	}

	fmt.Printf("Dataset status for %s\n", cwd)
	if version, ok := meta["version"].(string); ok {
		fmt.Printf("  Version:        %s\n", version)
	}
	if source, ok := meta["source"].(string); ok {
		fmt.Printf("  Source:         %s\n", source)
	}
	if loadedAt, ok := meta["loaded_at"].(string); ok {
		fmt.Printf("  Loaded:         %s\n", loadedAt)
	}
	if stats, ok := meta["stats"].(map[string]any); ok {
		if people, ok := stats["people"].(float64); ok {
			fmt.Printf("  People:         %.0f\n", people)
		}
		if relationships, ok := stats["relationships"].(float64); ok {
			fmt.Printf("  Relationships:  %.0f\n", relationships)
		}
		if generations, ok := stats["generations"].(float64); ok {
			fmt.Printf("  Generations:    %.0f\n", generations)
		}
	}

	return nil
}

// CleanCmd deletes the dataset store for the current directory.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	kintreeDir := filepath.Join(cwd, dataDir)
	if _, err := os.Stat(kintreeDir); os.IsNotExist(err) {
		return fmt.Errorf("no dataset found at %s. Nothing to clean", cwd)
	}

	if !c.Force {
		fmt.Printf("Delete dataset store at %s? [y/N] ", kintreeDir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(kintreeDir); err != nil {
		return fmt.Errorf("deleting dataset store: %w", err)
	}

	color.Green("Deleted %s", kintreeDir)
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func loadStorage() (*storage.BadgerBackend, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	dbPath := filepath.Join(cwd, dataDir, "badger")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no dataset found at %s. Run 'kintree load' first", cwd)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, true); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return store, nil
}

// resolvePerson turns a person reference (exact ID or a name query) into a
// person ID present in the graph.
func resolvePerson(ctx context.Context, store storage.Backend, g *graph.FamilyGraph, ref string) (string, error) {
	if g.HasPerson(ref) {
		return ref, nil
	}

	results, err := store.FindByName(ctx, ref, 5)
	if err != nil {
		return "", fmt.Errorf("searching for %q: %w", ref, err)
	}

	switch len(results) {
	case 0:
		return "", &graph.NotFoundError{ID: ref}
	case 1:
		return results[0].PersonID, nil
	default:
		names := make([]string, 0, len(results))
		for _, r := range results {
			names = append(names, fmt.Sprintf("%s (%s)", r.Name, r.PersonID))
		}
		return "", fmt.Errorf("ambiguous person %q: %s", ref, strings.Join(names, ", "))
	}
}

func sortPeopleByName(people []*graph.Person) {
	sort.Slice(people, func(i, j int) bool {
		if people[i].Name != people[j].Name {
			return people[i].Name < people[j].Name
		}
		return people[i].ID < people[j].ID
	})
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Load        LoadCmd        `cmd:"" help:"Load a family dataset into the local store"`
	Generations GenerationsCmd `cmd:"" help:"List people grouped by generation"`
	Lineage     LineageCmd     `cmd:"" help:"Show ancestors and descendants of a person"`
	Paths       PathsCmd       `cmd:"" help:"Show all shortest connection paths between two people"`
	Find        FindCmd        `cmd:"" help:"Search people by name"`
	Report      ReportCmd      `cmd:"" help:"Print a summary report of the dataset"`
	Watch       WatchCmd       `cmd:"" help:"Reload the dataset on every change"`
	Serve       ServeCmd       `cmd:"" help:"Start the MCP exploration server (stdio transport)"`
	Status      StatusCmd      `cmd:"" help:"Show dataset status for the current directory"`
	Clean       CleanCmd       `cmd:"" help:"Delete the dataset store for the current directory"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("kintree"),
		kong.Description("Family graph analysis and exploration tool"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run()
}
