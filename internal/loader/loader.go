// Package loader reads family datasets into a graph.FamilyGraph.
//
// Three sources are supported: a single exported dataset document
// (JSON or YAML, the format produced by the authoring tool's export),
// a directory of per-person YAML records with a relationship list, and
// a historical snapshot of such a directory read straight from a git
// commit. All sources funnel through the same validation: unknown edge
// types and dangling references are load-time integrity faults.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kintree/kintree-go/internal/graph"
)

// Document is the exported dataset format: the node list and typed edge
// list consumed from the external authoring tool.
type Document struct {
	Nodes []NodeRecord `json:"nodes" yaml:"nodes"`
	Edges []EdgeRecord `json:"edges" yaml:"edges"`
}

// NodeRecord is a person entry in the dataset document. A generation
// value may be pre-populated by an external producer; it is ignored and
// recomputed after load.
type NodeRecord struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	PhotoPath  string `json:"photo_path,omitempty" yaml:"photo_path,omitempty"`
	Gender     string `json:"gender,omitempty" yaml:"gender,omitempty"`
	BirthDate  string `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	Nickname   string `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	Generation int    `json:"generation,omitempty" yaml:"generation,omitempty"`
}

// EdgeRecord is a relationship entry in the dataset document.
type EdgeRecord struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Type string `json:"type" yaml:"type"`
}

// Load reads a dataset document from a file and builds a validated graph.
// The format is chosen by extension: .json is JSON, anything else is YAML.
func Load(path string) (*graph.FamilyGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return Parse(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

// Parse decodes a dataset document and builds a validated graph.
func Parse(data []byte, isJSON bool) (*graph.FamilyGraph, error) {
	var doc Document
	if isJSON {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing dataset JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing dataset YAML: %w", err)
		}
	}
	return BuildGraph(&doc)
}

// BuildGraph turns a decoded document into a FamilyGraph, rejecting
// unknown edge types and dangling person references.
func BuildGraph(doc *Document) (*graph.FamilyGraph, error) {
	g := graph.NewFamilyGraph()

	var problems []string
	for _, node := range doc.Nodes {
		if node.ID == "" {
			problems = append(problems, fmt.Sprintf("person %q has no id", node.Name))
			continue
		}
		g.AddPerson(&graph.Person{
			ID:        node.ID,
			Name:      node.Name,
			PhotoPath: node.PhotoPath,
			Gender:    node.Gender,
			BirthDate: node.BirthDate,
			Nickname:  node.Nickname,
		})
	}

	for _, edge := range doc.Edges {
		relType := graph.RelType(edge.Type)
		if !graph.ValidRelType(relType) {
			problems = append(problems, fmt.Sprintf("edge %s -> %s has unknown type %q", edge.From, edge.To, edge.Type))
			continue
		}
		g.AddRelationship(&graph.Relationship{
			ID:     graph.GenerateRelID(relType, edge.From, edge.To),
			Type:   relType,
			Source: edge.From,
			Target: edge.To,
		})
	}

	if len(problems) > 0 {
		return nil, &graph.IntegrityError{Problems: problems}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// relationshipsFile is the edge list that accompanies a people directory.
const relationshipsFile = "relationships.yml"

// peopleDir is the per-person record directory inside a data repository.
const peopleDir = "people"

// LoadPeopleDir reads a data-repository working tree: one YAML record per
// person under people/, plus a relationships.yml edge list at the root.
func LoadPeopleDir(root string) (*graph.FamilyGraph, error) {
	entries, err := os.ReadDir(filepath.Join(root, peopleDir))
	if err != nil {
		return nil, fmt.Errorf("reading people directory: %w", err)
	}

	doc := &Document{}
	for _, entry := range entries {
		if entry.IsDir() || !isPersonRecord(entry.Name()) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(root, peopleDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading person record %s: %w", entry.Name(), err)
		}

		node, err := parsePersonRecord(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	relData, err := os.ReadFile(filepath.Join(root, relationshipsFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", relationshipsFile, err)
	}
	if relData != nil {
		edges, err := parseRelationshipList(relData)
		if err != nil {
			return nil, err
		}
		doc.Edges = edges
	}

	return BuildGraph(doc)
}

func isPersonRecord(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}

func parsePersonRecord(name string, data []byte) (NodeRecord, error) {
	var node NodeRecord
	if err := yaml.Unmarshal(data, &node); err != nil {
		return NodeRecord{}, fmt.Errorf("parsing person record %s: %w", name, err)
	}
	return node, nil
}

func parseRelationshipList(data []byte) ([]EdgeRecord, error) {
	var edges []EdgeRecord
	if err := yaml.Unmarshal(data, &edges); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relationshipsFile, err)
	}
	return edges, nil
}
