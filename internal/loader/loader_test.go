package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintree/kintree-go/internal/graph"
)

const sampleYAML = `
nodes:
  - id: a1
    name: Alice Smith
    photo_path: photos/alice.jpg
  - id: b2
    name: Bob Smith
  - id: c3
    name: Carol Smith
edges:
  - from: a1
    to: b2
    type: partner
  - from: a1
    to: c3
    type: child
  - from: b2
    to: c3
    type: child
`

const sampleJSON = `{
  "nodes": [
    {"id": "a1", "name": "Alice Smith", "generation": 42},
    {"id": "b2", "name": "Bob Smith"}
  ],
  "edges": [
    {"from": "a1", "to": "b2", "type": "child"}
  ]
}`

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("YAMLDocument", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "family.yml")
		require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

		g, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 3, g.PersonCount())
		assert.Equal(t, 3, g.RelationshipCount())
		assert.Equal(t, "Alice Smith", g.GetPerson("a1").Name)
		assert.Equal(t, "photos/alice.jpg", g.GetPerson("a1").PhotoPath)
		assert.Len(t, g.Parents("c3"), 2)
	})

	t.Run("JSONDocument", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "family.json")
		require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

		g, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 2, g.PersonCount())
		assert.Equal(t, 1, g.RelationshipCount())
	})

	t.Run("PrepopulatedGenerationOverwritten", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "family.json")
		require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

		g, err := Load(path)
		require.NoError(t, err)

		// The producer wrote generation 42; the loader discards it.
		assert.Equal(t, graph.GenerationUnassigned, g.GetPerson("a1").Generation)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "family.yml")
		require.NoError(t, os.WriteFile(path, []byte("nodes: [unclosed"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestBuildGraph(t *testing.T) {
	t.Parallel()

	t.Run("UnknownEdgeType", func(t *testing.T) {
		t.Parallel()
		doc := &Document{
			Nodes: []NodeRecord{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			Edges: []EdgeRecord{{From: "a", To: "b", Type: "sibling"}},
		}

		_, err := BuildGraph(doc)

		var integrityErr *graph.IntegrityError
		require.ErrorAs(t, err, &integrityErr)
		assert.Contains(t, integrityErr.Problems[0], "sibling")
	})

	t.Run("DanglingReference", func(t *testing.T) {
		t.Parallel()
		doc := &Document{
			Nodes: []NodeRecord{{ID: "a", Name: "A"}},
			Edges: []EdgeRecord{{From: "a", To: "ghost", Type: "child"}},
		}

		_, err := BuildGraph(doc)

		var integrityErr *graph.IntegrityError
		assert.ErrorAs(t, err, &integrityErr)
	})

	t.Run("MissingPersonID", func(t *testing.T) {
		t.Parallel()
		doc := &Document{
			Nodes: []NodeRecord{{Name: "Anonymous"}},
		}

		_, err := BuildGraph(doc)
		assert.Error(t, err)
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		t.Parallel()
		g, err := BuildGraph(&Document{})
		require.NoError(t, err)
		assert.Equal(t, 0, g.PersonCount())
	})
}

func TestLoadPeopleDir(t *testing.T) {
	t.Parallel()

	t.Run("RecordsAndRelationships", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writePeopleRepo(t, root)

		g, err := LoadPeopleDir(root)
		require.NoError(t, err)

		assert.Equal(t, 2, g.PersonCount())
		assert.Equal(t, 1, g.RelationshipCount())

		alice := g.GetPerson("a1")
		require.NotNil(t, alice)
		assert.Equal(t, "Alice Smith", alice.Name)
		assert.Equal(t, "female", alice.Gender)
		assert.Equal(t, "1960-02-01", alice.BirthDate)
	})

	t.Run("NoRelationshipsFile", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "people"), 0o755))
		record := "id: solo\nname: Solo Person\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, "people", "solo.yml"), []byte(record), 0o644))

		g, err := LoadPeopleDir(root)
		require.NoError(t, err)

		assert.Equal(t, 1, g.PersonCount())
		assert.Equal(t, 0, g.RelationshipCount())
	})

	t.Run("MissingPeopleDir", func(t *testing.T) {
		t.Parallel()
		_, err := LoadPeopleDir(t.TempDir())
		assert.Error(t, err)
	})
}

// writePeopleRepo lays out a minimal data-repository working tree.
func writePeopleRepo(t *testing.T, root string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "people"), 0o755))

	files := map[string]string{
		filepath.Join("people", "a1_alice_smith.yml"): `id: a1
name: Alice Smith
gender: female
birth_date: "1960-02-01"
`,
		filepath.Join("people", "b2_bob_smith.yml"): `id: b2
name: Bob Smith
gender: male
`,
		"relationships.yml": `- from: a1
  to: b2
  type: partner
`,
	}

	for path, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, path), []byte(content), 0o644))
	}
}
