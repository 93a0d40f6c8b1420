package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kintree/kintree-go/internal/graph"
)

// LoadGitRef reads a dataset snapshot from a git data repository at the
// given revision (branch, tag, or commit hash) without touching the
// working tree. The authoring tool keeps every person record and the
// relationship list under version control, so any point of the family
// history can be loaded this way.
func LoadGitRef(repoPath, ref string) (*graph.FamilyGraph, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening data repository %s: %w", repoPath, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolving revision %q: %w", ref, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading commit tree: %w", err)
	}

	doc := &Document{}

	err = tree.Files().ForEach(func(f *object.File) error {
		switch {
		case strings.HasPrefix(f.Name, peopleDir+"/") && isPersonRecord(f.Name):
			data, err := fileContents(f)
			if err != nil {
				return err
			}
			node, err := parsePersonRecord(f.Name, data)
			if err != nil {
				return err
			}
			doc.Nodes = append(doc.Nodes, node)

		case f.Name == relationshipsFile:
			data, err := fileContents(f)
			if err != nil {
				return err
			}
			edges, err := parseRelationshipList(data)
			if err != nil {
				return err
			}
			doc.Edges = edges
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree of %s: %w", hash, err)
	}

	return BuildGraph(doc)
}

func fileContents(f *object.File) ([]byte, error) {
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", f.Name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", f.Name, err)
	}
	return data, nil
}
