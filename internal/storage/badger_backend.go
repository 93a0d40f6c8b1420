package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/kintree/kintree-go/internal/graph"
)

// Key prefixes for different data types
const (
	prefixPerson   = "p:"     // person data
	prefixRel      = "r:"     // relationship data
	prefixIncoming = "i:in:"  // incoming relationships
	prefixOutgoing = "i:out:" // outgoing relationships
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db                *badger.DB
	initialized       bool
	mu                sync.RWMutex
	personCount       int
	relationshipCount int
	nameIndex         map[string][]string // token -> []personID
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true

	// Rebuild the name index from the database
	b.rebuildNameIndexFromDB()

	return nil
}

// rebuildNameIndexFromDB rebuilds the name index and counts from the database.
func (b *BadgerBackend) rebuildNameIndexFromDB() {
	b.nameIndex = make(map[string][]string)
	b.personCount = 0
	b.relationshipCount = 0

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixPerson)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var person graph.Person
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &person)
		}); err != nil {
			continue
		}
		b.personCount++
		b.indexPersonName(&person)
	}

	// Count relationships
	opts.Prefix = []byte(prefixRel)
	it = txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		b.relationshipCount++
	}
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// BulkLoad replaces the entire store with the contents of the graph.
func (b *BadgerBackend) BulkLoad(ctx context.Context, g *graph.FamilyGraph) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	// Reset counts
	b.personCount = 0
	b.relationshipCount = 0
	b.nameIndex = make(map[string][]string)

	for _, person := range g.People() {
		data, err := json.Marshal(person)
		if err != nil {
			return fmt.Errorf("marshaling person: %w", err)
		}
		if err := wb.Set(b.personKey(person.ID), data); err != nil {
			return fmt.Errorf("setting person: %w", err)
		}
		b.personCount++

		b.indexPersonName(person)
	}

	for _, rel := range g.Relationships() {
		data, err := json.Marshal(rel)
		if err != nil {
			return fmt.Errorf("marshaling relationship: %w", err)
		}
		if err := wb.Set(b.relKey(rel.ID), data); err != nil {
			return fmt.Errorf("setting relationship: %w", err)
		}
		b.relationshipCount++

		// Index for adjacency lists
		if err := b.indexRelationshipWB(wb, rel); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// indexPersonName adds a person to the name index.
func (b *BadgerBackend) indexPersonName(person *graph.Person) {
	for _, token := range tokenizeName(person.Name) {
		b.nameIndex[token] = append(b.nameIndex[token], person.ID)
	}
	if person.Nickname != "" {
		for _, token := range tokenizeName(person.Nickname) {
			b.nameIndex[token] = append(b.nameIndex[token], person.ID)
		}
	}
}

// indexRelationshipWB writes the adjacency index entries for a relationship.
func (b *BadgerBackend) indexRelationshipWB(wb *badger.WriteBatch, rel *graph.Relationship) error {
	outKey := fmt.Sprintf("%s%s:%s:%s", prefixOutgoing, rel.Source, rel.Type, rel.ID)
	if err := wb.Set([]byte(outKey), []byte(rel.ID)); err != nil {
		return fmt.Errorf("indexing outgoing: %w", err)
	}

	inKey := fmt.Sprintf("%s%s:%s:%s", prefixIncoming, rel.Target, rel.Type, rel.ID)
	if err := wb.Set([]byte(inKey), []byte(rel.ID)); err != nil {
		return fmt.Errorf("indexing incoming: %w", err)
	}

	return nil
}

// tokenizeName splits a name into lowercase searchable tokens.
func tokenizeName(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

// LoadGraph rehydrates the stored dataset into a FamilyGraph.
func (b *BadgerBackend) LoadGraph(ctx context.Context) (*graph.FamilyGraph, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	g := graph.NewFamilyGraph()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixPerson)
	it := txn.NewIterator(opts)

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var person graph.Person
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &person)
		}); err != nil {
			it.Close()
			return nil, fmt.Errorf("unmarshaling person: %w", err)
		}

		p := person
		gen := p.Generation
		g.AddPerson(&p)
		// AddPerson resets the generation annotation; restore the stored one.
		p.Generation = gen
	}
	it.Close()

	opts.Prefix = []byte(prefixRel)
	it = txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var rel graph.Relationship
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rel)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling relationship: %w", err)
		}

		r := rel
		g.AddRelationship(&r)
	}

	return g, nil
}

// GetPerson returns a single person by ID, or nil if not found.
func (b *BadgerBackend) GetPerson(ctx context.Context, personID string) (*graph.Person, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(b.personKey(personID))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting person: %w", err)
	}

	var person graph.Person
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &person)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling person: %w", err)
	}

	return &person, nil
}

// FindByName searches people by name tokens. Every query token must
// prefix-match some indexed token of the person.
func (b *BadgerBackend) FindByName(ctx context.Context, query string, limit int) ([]FindResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	queryTokens := tokenizeName(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	// For each query token, collect the set of people with a matching
	// name token. A person must appear in every set.
	scores := make(map[string]int)
	for _, qt := range queryTokens {
		matched := make(map[string]bool)
		for token, ids := range b.nameIndex {
			if !strings.HasPrefix(token, qt) {
				continue
			}
			for _, id := range ids {
				matched[id] = true
			}
		}
		for id := range matched {
			scores[id]++
		}
	}

	var results []FindResult
	for id, score := range scores {
		if score < len(queryTokens) {
			continue
		}
		person, err := b.getPersonLocked(id)
		if err != nil || person == nil {
			continue
		}
		results = append(results, FindResult{
			PersonID:   person.ID,
			Name:       person.Name,
			Generation: person.Generation,
			Score:      score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// getPersonLocked fetches a person while the caller holds the lock.
func (b *BadgerBackend) getPersonLocked(personID string) (*graph.Person, error) {
	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(b.personKey(personID))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var person graph.Person
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &person)
	}); err != nil {
		return nil, err
	}
	return &person, nil
}

// PersonCount returns the number of stored people.
func (b *BadgerBackend) PersonCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.personCount
}

// RelationshipCount returns the number of stored relationships.
func (b *BadgerBackend) RelationshipCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.relationshipCount
}

func (b *BadgerBackend) personKey(id string) []byte {
	return []byte(prefixPerson + id)
}

func (b *BadgerBackend) relKey(id string) []byte {
	return []byte(prefixRel + id)
}
