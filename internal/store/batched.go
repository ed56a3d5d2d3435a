package store

import "sync"

// BatchedStore buffers index writes in memory using fake (negative) IDs.
// It implements DataStore so the indexer can write to it without knowing
// whether it's hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Scopes      []Scope
	Identifiers []Identifier
	Links       []Link

	nextFakeID int64 // starts at -1, decrements
}

// Link is a buffered LinkDeclaration call.
type Link struct {
	ID     int64
	DeclID int64
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore. Commit it with
// Store.CommitBatch.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertScope(scope *Scope) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	scope.ID = fakeID
	b.Scopes = append(b.Scopes, *scope)
	return fakeID, nil
}

func (b *BatchedStore) InsertIdentifier(ident *Identifier) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	ident.ID = fakeID
	b.Identifiers = append(b.Identifiers, *ident)
	return fakeID, nil
}

func (b *BatchedStore) LinkDeclaration(id, declID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Links = append(b.Links, Link{ID: id, DeclID: declID})
	return nil
}
