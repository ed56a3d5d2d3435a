package store

// DataStore is the interface for indexing-phase writes. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering for parallel indexing)
// implement it.
type DataStore interface {
	// Inserts each return the assigned ID.
	InsertScope(scope *Scope) (int64, error)
	InsertIdentifier(ident *Identifier) (int64, error)

	// LinkDeclaration points identifier id at its declaring identifier.
	// Declarations may follow their references in source order, so links
	// are written after both rows exist.
	LinkDeclaration(id, declID int64) error
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
