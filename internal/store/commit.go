package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and every reference within the batch is rewritten using the
// fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Scopes, parents before children
//  2. Identifiers (depend on scope IDs)
//  3. Declaration links (depend on identifier IDs)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)

	// Scopes are buffered in creation order, which puts every parent
	// before its children.
	for _, scope := range batch.Scopes {
		scope.ParentScopeID = remap(scope.ParentScopeID, fakeToReal)
		realID, err := insertScopeTx(tx, &scope)
		if err != nil {
			return fmt.Errorf("commit batch: scope: %w", err)
		}
		fakeToReal[scope.ID] = realID
	}

	for _, ident := range batch.Identifiers {
		ident.EnclosingScopeID = remap(ident.EnclosingScopeID, fakeToReal)
		ident.ScopeID = remap(ident.ScopeID, fakeToReal)
		realID, err := insertIdentifierTx(tx, &ident)
		if err != nil {
			return fmt.Errorf("commit batch: identifier %q: %w", ident.Name, err)
		}
		fakeToReal[ident.ID] = realID
	}

	for _, link := range batch.Links {
		id, decl := remap(&link.ID, fakeToReal), remap(&link.DeclID, fakeToReal)
		if id == nil || decl == nil {
			return fmt.Errorf("commit batch: link %d -> %d: unknown identifier", link.ID, link.DeclID)
		}
		if err := linkDeclarationTx(tx, *id, *decl); err != nil {
			return fmt.Errorf("commit batch: link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}
