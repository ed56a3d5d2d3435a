package store

import (
	"database/sql"
	"fmt"
)

const scopeColumns = "id, file_id, unit, category, node_type, start_line, start_col, end_line, end_col, parent_scope_id"

func (s *Store) InsertScope(scope *Scope) (int64, error) {
	id, err := insertScopeTx(s.db, scope)
	if err != nil {
		return 0, fmt.Errorf("insert scope: %w", err)
	}
	scope.ID = id
	return id, nil
}

func (s *Store) ScopesByFile(fileID int64) ([]*Scope, error) {
	rows, err := s.db.Query("SELECT "+scopeColumns+" FROM scopes WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("scopes by file: %w", err)
	}
	defer rows.Close()
	var scopes []*Scope
	for rows.Next() {
		sc, err := scanScope(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		scopes = append(scopes, sc)
	}
	return scopes, rows.Err()
}

func (s *Store) ScopeByID(id int64) (*Scope, error) {
	sc, err := scanScope(s.db.QueryRow("SELECT "+scopeColumns+" FROM scopes WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scope by id: %w", err)
	}
	return sc, nil
}

func scanScope(row rowScanner) (*Scope, error) {
	sc := &Scope{}
	var parent sql.NullInt64
	if err := row.Scan(&sc.ID, &sc.FileID, &sc.Unit, &sc.Category, &sc.NodeType,
		&sc.StartLine, &sc.StartCol, &sc.EndLine, &sc.EndCol, &parent); err != nil {
		return nil, err
	}
	sc.ParentScopeID = nullableID(parent)
	return sc, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertScopeTx(ex execer, scope *Scope) (int64, error) {
	res, err := ex.Exec(
		`INSERT INTO scopes (file_id, unit, category, node_type, start_line, start_col, end_line, end_col, parent_scope_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scope.FileID, scope.Unit, scope.Category, scope.NodeType,
		scope.StartLine, scope.StartCol, scope.EndLine, scope.EndCol, scope.ParentScopeID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ScopeChain returns the scope and its ancestors, innermost first.
func (s *Store) ScopeChain(scopeID int64) ([]*Scope, error) {
	var chain []*Scope
	seen := map[int64]bool{}
	id := &scopeID
	for id != nil && !seen[*id] {
		seen[*id] = true
		sc, err := s.ScopeByID(*id)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			break
		}
		chain = append(chain, sc)
		id = sc.ParentScopeID
	}
	return chain, nil
}
