package store

import (
	"database/sql"
	"fmt"
)

const identifierColumns = `id, file_id, unit, name, enclosing_scope_id, scope_id, declaration_id,
	is_declaration, binding_kind, is_top_level, used_in_dynamic, inside_dynamic,
	start_line, start_col, end_line, end_col`

func (s *Store) InsertIdentifier(ident *Identifier) (int64, error) {
	id, err := insertIdentifierTx(s.db, ident)
	if err != nil {
		return 0, fmt.Errorf("insert identifier %q: %w", ident.Name, err)
	}
	ident.ID = id
	return id, nil
}

func (s *Store) LinkDeclaration(id, declID int64) error {
	if err := linkDeclarationTx(s.db, id, declID); err != nil {
		return fmt.Errorf("link declaration: %w", err)
	}
	return nil
}

func (s *Store) IdentifiersByFile(fileID int64) ([]*Identifier, error) {
	return s.queryIdentifiers(
		"SELECT "+identifierColumns+" FROM identifiers WHERE file_id = ? ORDER BY unit, start_line, start_col",
		fileID,
	)
}

func (s *Store) IdentifierByID(id int64) (*Identifier, error) {
	ident, err := scanIdentifier(s.db.QueryRow("SELECT "+identifierColumns+" FROM identifiers WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identifier by id: %w", err)
	}
	return ident, nil
}

// IdentifierAt returns the identifier whose span contains the 0-based
// position (line, col) in the file, or nil.
func (s *Store) IdentifierAt(fileID int64, line, col int) (*Identifier, error) {
	ident, err := scanIdentifier(s.db.QueryRow(
		"SELECT "+identifierColumns+` FROM identifiers
		 WHERE file_id = ?
		   AND (start_line < ? OR (start_line = ? AND start_col <= ?))
		   AND (end_line > ? OR (end_line = ? AND end_col > ?))
		 ORDER BY end_line - start_line, end_col - start_col
		 LIMIT 1`,
		fileID, line, line, col, line, line, col,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identifier at %d:%d: %w", line, col, err)
	}
	return ident, nil
}

// ReferencesTo returns the identifiers that resolve to the declaration
// declID, excluding the declaration itself.
func (s *Store) ReferencesTo(declID int64) ([]*Identifier, error) {
	return s.queryIdentifiers(
		"SELECT "+identifierColumns+` FROM identifiers
		 WHERE declaration_id = ? AND id != ?
		 ORDER BY file_id, unit, start_line, start_col`,
		declID, declID,
	)
}

// DeclarationsByName returns every declaration of name across files.
func (s *Store) DeclarationsByName(name string) ([]*Identifier, error) {
	return s.queryIdentifiers(
		"SELECT "+identifierColumns+` FROM identifiers
		 WHERE name = ? AND is_declaration = TRUE
		 ORDER BY file_id, unit, start_line, start_col`,
		name,
	)
}

// Undeclared returns references with no declaration. A fileID of 0 means
// all files.
func (s *Store) Undeclared(fileID int64) ([]*Identifier, error) {
	return s.filteredIdentifiers("binding_kind = 'undeclared'", fileID)
}

// DynamicTainted returns identifiers whose binding is referenced from
// inside a dynamic scope. A fileID of 0 means all files.
func (s *Store) DynamicTainted(fileID int64) ([]*Identifier, error) {
	return s.filteredIdentifiers("used_in_dynamic = TRUE", fileID)
}

func (s *Store) filteredIdentifiers(cond string, fileID int64) ([]*Identifier, error) {
	query := "SELECT " + identifierColumns + " FROM identifiers WHERE " + cond
	var args []any
	if fileID != 0 {
		query += " AND file_id = ?"
		args = append(args, fileID)
	}
	query += " ORDER BY file_id, unit, start_line, start_col"
	return s.queryIdentifiers(query, args...)
}

func (s *Store) queryIdentifiers(query string, args ...any) ([]*Identifier, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query identifiers: %w", err)
	}
	defer rows.Close()
	var idents []*Identifier
	for rows.Next() {
		ident, err := scanIdentifier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		idents = append(idents, ident)
	}
	return idents, rows.Err()
}

func scanIdentifier(row rowScanner) (*Identifier, error) {
	ident := &Identifier{}
	var enclosing, scope, decl sql.NullInt64
	if err := row.Scan(&ident.ID, &ident.FileID, &ident.Unit, &ident.Name,
		&enclosing, &scope, &decl,
		&ident.IsDeclaration, &ident.BindingKind, &ident.IsTopLevel, &ident.UsedInDynamic, &ident.InsideDynamic,
		&ident.StartLine, &ident.StartCol, &ident.EndLine, &ident.EndCol); err != nil {
		return nil, err
	}
	ident.EnclosingScopeID = nullableID(enclosing)
	ident.ScopeID = nullableID(scope)
	ident.DeclarationID = nullableID(decl)
	return ident, nil
}

// insertIdentifierTx writes the row without its declaration link; see
// LinkDeclaration.
func insertIdentifierTx(ex execer, ident *Identifier) (int64, error) {
	res, err := ex.Exec(
		`INSERT INTO identifiers (file_id, unit, name, enclosing_scope_id, scope_id,
		   is_declaration, binding_kind, is_top_level, used_in_dynamic, inside_dynamic,
		   start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ident.FileID, ident.Unit, ident.Name, ident.EnclosingScopeID, ident.ScopeID,
		ident.IsDeclaration, ident.BindingKind, ident.IsTopLevel, ident.UsedInDynamic, ident.InsideDynamic,
		ident.StartLine, ident.StartCol, ident.EndLine, ident.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func linkDeclarationTx(ex execer, id, declID int64) error {
	_, err := ex.Exec("UPDATE identifiers SET declaration_id = ? WHERE id = ?", declID, id)
	return err
}

// Summary counts files, scopes and identifiers across the database.
func (s *Store) Summary() (*Summary, error) {
	sum := &Summary{
		ScopesByKind:  map[string]int{},
		ByBindingKind: map[string]int{},
	}
	for _, q := range []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM files", &sum.Files},
		{"SELECT COUNT(*) FROM scopes", &sum.Scopes},
		{"SELECT COUNT(*) FROM identifiers WHERE is_declaration = TRUE", &sum.Declarations},
		{"SELECT COUNT(*) FROM identifiers WHERE is_declaration = FALSE", &sum.References},
		{"SELECT COUNT(*) FROM identifiers WHERE binding_kind = 'undeclared'", &sum.Undeclared},
		{"SELECT COUNT(*) FROM identifiers WHERE used_in_dynamic = TRUE", &sum.DynamicTainted},
	} {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
	}
	if err := s.countBy("SELECT category, COUNT(*) FROM scopes GROUP BY category", sum.ScopesByKind); err != nil {
		return nil, err
	}
	if err := s.countBy("SELECT binding_kind, COUNT(*) FROM identifiers GROUP BY binding_kind", sum.ByBindingKind); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) countBy(query string, into map[string]int) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		into[key] = n
	}
	return rows.Err()
}
