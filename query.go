package varscope

import (
	"fmt"
	"sort"

	"github.com/jward/varscope/internal/store"
)

// QueryBuilder answers position- and name-based questions over an indexed
// database.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder wraps an open Store.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Location represents a source code position range. Lines and columns are
// 0-based; the end column is exclusive.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Occurrence is one classified identifier: a declaration or a reference.
type Occurrence struct {
	Location
	ID            int64
	Unit          int
	Name          string
	Declaration   bool
	BindingKind   string
	TopLevel      bool
	UsedInDynamic bool
	InsideDynamic bool
	// DeclaredAt is where the identifier's binding is declared, nil when
	// the identifier is undeclared.
	DeclaredAt *Location
}

// Files returns every indexed file, ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// Scopes returns the scopes of file in pre-order, or nil if the file is
// not indexed.
func (q *QueryBuilder) Scopes(file string) ([]*Scope, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("scopes: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.ScopesByFile(f.ID)
}

// ScopeChain returns the scope and its ancestors, innermost first.
func (q *QueryBuilder) ScopeChain(scopeID int64) ([]*Scope, error) {
	return q.store.ScopeChain(scopeID)
}

// IdentifierAt returns the identifier covering (line, col) in file, or nil.
func (q *QueryBuilder) IdentifierAt(file string, line, col int) (*Occurrence, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("identifier at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	ident, err := q.store.IdentifierAt(f.ID, line, col)
	if err != nil || ident == nil {
		return nil, err
	}
	return q.occurrence(ident, map[int64]string{f.ID: f.Path})
}

// DeclarationAt returns where the identifier at (line, col) is declared.
// It returns nil when no identifier is there or it is undeclared.
func (q *QueryBuilder) DeclarationAt(file string, line, col int) (*Location, error) {
	o, err := q.IdentifierAt(file, line, col)
	if err != nil || o == nil {
		return nil, err
	}
	return o.DeclaredAt, nil
}

// ReferencesTo returns the locations of every identifier resolved to the
// declaration with row ID declID, excluding the declaration itself.
func (q *QueryBuilder) ReferencesTo(declID int64) ([]Location, error) {
	refs, err := q.store.ReferencesTo(declID)
	if err != nil {
		return nil, err
	}
	paths := map[int64]string{}
	locs := make([]Location, 0, len(refs))
	for _, r := range refs {
		path, err := q.filePath(r.FileID, paths)
		if err != nil {
			return nil, err
		}
		locs = append(locs, identLocation(path, r))
	}
	return locs, nil
}

// ReferencesAt resolves the identifier at (line, col) and returns every
// other identifier bound to the same declaration. An undeclared
// identifier has no references.
func (q *QueryBuilder) ReferencesAt(file string, line, col int) ([]Location, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("references at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	ident, err := q.store.IdentifierAt(f.ID, line, col)
	if err != nil || ident == nil || ident.DeclarationID == nil {
		return nil, err
	}
	return q.ReferencesTo(*ident.DeclarationID)
}

// Undeclared returns every identifier that resolved to no declaration. An
// empty file means all files.
func (q *QueryBuilder) Undeclared(file string) ([]Occurrence, error) {
	return q.filtered(file, q.store.Undeclared)
}

// DynamicTainted returns every identifier whose binding is used inside a
// dynamic scope. An empty file means all files.
func (q *QueryBuilder) DynamicTainted(file string) ([]Occurrence, error) {
	return q.filtered(file, q.store.DynamicTainted)
}

// Summary counts the database's contents.
func (q *QueryBuilder) Summary() (*Summary, error) {
	return q.store.Summary()
}

func (q *QueryBuilder) filtered(file string, query func(int64) ([]*store.Identifier, error)) ([]Occurrence, error) {
	var fileID int64
	if file != "" {
		f, err := q.store.FileByPath(file)
		if err != nil {
			return nil, fmt.Errorf("lookup file: %w", err)
		}
		if f == nil {
			return nil, nil
		}
		fileID = f.ID
	}
	idents, err := query(fileID)
	if err != nil {
		return nil, err
	}
	paths := map[int64]string{}
	out := make([]Occurrence, 0, len(idents))
	for _, ident := range idents {
		o, err := q.occurrence(ident, paths)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].StartCol < out[j].StartCol
	})
	return out, nil
}

// occurrence converts a stored identifier, resolving its declaration's
// location. paths caches file paths by ID.
func (q *QueryBuilder) occurrence(ident *store.Identifier, paths map[int64]string) (*Occurrence, error) {
	path, err := q.filePath(ident.FileID, paths)
	if err != nil {
		return nil, err
	}
	o := &Occurrence{
		Location:      identLocation(path, ident),
		ID:            ident.ID,
		Unit:          ident.Unit,
		Name:          ident.Name,
		Declaration:   ident.IsDeclaration,
		BindingKind:   ident.BindingKind,
		TopLevel:      ident.IsTopLevel,
		UsedInDynamic: ident.UsedInDynamic,
		InsideDynamic: ident.InsideDynamic,
	}
	if ident.DeclarationID != nil {
		decl, err := q.store.IdentifierByID(*ident.DeclarationID)
		if err != nil {
			return nil, fmt.Errorf("declaration of %s: %w", ident.Name, err)
		}
		if decl != nil {
			declPath, err := q.filePath(decl.FileID, paths)
			if err != nil {
				return nil, err
			}
			loc := identLocation(declPath, decl)
			o.DeclaredAt = &loc
		}
	}
	return o, nil
}

func (q *QueryBuilder) filePath(fileID int64, cache map[int64]string) (string, error) {
	if p, ok := cache[fileID]; ok {
		return p, nil
	}
	f, err := q.store.FileByID(fileID)
	if err != nil {
		return "", fmt.Errorf("lookup file %d: %w", fileID, err)
	}
	if f == nil {
		return "", fmt.Errorf("file %d not found", fileID)
	}
	cache[fileID] = f.Path
	return f.Path, nil
}

func identLocation(file string, ident *store.Identifier) Location {
	return Location{
		File:      file,
		StartLine: ident.StartLine,
		StartCol:  ident.StartCol,
		EndLine:   ident.EndLine,
		EndCol:    ident.EndCol,
	}
}
