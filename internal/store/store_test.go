package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path, lang string) *File {
	t.Helper()
	f := &File{Path: path, Language: lang, Hash: "abc123", LineCount: 3, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func insertTestScope(t *testing.T, s DataStore, fileID int64, category string, parent *int64) int64 {
	t.Helper()
	id, err := s.InsertScope(&Scope{
		FileID: fileID, Category: category, NodeType: "Program",
		EndLine: 9, ParentScopeID: parent,
	})
	require.NoError(t, err)
	return id
}

func insertTestIdent(t *testing.T, s DataStore, ident Identifier) int64 {
	t.Helper()
	if ident.BindingKind == "" {
		ident.BindingKind = "lexical"
	}
	id, err := s.InsertIdentifier(&ident)
	require.NoError(t, err)
	return id
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "scopes", "identifiers", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("analyzer_version")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("analyzer_version", "0.1.0"))
	require.NoError(t, s.SetMetadata("analyzer_version", "0.2.0"))
	v, err = s.GetMetadata("analyzer_version")
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", v)
}

// =============================================================================
// Files
// =============================================================================

func TestFiles_InsertAndLookup(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/b.js", "javascript")
	insertTestFile(t, s, "/a.html", "html")

	got, err := s.FileByPath("/b.js")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "abc123", got.Hash)
	assert.Equal(t, 3, got.LineCount)

	got, err = s.FileByID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "/b.js", got.Path)

	missing, err := s.FileByPath("/nope.js")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.Files()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "/a.html", all[0].Path)

	js, err := s.FilesByLanguage("javascript")
	require.NoError(t, err)
	require.Len(t, js, 1)

	_, err = s.InsertFile(&File{Path: "/b.js", Language: "javascript"})
	assert.Error(t, err, "paths are unique")
}

// =============================================================================
// Scopes & identifiers
// =============================================================================

func TestScopes_ParentChain(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js", "javascript")

	root := insertTestScope(t, s, f.ID, "lexical", nil)
	child := insertTestScope(t, s, f.ID, "block", &root)

	scopes, err := s.ScopesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	assert.Nil(t, scopes[0].ParentScopeID)
	require.NotNil(t, scopes[1].ParentScopeID)
	assert.Equal(t, root, *scopes[1].ParentScopeID)

	got, err := s.ScopeByID(child)
	require.NoError(t, err)
	assert.Equal(t, "block", got.Category)

	none, err := s.ScopeByID(9999)
	require.NoError(t, err)
	assert.Nil(t, none)

	chain, err := s.ScopeChain(child)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, child, chain[0].ID)
	assert.Equal(t, root, chain[1].ID)
}

func TestIdentifiers_LinksAndQueries(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js", "javascript")
	root := insertTestScope(t, s, f.ID, "lexical", nil)

	// Reference precedes its declaration, as with hoisted functions.
	ref := insertTestIdent(t, s, Identifier{
		FileID: f.ID, Name: "g", EnclosingScopeID: &root, ScopeID: &root,
		IsTopLevel: true, StartLine: 0, StartCol: 0, EndLine: 0, EndCol: 1,
	})
	decl := insertTestIdent(t, s, Identifier{
		FileID: f.ID, Name: "g", EnclosingScopeID: &root, ScopeID: &root, IsDeclaration: true,
		IsTopLevel: true, StartLine: 1, StartCol: 9, EndLine: 1, EndCol: 10,
	})
	undecl := insertTestIdent(t, s, Identifier{
		FileID: f.ID, Name: "window", EnclosingScopeID: &root, BindingKind: "undeclared",
		UsedInDynamic: true, StartLine: 2, StartCol: 0, EndLine: 2, EndCol: 6,
	})
	require.NoError(t, s.LinkDeclaration(ref, decl))
	require.NoError(t, s.LinkDeclaration(decl, decl))

	refs, err := s.ReferencesTo(decl)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ref, refs[0].ID)
	require.NotNil(t, refs[0].DeclarationID)
	assert.Equal(t, decl, *refs[0].DeclarationID)

	decls, err := s.DeclarationsByName("g")
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.True(t, decls[0].IsDeclaration)

	u, err := s.Undeclared(0)
	require.NoError(t, err)
	require.Len(t, u, 1)
	assert.Equal(t, undecl, u[0].ID)
	assert.Nil(t, u[0].ScopeID)
	assert.Nil(t, u[0].DeclarationID)

	u, err = s.Undeclared(f.ID + 1)
	require.NoError(t, err)
	assert.Empty(t, u)

	dyn, err := s.DynamicTainted(f.ID)
	require.NoError(t, err)
	require.Len(t, dyn, 1)
	assert.Equal(t, "window", dyn[0].Name)

	at, err := s.IdentifierAt(f.ID, 1, 9)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, decl, at.ID)

	at, err = s.IdentifierAt(f.ID, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, at, "end column is exclusive")

	all, err := s.IdentifiersByFile(f.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f1 := insertTestFile(t, s, "/a.js", "javascript")
	f2 := insertTestFile(t, s, "/b.js", "javascript")

	for _, f := range []*File{f1, f2} {
		root := insertTestScope(t, s, f.ID, "lexical", nil)
		insertTestScope(t, s, f.ID, "block", &root)
		d := insertTestIdent(t, s, Identifier{FileID: f.ID, Name: "x", ScopeID: &root, IsDeclaration: true})
		r := insertTestIdent(t, s, Identifier{FileID: f.ID, Name: "x", ScopeID: &root})
		require.NoError(t, s.LinkDeclaration(r, d))
	}

	require.NoError(t, s.DeleteFileData(f1.ID))

	scopes, err := s.ScopesByFile(f1.ID)
	require.NoError(t, err)
	assert.Empty(t, scopes)
	idents, err := s.IdentifiersByFile(f1.ID)
	require.NoError(t, err)
	assert.Empty(t, idents)

	idents, err = s.IdentifiersByFile(f2.ID)
	require.NoError(t, err)
	assert.Len(t, idents, 2)

	require.NoError(t, s.DeleteFile(f2.ID))
	got, err := s.FileByPath("/b.js")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js", "javascript")
	root := insertTestScope(t, s, f.ID, "lexical", nil)
	insertTestScope(t, s, f.ID, "dynamic", &root)
	insertTestIdent(t, s, Identifier{FileID: f.ID, Name: "a", IsDeclaration: true, ScopeID: &root})
	insertTestIdent(t, s, Identifier{FileID: f.ID, Name: "a", ScopeID: &root, UsedInDynamic: true})
	insertTestIdent(t, s, Identifier{FileID: f.ID, Name: "b", BindingKind: "undeclared"})

	sum, err := s.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, 2, sum.Scopes)
	assert.Equal(t, 1, sum.Declarations)
	assert.Equal(t, 2, sum.References)
	assert.Equal(t, 1, sum.Undeclared)
	assert.Equal(t, 1, sum.DynamicTainted)
	assert.Equal(t, map[string]int{"lexical": 1, "dynamic": 1}, sum.ScopesByKind)
	assert.Equal(t, map[string]int{"lexical": 2, "undeclared": 1}, sum.ByBindingKind)
}

func TestComputeConfigHash(t *testing.T) {
	t.Parallel()
	a := ComputeConfigHash("goja", []string{"Program", "FunctionDeclaration"}, nil, []string{"WithStatement"}, []string{"let"})
	b := ComputeConfigHash("goja", []string{"FunctionDeclaration", "Program"}, nil, []string{"WithStatement"}, []string{"let"})
	c := ComputeConfigHash("goja", []string{"FunctionDeclaration", "Program"}, nil, []string{"WithStatement"}, []string{"let", "const"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, ContentHash([]byte("x")), 64)
}
