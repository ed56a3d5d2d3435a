package store

import "time"

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Scope is a persisted scope. Unit numbers the program within the file:
// HTML documents carry one program per inline script.
type Scope struct {
	ID            int64
	FileID        int64
	Unit          int
	Category      string
	NodeType      string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
	ParentScopeID *int64
}

// Identifier is a persisted declaration or reference.
//
// EnclosingScopeID is the nearest scope of the identifier node. ScopeID is
// the scope the identifier resolved to (declarations: the scope they bind
// in), nil when undeclared. DeclarationID points at the declaring
// identifier row, nil for undeclared references.
type Identifier struct {
	ID               int64
	FileID           int64
	Unit             int
	Name             string
	EnclosingScopeID *int64
	ScopeID          *int64
	DeclarationID    *int64
	IsDeclaration    bool
	BindingKind      string
	IsTopLevel       bool
	UsedInDynamic    bool
	InsideDynamic    bool
	StartLine        int
	StartCol         int
	EndLine          int
	EndCol           int
}

// Summary counts the contents of the database.
type Summary struct {
	Files          int
	Scopes         int
	ScopesByKind   map[string]int
	Declarations   int
	References     int
	Undeclared     int
	DynamicTainted int
	ByBindingKind  map[string]int
}
