package main

// CLIResult is the top-level JSON envelope for all commands that print
// results.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILocation is a JSON-friendly source range. Lines and columns are
// 0-based.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIOccurrence is a JSON-friendly classified identifier.
type CLIOccurrence struct {
	CLILocation
	ID            int64        `json:"id"`
	Unit          int          `json:"unit"`
	Name          string       `json:"name"`
	Declaration   bool         `json:"declaration"`
	BindingKind   string       `json:"binding_kind"`
	TopLevel      bool         `json:"top_level"`
	UsedInDynamic bool         `json:"used_in_dynamic"`
	InsideDynamic bool         `json:"inside_dynamic"`
	DeclaredAt    *CLILocation `json:"declared_at,omitempty"`
}

// CLIScope is a JSON-friendly scope.
type CLIScope struct {
	ID        int64  `json:"id"`
	Unit      int    `json:"unit"`
	Category  string `json:"category"`
	NodeType  string `json:"node_type"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	ParentID  *int64 `json:"parent_id,omitempty"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	LineCount int    `json:"line_count"`
}

// CLISummary is a JSON-friendly database summary.
type CLISummary struct {
	Files          int            `json:"files"`
	Scopes         int            `json:"scopes"`
	ScopesByKind   map[string]int `json:"scopes_by_kind"`
	Declarations   int            `json:"declarations"`
	References     int            `json:"references"`
	Undeclared     int            `json:"undeclared"`
	DynamicTainted int            `json:"dynamic_tainted"`
	ByBindingKind  map[string]int `json:"by_binding_kind"`
	Version        string         `json:"analyzer_version,omitempty"`
	Frontend       string         `json:"frontend,omitempty"`
}
