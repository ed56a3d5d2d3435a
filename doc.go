// Package varscope provides static scope resolution for JavaScript. For
// every identifier in a program it finds the scope and declaration the name
// binds to, and classifies the binding as lexical, block or undeclared,
// together with whether it is top-level and whether it is exposed to a
// dynamic scope such as a with statement.
//
// # Pipeline
//
// Each source file is parsed by a front-end into a JS syntax tree
// (internal/jsast), then analysed in four passes by internal/scope:
//
//  1. Build: create a scope for every node the taxonomy names.
//  2. Declare: bind declared names in the scope they belong to, following
//     hoisting rules for var, function and parameter declarations.
//  3. Resolve: walk outward from each identifier to its declaration.
//  4. Classify: record binding kind and dynamic-scope exposure.
//
// Results are written to SQLite so that later queries need no reparse.
// HTML documents are split into one program per inline script.
//
// # Usage
//
//	e, err := varscope.New("varscope.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//
//	q := e.Query()
//	loc, err := q.DeclarationAt("/abs/path/app.js", 10, 4)
//	undeclared, err := q.Undeclared("")
//
// [Engine.AnalyzeSource] runs the same analysis in memory without a
// database.
//
// # Front-ends
//
// Two parsers are registered: "tree-sitter" (the default) and "goja", a
// pure-Go ECMAScript parser. Select one with [WithFrontend].
//
// # Incremental Indexing
//
// [Engine.IndexFiles] detects unchanged files via content hashing and skips
// them. The database records the analyzer version and a hash of the
// front-end and taxonomy; [Engine.IndexDirectory] rebuilds from scratch when
// either differs. [Engine.Watch] keeps a database current as files change.
//
// # Scripts
//
// [Engine.RunScript] runs Risor scripts with the database's query functions
// as globals. See the internal/runtime package for the full set. Stock
// reports live in package scripts and load through [WithScriptsFS].
package varscope
