// Package runtime runs consumer Risor scripts against indexed scope data.
// Scripts see read-only host functions over the store plus an ad hoc
// analyzer for source strings.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/varscope/internal/frontend"
	"github.com/jward/varscope/internal/logger"
	"github.com/jward/varscope/internal/scope"
	"github.com/jward/varscope/internal/store"
)

// Runtime embeds a Risor VM and exposes the store and the analyzer to
// scripts.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	log        *logger.Logger
	parser     frontend.Parser
	taxonomy   scope.Taxonomy
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the scripts' log object to l.
func WithLogger(l *logger.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = l
	}
}

// WithAnalyzer sets the front-end and taxonomy used by analyze_src.
func WithAnalyzer(p frontend.Parser, t scope.Taxonomy) RuntimeOption {
	return func(r *Runtime) {
		r.parser = p
		r.taxonomy = t
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts directory.
// The store may be nil, in which case only analyze_src and log are available.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	p, _ := frontend.For(frontend.Default)
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		log:        logger.NewLogger(0),
		parser:     p,
		taxonomy:   scope.DefaultTaxonomy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := importGlobalNames(globals)

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// importGlobalNames lists every name an imported module may reference:
// Risor's default builtins and modules plus the host globals.
func importGlobalNames(globals map[string]any) []string {
	names := risor.NewConfig().GlobalNames()
	seen := make(map[string]bool, len(names)+len(globals))
	for _, n := range names {
		seen[n] = true
	}
	for name := range globals {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"analyze_src": makeAnalyzeSrcFn(r.parser, r.taxonomy),
		"log":         mustProxy(&logObject{log: r.log}),
	}

	// Store access is read-only: scripts report on indexed data, they
	// never write it.
	if r.store != nil {
		globals["files"] = makeFilesFn(r.store)
		globals["file_by_path"] = makeFileByPathFn(r.store)
		globals["scopes_by_file"] = makeScopesByFileFn(r.store)
		globals["scope_chain"] = makeScopeChainFn(r.store)
		globals["identifiers_by_file"] = makeIdentifiersByFileFn(r.store)
		globals["identifier_at"] = makeIdentifierAtFn(r.store)
		globals["references_to"] = makeReferencesToFn(r.store)
		globals["declarations_by_name"] = makeDeclarationsByNameFn(r.store)
		globals["undeclared"] = makeFilteredFn("undeclared", r.store.Undeclared)
		globals["dynamic_tainted"] = makeFilteredFn("dynamic_tainted", r.store.DynamicTainted)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
