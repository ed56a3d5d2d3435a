package varscope

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jward/varscope/internal/frontend"
	"github.com/jward/varscope/internal/logger"
	"github.com/jward/varscope/internal/runtime"
	"github.com/jward/varscope/internal/scope"
	"github.com/jward/varscope/internal/store"
)

// Engine orchestrates the varscope pipeline: file discovery, change
// detection, parsing, scope analysis, persistence and query access.
type Engine struct {
	store    *store.Store
	runtime  *runtime.Runtime
	parser   frontend.Parser
	taxonomy scope.Taxonomy
	log      *logger.Logger

	frontendName string
	scriptsDir   string
	scriptsFS    fs.FS
	languages    map[string]bool // nil means all languages
	skipDirs     map[string]bool

	// useParallel enables the parallel indexing pipeline.
	useParallel bool
	workers     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel indexing. When true (default), IndexFiles
// parses and analyses files on a worker pool, with a single writer
// committing batches to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers caps the parallel pipeline's worker count. Zero or less
// means one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithFrontend selects the parser by registered name ("tree-sitter" or
// "goja"). An empty name selects the default.
func WithFrontend(name string) Option {
	return func(e *Engine) {
		e.frontendName = name
	}
}

// WithTaxonomy replaces the default scope taxonomy.
func WithTaxonomy(t scope.Taxonomy) Option {
	return func(e *Engine) {
		e.taxonomy = t
	}
}

// WithLogger sets the progress logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithSkipDirs adds directory names excluded from IndexDirectory's
// filesystem walk and from Watch.
func WithSkipDirs(names ...string) Option {
	return func(e *Engine) {
		for _, n := range names {
			e.skipDirs[n] = true
		}
	}
}

// WithScriptsDir sets the directory RunScript resolves relative script
// paths and imports against.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from disk. This enables embedding scripts via
// go:embed. When set, the scripts directory is ignored.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// defaultSkipDirs are excluded from directory walks.
var defaultSkipDirs = []string{"node_modules", "bower_components", "vendor", "dist"}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		taxonomy:    scope.DefaultTaxonomy(),
		log:         logger.Discard(),
		skipDirs:    make(map[string]bool),
		useParallel: true,
	}
	for _, d := range defaultSkipDirs {
		e.skipDirs[d] = true
	}
	for _, opt := range opts {
		opt(e)
	}

	p, err := frontend.For(e.frontendName)
	if err != nil {
		return nil, fmt.Errorf("varscope: %w", err)
	}
	e.parser = p
	if err := e.taxonomy.Validate(); err != nil {
		return nil, fmt.Errorf("varscope: %w", err)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("varscope: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("varscope: migrate: %w", err)
	}
	e.store = s

	rtOpts := []runtime.RuntimeOption{
		runtime.WithLogger(e.log),
		runtime.WithAnalyzer(e.parser, e.taxonomy),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(s, e.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Taxonomy returns the taxonomy files are analysed with.
func (e *Engine) Taxonomy() scope.Taxonomy {
	return e.taxonomy
}

// Frontend returns the name of the parser in use.
func (e *Engine) Frontend() string {
	return e.parser.Name()
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// RunScript runs a consumer Risor script with the store's host functions.
func (e *Engine) RunScript(ctx context.Context, path string, extras map[string]any) error {
	return e.runtime.RunScript(ctx, path, extras)
}

// Reset deletes every indexed file, forcing the next IndexFiles to
// re-analyse everything.
func (e *Engine) Reset() error {
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("varscope: reset: %w", err)
	}
	for _, f := range files {
		if err := e.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("varscope: reset %s: %w", f.Path, err)
		}
	}
	return nil
}

// languageFor returns the language of path if the Engine processes it.
func (e *Engine) languageFor(path string) (string, bool) {
	lang, ok := frontend.LanguageForFile(path)
	if !ok {
		return "", false // unsupported extension
	}
	if e.languages != nil && !e.languages[lang] {
		return "", false // filtered out
	}
	return lang, true
}

// AnalyzeSource analyses src as the file path without touching the
// database. HTML files yield one UnitAnalysis per inline script.
func (e *Engine) AnalyzeSource(ctx context.Context, path string, src []byte) ([]UnitAnalysis, error) {
	lang, ok := frontend.LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("varscope: unsupported file type: %s", path)
	}
	return e.analyze(ctx, lang, path, src)
}

func (e *Engine) analyze(ctx context.Context, lang, path string, src []byte) ([]UnitAnalysis, error) {
	start := time.Now()
	units, err := frontend.ParseFile(ctx, e.parser, lang, path, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	parsed := time.Now()

	out := make([]UnitAnalysis, 0, len(units))
	for _, u := range units {
		a, err := scope.Analyze(u.Tree, e.taxonomy)
		if err != nil {
			return nil, fmt.Errorf("analyze unit %d: %w", u.Index, err)
		}
		out = append(out, UnitAnalysis{Index: u.Index, Analysis: a})
	}
	e.log.Detail("%s: parse %s, analyze %s", path, parsed.Sub(start), time.Since(parsed))
	return out, nil
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// uses a worker pool for concurrent analysis with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
//  1. Detect language from extension
//  2. Skip unsupported or filtered-out languages
//  3. Skip unchanged files (same content hash)
//  4. Delete stale data, insert/update file record
//  5. Parse, analyse, and write scopes and identifiers
//
// Errors on individual files are logged and skipped; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		if err := e.indexFile(ctx, e.store, item); err != nil {
			e.abandon(item)
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	return joinIndexErrors(e.log, errs)
}

// indexFile parses and analyses one prepared file and writes the results
// to ds.
func (e *Engine) indexFile(ctx context.Context, ds store.DataStore, item workItem) error {
	units, err := e.analyze(ctx, item.lang, item.path, item.content)
	if err != nil {
		return err
	}
	nScopes, nIdents, err := writeAnalysis(ds, item.fileID, units)
	if err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	e.log.V("indexed %s (%d scopes, %d identifiers)", item.path, nScopes, nIdents)
	return nil
}

// prepareFile does the serial per-file work: hash check, cleanup, file
// record. skip=true means the file is unchanged or unsupported.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	lang, ok := e.languageFor(path)
	if !ok {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		e.log.VV("unchanged %s", path)
		return workItem{}, true, nil
	}
	if existing != nil {
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}
	return workItem{path: path, lang: lang, fileID: fileID, content: content}, false, nil
}

// abandon removes a file record whose analysis failed so the next run
// retries it instead of treating it as unchanged.
func (e *Engine) abandon(item workItem) {
	if err := e.store.DeleteFile(item.fileID); err != nil {
		e.log.Error("cleanup %s: %v", item.path, err)
	}
}

func joinIndexErrors(log *logger.Logger, errs []error) error {
	for _, err := range errs {
		log.Error("%v", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// RemoveFiles deletes the stored data of files that no longer exist.
func (e *Engine) RemoveFiles(paths []string) error {
	for _, path := range paths {
		f, err := e.store.FileByPath(path)
		if err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		if f == nil {
			continue
		}
		if err := e.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		e.log.V("removed %s", path)
	}
	return nil
}

// IndexDirectory walks root and indexes all files with supported extensions.
// A database written by an incompatible analyzer version or with a
// different front-end or taxonomy is cleared first.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to a filesystem walk (skipping hidden and excluded
// directories) if git is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.ListFiles(root)
	if err != nil {
		return err
	}
	e.log.V("found %d source files under %s", len(paths), root)
	if e.NeedsRebuild() {
		if v := e.StoredVersion(); v != "" {
			e.log.Info("database written by %s with different settings; rebuilding", v)
		}
		if err := e.Reset(); err != nil {
			return err
		}
	}
	if err := e.pruneMissing(root, paths); err != nil {
		return err
	}
	indexErr := e.IndexFiles(ctx, paths)
	if err := e.Stamp(); err != nil {
		return err
	}
	return indexErr
}

// pruneMissing removes stored files under root that are no longer listed,
// such as files deleted since the last run.
func (e *Engine) pruneMissing(root string, listed []string) error {
	stored, err := e.storedFilesUnder(root)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(listed))
	for _, p := range listed {
		keep[p] = true
	}
	var gone []string
	for _, p := range stored {
		if !keep[p] {
			gone = append(gone, p)
		}
	}
	if len(gone) > 0 {
		e.log.V("removing %d file(s) no longer under %s", len(gone), root)
	}
	return e.RemoveFiles(gone)
}

// storedFilesUnder returns the indexed paths at or below dir.
func (e *Engine) storedFilesUnder(dir string) ([]string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	files, err := e.store.Files()
	if err != nil {
		return nil, fmt.Errorf("list indexed files: %w", err)
	}
	prefix := dir + string(filepath.Separator)
	var out []string
	for _, f := range files {
		if f.Path == dir || strings.HasPrefix(f.Path, prefix) {
			out = append(out, f.Path)
		}
	}
	return out, nil
}

// ListFiles returns the files under root that IndexDirectory would index.
func (e *Engine) ListFiles(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available; fall back to walk.
		e.log.VV("git ls-files unavailable, walking %s", root)
		return e.walkListFiles(root)
	}
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := e.languageFor(absPath); ok && !e.inSkippedDir(root, absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// inSkippedDir reports whether any directory between root and path is
// excluded. git ls-files lists committed vendor trees too.
func (e *Engine) inSkippedDir(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if e.skipDirs[part] {
			return true
		}
	}
	return false
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available. Skips hidden and excluded directories.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || e.skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := e.languageFor(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
