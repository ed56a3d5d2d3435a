// Package watch re-reports source changes under a directory tree, batched
// so that an editor's burst of writes yields one callback.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before pending changes are delivered.
const DefaultDebounce = 200 * time.Millisecond

// Batch is one debounced set of changes. Paths are sorted.
type Batch struct {
	Changed []string
	Removed []string
	// RemovedDirs are watched directories that were deleted or moved
	// away. Files below them are gone too.
	RemovedDirs []string
}

// Options configures a Watcher.
type Options struct {
	// SkipDirs names directories that are never watched. Hidden
	// directories are always skipped.
	SkipDirs map[string]bool
	// Accept filters file events; nil accepts everything.
	Accept   func(path string) bool
	Debounce time.Duration
	// OnError receives watcher errors, such as an event queue overflow or
	// a directory that could not be watched. Watching continues.
	OnError func(error)
}

// Watcher watches a directory tree recursively.
type Watcher struct {
	w    *fsnotify.Watcher
	opts Options
	dirs map[string]bool
}

type pendingOp uint8

const (
	opChanged pendingOp = iota
	opRemoved
	opRemovedDir
)

// New creates a Watcher over root and every non-skipped directory below it.
func New(root string, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	w := &Watcher{w: fw, opts: opts, dirs: map[string]bool{}}
	if err := w.addTree(root, nil); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) Close() error { return w.w.Close() }

func (w *Watcher) skip(name string) bool {
	return (strings.HasPrefix(name, ".") && name != "." && name != "..") || w.opts.SkipDirs[name]
}

// addTree watches root and the non-skipped directories below it. When
// pending is non-nil, accepted files found on the way are queued as changed,
// so a directory moved into the tree is indexed whole.
func (w *Watcher) addTree(root string, pending map[string]pendingOp) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if pending != nil && w.accept(path) {
				pending[path] = opChanged
			}
			return nil
		}
		if path != root && w.skip(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.w.Add(path); err != nil {
			return err
		}
		w.dirs[path] = true
		return nil
	})
}

// dropTree forgets dir and every watched directory below it.
func (w *Watcher) dropTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
			// A deleted directory's watch is already gone.
			_ = w.w.Remove(d)
		}
	}
}

func (w *Watcher) accept(path string) bool {
	return w.opts.Accept == nil || w.opts.Accept(path)
}

// Run delivers batches to fn until ctx is done, the watcher is closed, or fn
// returns an error. Watcher errors go to Options.OnError and do not stop it.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context, Batch) error) error {
	pending := map[string]pendingOp{}
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.opts.OnError(err)
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if !w.record(ev, pending) {
				continue
			}
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			b := collect(pending)
			pending = map[string]pendingOp{}
			if err := fn(ctx, b); err != nil {
				return err
			}
		}
	}
}

// record folds one event into pending and reports whether anything changed.
func (w *Watcher) record(ev fsnotify.Event, pending map[string]pendingOp) bool {
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.dirs[ev.Name] {
		w.dropTree(ev.Name)
		prefix := ev.Name + string(filepath.Separator)
		for p := range pending {
			if strings.HasPrefix(p, prefix) {
				delete(pending, p)
			}
		}
		pending[ev.Name] = opRemovedDir
		return true
	}
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if w.skip(filepath.Base(ev.Name)) {
				return false
			}
			if err := w.addTree(ev.Name, pending); err != nil {
				w.opts.OnError(fmt.Errorf("watch %s: %w", ev.Name, err))
			}
			return true
		}
	}
	if !w.accept(ev.Name) {
		return false
	}
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		pending[ev.Name] = opRemoved
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		pending[ev.Name] = opChanged
	default:
		return false
	}
	return true
}

func collect(pending map[string]pendingOp) Batch {
	var b Batch
	for p, op := range pending {
		switch op {
		case opChanged:
			b.Changed = append(b.Changed, p)
		case opRemoved:
			b.Removed = append(b.Removed, p)
		case opRemovedDir:
			b.RemovedDirs = append(b.RemovedDirs, p)
		}
	}
	sort.Strings(b.Changed)
	sort.Strings(b.Removed)
	sort.Strings(b.RemovedDirs)
	return b
}
