package varscope

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jward/varscope/internal/watch"
)

// WatchBatch is one debounced set of file changes delivered by Watch.
type WatchBatch = watch.Batch

// Watch re-indexes supported files under root as they change, until ctx is
// cancelled. onIndexed, if non-nil, is called after each batch with the
// batch's indexing error; errors do not stop the watch.
func (e *Engine) Watch(ctx context.Context, root string, onIndexed func(WatchBatch, error)) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("varscope: resolve %s: %w", root, err)
	}
	skip := make(map[string]bool, len(e.skipDirs))
	for d := range e.skipDirs {
		skip[d] = true
	}
	w, err := watch.New(root, watch.Options{
		SkipDirs: skip,
		Accept: func(path string) bool {
			_, ok := e.languageFor(path)
			return ok
		},
		OnError: func(err error) {
			e.log.Error("watch: %v", err)
		},
	})
	if err != nil {
		return fmt.Errorf("varscope: watch %s: %w", root, err)
	}
	defer w.Close()

	e.log.Info("watching %s", root)
	err = w.Run(ctx, func(ctx context.Context, b watch.Batch) error {
		removed := b.Removed
		for _, dir := range b.RemovedDirs {
			under, err := e.storedFilesUnder(dir)
			if err != nil {
				e.log.Error("watch: %v", err)
				continue
			}
			removed = append(removed, under...)
		}
		e.log.V("%d changed, %d removed", len(b.Changed), len(removed))
		batchErr := e.RemoveFiles(removed)
		if err := e.IndexFiles(ctx, b.Changed); err != nil && batchErr == nil {
			batchErr = err
		}
		if onIndexed != nil {
			onIndexed(b, batchErr)
		}
		return ctx.Err()
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
