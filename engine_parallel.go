package varscope

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/varscope/internal/store"
)

// workItem holds everything a parallel indexing worker needs.
type workItem struct {
	path    string
	lang    string
	fileID  int64
	content []byte
	batch   *store.BatchedStore
	err     error
}

// IndexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and analyse into per-file BatchedStores.
//	Phase C (serial):   Commit batches to SQLite.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: Serial file preparation ----
	var (
		items []*workItem
		errs  []error
	)
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		item.batch = store.NewBatchedStore()
		items = append(items, &item)
	}

	// ---- Phase B: Parallel analysis ----
	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(workers, len(items))))
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Per-file failures are recorded, not returned, so one bad
			// file does not cancel its siblings.
			item.err = e.indexFile(gctx, item.batch, *item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, item := range items {
			e.abandon(*item)
		}
		return err
	}

	// ---- Phase C: Serial commit ----
	for _, item := range items {
		if item.err != nil {
			e.abandon(*item)
			errs = append(errs, fmt.Errorf("analyze %s: %w", item.path, item.err))
			continue
		}
		if err := e.store.CommitBatch(item.batch); err != nil {
			e.abandon(*item)
			errs = append(errs, fmt.Errorf("commit %s: %w", item.path, err))
		}
	}

	return joinIndexErrors(e.log, errs)
}
