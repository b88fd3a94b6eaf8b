// Package transfer applies a reconciliation plan to the local root.
// Stale files queued for replacement are journaled and removed first,
// then every queued node is handed to the fetch primitive. Failures
// are collected per node; only cancellation stops a run early.
package transfer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyper-ai-inc/megamirror/internal/reconcile"
	"github.com/hyper-ai-inc/megamirror/internal/remote"
)

// DefaultWorkers bounds concurrent fetch dispatches unless configured
// otherwise.
const DefaultWorkers = 4

// Fetcher queues one remote path for download into a local directory.
// Implementations guarantee the destination directory exists before
// the transfer starts; the executor never creates directories itself.
type Fetcher interface {
	Fetch(ctx context.Context, remotePath, localDestDir string) error
}

// LocalFS is the mutation surface the executor needs on the local
// root. *localfs.Probe satisfies it.
type LocalFS interface {
	Remove(path string) error
	MakeDir(path string) error
	Create(path string) (io.WriteCloser, error)
}

// NodeError records a node the executor could not process.
type NodeError struct {
	Path string
	Err  error
}

// Summary aggregates per-node outcomes of one executed plan. The
// three success counters are disjoint: a replaced file counts only in
// FilesReplaced.
type Summary struct {
	FoldersCreated int
	FilesFetched   int
	FilesReplaced  int
	FetchErrors    int
	Errors         []NodeError
}

func (s *Summary) fail(node remote.Node, err error) {
	s.FetchErrors++
	s.Errors = append(s.Errors, NodeError{Path: node.Path, Err: err})
}

// Dispatched reports how many fetch invocations succeeded.
func (s *Summary) Dispatched() int {
	return s.FoldersCreated + s.FilesFetched + s.FilesReplaced
}

// queuedFetch tracks whether a node reached the fetch queue by
// replacement so the summary can count it separately.
type queuedFetch struct {
	node     remote.Node
	replaced bool
}

// Executor turns a reconciliation plan into journal, remove and fetch
// calls against the local root.
type Executor struct {
	fetcher   Fetcher
	fs        LocalFS
	localRoot string
	runID     string
	workers   int
	logger    *zap.Logger
}

// NewExecutor returns an executor dispatching at most workers fetches
// at a time (values below 1 mean sequential).
func NewExecutor(fetcher Fetcher, fs LocalFS, localRoot, runID string, workers int, logger *zap.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		fetcher:   fetcher,
		fs:        fs,
		localRoot: localRoot,
		runID:     runID,
		workers:   workers,
		logger:    logger,
	}
}

// Execute applies the plan. Replacements run first, strictly in plan
// order; the fetch queue (plan fetches, then promoted replacements) is
// then dispatched on up to the configured number of workers. Per-node
// failures land in the summary and processing continues. The returned
// error is non-nil only when ctx ends the run early, in which case the
// summary covers the work done so far; re-running reconciliation
// resumes from current local state.
func (e *Executor) Execute(ctx context.Context, plan reconcile.Plan) (Summary, error) {
	var sum Summary

	// Bail before touching the journal of a previous run.
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	queue := make([]queuedFetch, 0, len(plan.Fetch)+len(plan.Replace))
	for _, node := range plan.Fetch {
		queue = append(queue, queuedFetch{node: node})
	}

	promoted, err := e.replaceStale(ctx, plan.Replace, &sum)
	if err != nil {
		return sum, err
	}
	queue = append(queue, promoted...)

	if err := e.dispatch(ctx, queue, &sum); err != nil {
		return sum, err
	}
	return sum, nil
}

// replaceStale journals and removes each stale local file, promoting
// the node to the fetch queue. A journal or remove failure records a
// node error and the node is not promoted: a file that could not be
// removed must not be fetched over.
func (e *Executor) replaceStale(ctx context.Context, stale []remote.Node, sum *Summary) ([]queuedFetch, error) {
	if len(stale) == 0 {
		return nil, nil
	}

	j, err := openJournal(e.fs)
	if err != nil {
		e.logger.Error("replace journal unavailable", zap.Error(err))
		for _, node := range stale {
			sum.fail(node, err)
		}
		return nil, nil
	}
	defer func() {
		if cerr := j.Close(); cerr != nil {
			e.logger.Warn("closing replace journal", zap.Error(cerr))
		}
	}()

	promoted := make([]queuedFetch, 0, len(stale))
	for _, node := range stale {
		if err := ctx.Err(); err != nil {
			return promoted, err
		}
		if err := j.record(e.runID, node); err != nil {
			sum.fail(node, fmt.Errorf("journal: %w", err))
			continue
		}
		e.logger.Info("replacing stale local file",
			zap.String("path", node.Path),
			zap.Int64("remote_size", node.Size),
			zap.Time("remote_mod_time", node.ModTime))
		if err := e.fs.Remove(node.Path); err != nil {
			sum.fail(node, fmt.Errorf("remove stale copy: %w", err))
			continue
		}
		promoted = append(promoted, queuedFetch{node: node, replaced: true})
	}
	return promoted, nil
}

func (e *Executor) dispatch(ctx context.Context, queue []queuedFetch, sum *Summary) error {
	if len(queue) == 0 {
		return nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.workers)
	for _, item := range queue {
		if ctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dest := e.destDir(item.node)
			if err := e.fetcher.Fetch(ctx, item.node.Path, dest); err != nil {
				e.logger.Error("fetch dispatch failed",
					zap.String("path", item.node.Path),
					zap.Error(err))
				mu.Lock()
				sum.fail(item.node, err)
				mu.Unlock()
				return nil
			}
			e.logger.Debug("fetch dispatched",
				zap.String("path", item.node.Path),
				zap.String("dest", dest))
			mu.Lock()
			switch {
			case item.replaced:
				sum.FilesReplaced++
			case item.node.Kind == remote.KindFolder:
				sum.FoldersCreated++
			default:
				sum.FilesFetched++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// destDir is the local directory a node is fetched into: the node's
// parent directory under the local root. Top-level nodes land in the
// root itself.
func (e *Executor) destDir(node remote.Node) string {
	return filepath.Join(e.localRoot, filepath.FromSlash(node.Dir()))
}
