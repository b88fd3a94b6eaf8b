// Package reconcile computes the download plan that converges the
// local mirror to the remote tree. One pass over the sorted tree, one
// decision per node, remote always authoritative unless the local copy
// is strictly newer.
package reconcile

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyper-ai-inc/megamirror/internal/remote"
)

// Probe is the slice of the local filesystem the reconciler consults.
// A missing path is the expected "needs fetch" signal, so Exists only
// errors on failures other than not-found. *localfs.Probe satisfies
// the interface; tests inject fakes to drive the error paths.
type Probe interface {
	Exists(path string) (bool, error)
	Size(path string) (int64, error)
	ModTime(path string) (time.Time, error)
}

// Plan is the outcome of one reconciliation pass. Fetch holds new
// folders and new files, Replace holds existing local files whose
// remote counterpart differs. The two lists are disjoint. ProbeErrors
// counts nodes skipped on local errors other than not-found.
type Plan struct {
	Fetch       []remote.Node
	Replace     []remote.Node
	ProbeErrors int
}

// Empty reports whether the plan contains no work.
func (p Plan) Empty() bool {
	return len(p.Fetch) == 0 && len(p.Replace) == 0
}

// Reconciler decides, node by node, what must be fetched or replaced.
type Reconciler struct {
	probe  Probe
	logger *zap.Logger
}

// New creates a reconciler over the given local probe.
func New(probe Probe, logger *zap.Logger) *Reconciler {
	return &Reconciler{probe: probe, logger: logger}
}

// Reconcile walks the sorted tree once and builds the plan. Sorted
// order matters: a folder sorts before everything inside it, so the
// subsumption check only needs the folders accepted so far. Nothing
// here aborts the run; per-node local errors are counted and skipped.
func (r *Reconciler) Reconcile(tree remote.Tree) Plan {
	var plan Plan

	// Paths of folders queued so far, for subsumption checks.
	var queued []string

	for _, node := range tree {
		switch node.Kind {
		case remote.KindFolder:
			queued = r.folder(node, &plan, queued)
		case remote.KindFile:
			r.file(node, &plan)
		default:
			r.logger.Debug("ignoring node",
				zap.String("path", node.Path),
				zap.Stringer("kind", node.Kind))
		}
	}
	return plan
}

func (r *Reconciler) folder(node remote.Node, plan *Plan, queued []string) []string {
	exists, err := r.probe.Exists(node.Path)
	if err != nil {
		r.skip(node, err, plan)
		return queued
	}
	if exists {
		return queued
	}
	if subsumed(node.Path, queued) {
		// Fetching the queued ancestor retrieves this folder too.
		return queued
	}

	r.logger.Debug("queueing folder", zap.String("path", node.Path))
	plan.Fetch = append(plan.Fetch, node)
	return append(queued, node.Path)
}

func (r *Reconciler) file(node remote.Node, plan *Plan) {
	dirExists, err := r.probe.Exists(node.Dir())
	if err != nil {
		r.skip(node, err, plan)
		return
	}
	if !dirExists {
		// The file arrives with its containing folder; queueing it
		// separately would fetch it twice.
		return
	}

	exists, err := r.probe.Exists(node.Path)
	if err != nil {
		r.skip(node, err, plan)
		return
	}
	if !exists {
		r.logger.Debug("queueing file", zap.String("path", node.Path))
		plan.Fetch = append(plan.Fetch, node)
		return
	}

	size, err := r.probe.Size(node.Path)
	if err != nil {
		r.skip(node, err, plan)
		return
	}
	mod, err := r.probe.ModTime(node.Path)
	if err != nil {
		r.skip(node, err, plan)
		return
	}

	// Replace unless the local copy is strictly newer with the same
	// size; a strictly newer local file is a local edit and is kept.
	if size != node.Size || !mod.After(node.ModTime) {
		r.logger.Debug("queueing replace",
			zap.String("path", node.Path),
			zap.Int64("local_size", size),
			zap.Int64("remote_size", node.Size))
		plan.Replace = append(plan.Replace, node)
	}
}

func (r *Reconciler) skip(node remote.Node, err error, plan *Plan) {
	plan.ProbeErrors++
	r.logger.Warn("skipping node on local probe error",
		zap.String("path", node.Path),
		zap.Error(err))
}

// subsumed reports whether an already-queued folder is an ancestor of
// path. The separator guard keeps siblings with a shared name prefix
// ("Minis2" under a queued "Minis") from being swallowed.
func subsumed(path string, queued []string) bool {
	for _, q := range queued {
		if strings.HasPrefix(path, q+"/") {
			return true
		}
	}
	return false
}
