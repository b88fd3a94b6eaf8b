// Package syncer runs one end-to-end reconciliation: open the remote
// session, enumerate the remote tree, diff it against the local root
// and apply the resulting plan. Phases are strictly ordered; every
// blocking step honors the run context.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyper-ai-inc/megamirror/internal/listing"
	"github.com/hyper-ai-inc/megamirror/internal/localfs"
	"github.com/hyper-ai-inc/megamirror/internal/reconcile"
	"github.com/hyper-ai-inc/megamirror/internal/remote"
	"github.com/hyper-ai-inc/megamirror/internal/transfer"
)

var (
	// ErrLoginFailed means the session could not be opened; nothing was
	// listed or transferred.
	ErrLoginFailed = errors.New("login failed")
	// ErrListFailed means the recursive listing call failed. Walk mode
	// never returns it; failed directories are counted instead.
	ErrListFailed = errors.New("remote listing failed")
)

// Strategy selects how the remote tree is enumerated.
type Strategy string

const (
	// StrategyRecursive captures the whole tree in one listing call.
	StrategyRecursive Strategy = "recursive"
	// StrategyWalk shallow-lists one directory at a time off a FIFO
	// queue. Slower, but an unlistable directory costs only its own
	// subtree instead of the run.
	StrategyWalk Strategy = "walk"
)

// Client is the remote collaborator a run drives: session lifecycle,
// listing capture and the fetch primitive. *megacmd.Client implements
// it.
type Client interface {
	Login(ctx context.Context, url string) error
	List(ctx context.Context, path string, recursive bool) (string, error)
	Fetch(ctx context.Context, remotePath, localDestDir string) error
	Logout(ctx context.Context) error
}

// Options configure one syncer.
type Options struct {
	RemoteURL string
	LocalRoot string
	Strategy  Strategy
	Transfers int
	DryRun    bool

	// Out receives the rendered plan on dry runs. Defaults to stdout.
	Out io.Writer
}

// Syncer mirrors one remote folder into the local root.
type Syncer struct {
	client Client
	probe  *localfs.Probe
	opts   Options
	logger *zap.Logger
}

// New creates a syncer. The probe must be rooted at opts.LocalRoot.
func New(client Client, probe *localfs.Probe, opts Options, logger *zap.Logger) *Syncer {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Transfers < 1 {
		opts.Transfers = transfer.DefaultWorkers
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyRecursive
	}
	return &Syncer{client: client, probe: probe, opts: opts, logger: logger}
}

// Run performs one sync. The report is meaningful even on error: it
// carries whatever the run accomplished before stopping. Login and
// recursive-listing failures abort; everything else is counted and the
// run completes.
func (s *Syncer) Run(ctx context.Context) (RunReport, error) {
	start := time.Now()
	report := RunReport{RunID: uuid.NewString(), DryRun: s.opts.DryRun}
	logger := s.logger.With(zap.String("run_id", report.RunID))

	logger.Info("starting sync run",
		zap.String("remote", s.opts.RemoteURL),
		zap.String("local", s.opts.LocalRoot),
		zap.String("strategy", string(s.opts.Strategy)),
		zap.Bool("dry_run", s.opts.DryRun))

	if err := s.client.Login(ctx, s.opts.RemoteURL); err != nil {
		return report, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	defer func() {
		// The session outlives a cancelled run unless closed.
		if err := s.client.Logout(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("logout failed", zap.Error(err))
		}
	}()

	enum, err := s.enumerate(ctx, logger)
	report.BadLines = enum.badLines
	report.BadPaths = enum.badPaths
	if err != nil {
		return report, err
	}

	tree := remote.Assemble(enum.nodes)
	report.Nodes = len(tree)
	logger.Info("remote tree assembled",
		zap.Int("nodes", len(tree)),
		zap.Int("bad_lines", enum.badLines),
		zap.Int("bad_paths", enum.badPaths))

	plan := reconcile.New(s.probe, logger).Reconcile(tree)
	report.FetchQueued = len(plan.Fetch)
	report.ReplaceQueued = len(plan.Replace)
	report.ProbeErrors = plan.ProbeErrors
	logger.Info("reconciliation complete",
		zap.Int("queued_fetch", len(plan.Fetch)),
		zap.Int("queued_replace", len(plan.Replace)),
		zap.Int("probe_errors", plan.ProbeErrors))

	if s.opts.DryRun {
		s.printPlan(plan)
		report.Duration = time.Since(start)
		logger.Info("dry run complete", report.Fields()...)
		return report, nil
	}

	executor := transfer.NewExecutor(s.client, s.probe, s.opts.LocalRoot, report.RunID, s.opts.Transfers, logger)
	sum, err := executor.Execute(ctx, plan)
	report.Summary = sum
	report.Duration = time.Since(start)
	if err != nil {
		return report, fmt.Errorf("run aborted: %w", err)
	}

	logger.Info("sync run complete", report.Fields()...)
	if sum.Dispatched() > 0 {
		logger.Info("transfers are queued in the background; run mega-transfers to watch progress",
			zap.Int("dispatched", sum.Dispatched()))
	}
	return report, nil
}

// enumerate captures the remote tree with the configured strategy.
func (s *Syncer) enumerate(ctx context.Context, logger *zap.Logger) (enumeration, error) {
	if s.opts.Strategy == StrategyWalk {
		return s.walk(ctx, logger)
	}
	text, err := s.client.List(ctx, "", true)
	if err != nil {
		return enumeration{}, fmt.Errorf("%w: %w", ErrListFailed, err)
	}
	res := listing.ParseRecursive(text)
	return enumeration{nodes: res.Nodes, badLines: res.BadLines}, nil
}

// printPlan renders what a real run would fetch and replace.
func (s *Syncer) printPlan(plan reconcile.Plan) {
	fmt.Fprintf(s.opts.Out, "dry run: %d to fetch, %d to replace\n", len(plan.Fetch), len(plan.Replace))
	if len(plan.Fetch) > 0 {
		fmt.Fprintf(s.opts.Out, "\nfetch:\n%s", listing.FormatShallowPaths(plan.Fetch))
	}
	if len(plan.Replace) > 0 {
		fmt.Fprintf(s.opts.Out, "\nreplace:\n%s", listing.FormatShallowPaths(plan.Replace))
	}
}
