package syncer

import (
	"time"

	"go.uber.org/zap"

	"github.com/hyper-ai-inc/megamirror/internal/transfer"
)

// RunReport aggregates one sync run: what the listing produced, what
// reconciliation queued and what the executor did with it.
type RunReport struct {
	RunID         string
	Nodes         int
	BadLines      int
	BadPaths      int
	FetchQueued   int
	ReplaceQueued int
	ProbeErrors   int
	DryRun        bool
	Summary       transfer.Summary
	Duration      time.Duration
}

// Fields renders the report as structured log fields for the final
// summary record.
func (r RunReport) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", r.RunID),
		zap.Int("remote_nodes", r.Nodes),
		zap.Int("bad_lines", r.BadLines),
		zap.Int("bad_paths", r.BadPaths),
		zap.Int("queued_fetch", r.FetchQueued),
		zap.Int("queued_replace", r.ReplaceQueued),
		zap.Int("probe_errors", r.ProbeErrors),
		zap.Int("folders_created", r.Summary.FoldersCreated),
		zap.Int("files_fetched", r.Summary.FilesFetched),
		zap.Int("files_replaced", r.Summary.FilesReplaced),
		zap.Int("fetch_errors", r.Summary.FetchErrors),
		zap.Duration("duration", r.Duration),
	}
}
