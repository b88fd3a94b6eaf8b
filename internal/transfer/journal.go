package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyper-ai-inc/megamirror/internal/remote"
)

const (
	journalDir  = "_tmp"
	journalPath = "_tmp/_replace.log"
)

// journalEntry is one replaced file, written before its stale local
// copy is removed so the overwrite can be audited or recovered.
type journalEntry struct {
	RunID      string    `json:"run_id"`
	ReplacedAt time.Time `json:"replaced_at"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Version    int       `json:"version"`
	ModTime    time.Time `json:"mod_time"`
}

// journal records replaced nodes as JSON lines under the local root.
// The file is truncated at the start of every run.
type journal struct {
	f   io.WriteCloser
	enc *json.Encoder
}

func openJournal(fs LocalFS) (*journal, error) {
	if err := fs.MakeDir(journalDir); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	f, err := fs.Create(journalPath)
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	return &journal{f: f, enc: json.NewEncoder(f)}, nil
}

func (j *journal) record(runID string, node remote.Node) error {
	return j.enc.Encode(journalEntry{
		RunID:      runID,
		ReplacedAt: time.Now(),
		Path:       node.Path,
		Size:       node.Size,
		Version:    node.Version,
		ModTime:    node.ModTime,
	})
}

func (j *journal) Close() error {
	return j.f.Close()
}
