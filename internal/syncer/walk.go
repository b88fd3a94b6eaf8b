package syncer

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyper-ai-inc/megamirror/internal/listing"
	"github.com/hyper-ai-inc/megamirror/internal/remote"
)

// enumeration is what one listing pass over the remote produced.
type enumeration struct {
	nodes    []remote.Node
	badLines int
	badPaths int
}

// walk enumerates the remote tree from shallow listings. An explicit
// FIFO queue of pending directories is consumed by index, seeded with
// the root; child folders are appended as each listing is parsed. A
// directory that fails to list is counted and skipped, leaving its
// subtree out of the result.
func (s *Syncer) walk(ctx context.Context, logger *zap.Logger) (enumeration, error) {
	var enum enumeration
	queue := []string{""}
	for i := 0; i < len(queue); i++ {
		if err := ctx.Err(); err != nil {
			return enum, err
		}
		dir := queue[i]
		text, err := s.client.List(ctx, dir, false)
		if err != nil {
			enum.badPaths++
			logger.Warn("directory listing failed",
				zap.String("dir", dir),
				zap.Error(err))
			continue
		}
		res := listing.ParseShallow(text, dir)
		enum.badLines += res.BadLines
		enum.nodes = append(enum.nodes, res.Nodes...)
		for _, node := range res.Nodes {
			if node.Kind == remote.KindFolder {
				queue = append(queue, node.Path)
			}
		}
		logger.Debug("listed directory",
			zap.String("dir", dir),
			zap.Int("records", len(res.Nodes)),
			zap.Int("bad_lines", res.BadLines))
	}
	return enum, nil
}
