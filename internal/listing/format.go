package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyper-ai-inc/megamirror/internal/remote"
)

// FormatShallow renders nodes in the shallow fixed-column grammar, one
// line per node. For well-formed records it is the inverse of
// ParseShallow.
func FormatShallow(nodes []remote.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(formatRecord(n))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatShallowPaths renders like FormatShallow but puts each node's
// full path in the name column. Dry runs use it to print the computed
// plan, where a bare name would lose the directory context.
func FormatShallowPaths(nodes []remote.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		row := n
		row.Name = n.Path
		b.WriteString(formatRecord(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatRecord(n remote.Node) string {
	flags := string([]byte{
		n.Kind.Flag(),
		flagOrDash(n.Export),
		flagOrDash(n.ExportDuration),
		flagOrDash(n.Shared),
	})

	version := "-"
	if n.Version != 0 {
		version = strconv.Itoa(n.Version)
	}

	// Only files report a byte count; every other kind lists a dash.
	size := "-"
	if n.Kind == remote.KindFile {
		size = strconv.FormatInt(n.Size, 10)
	}

	return fmt.Sprintf("%s %4s %10s %s %s",
		flags, version, size, n.ModTime.Format(timeLayout), n.Name)
}

func flagOrDash(b byte) byte {
	if b == 0 {
		return '-'
	}
	return b
}
