// Package listing parses the text output of MEGAcmd directory listings
// into remote node records. Both listing modes are covered: shallow
// (one directory level, fixed columns) and recursive (directory headers
// interleaved with records). Parsing is pure: no logging, no shared
// state, so independent captures can be parsed in parallel.
package listing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hyper-ai-inc/megamirror/internal/remote"
)

// timeLayout is the listing timestamp format requested with
// --time-format=ISO6081_WITH_TIME. Anything else fails that record.
const timeLayout = "2006-01-02T15:04:05"

// Fixed column boundaries of a shallow record line:
// flags [0:4], version [5:9], size [10:20], timestamp [21:40], name [41:].
const (
	versionStart = 5
	versionEnd   = 9
	sizeStart    = 10
	sizeEnd      = 20
	dateStart    = 21
	dateEnd      = 40
	nameStart    = 41
)

var (
	// shallowGate decides whether a line is a candidate record. Lines
	// failing the gate (headers, blanks, diagnostics) are skipped and
	// not counted; lines passing it must then decode cleanly.
	shallowGate = regexp.MustCompile(`^([bdirx-][e-][pt-][is-])( {1,4}[\d-]+)( {1,10}[\d-]+)`)

	// recursiveRecord captures a full record in one match: flags,
	// version, size, timestamp, name.
	recursiveRecord = regexp.MustCompile(`^([bdirx-][e-][pt-][is-]) ( {0,3}[\d-]+) ( {0,9}[\d-]+) (\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}) (.*)$`)
)

// Result is the outcome of parsing one listing capture. BadLines counts
// candidate records that failed field decoding; it never aborts a parse.
type Result struct {
	Nodes    []remote.Node
	BadLines int
}

// ParseShallow parses the output of a one-level listing of dir. The
// returned node paths are dir joined with each record's name, relative
// to the remote root.
func ParseShallow(text, dir string) Result {
	var res Result
	for _, line := range strings.Split(text, "\n") {
		if !shallowGate.MatchString(line) {
			continue
		}
		node, ok := decodeShallow(line, dir)
		if !ok {
			res.BadLines++
			continue
		}
		res.Nodes = append(res.Nodes, node)
	}
	return res
}

func decodeShallow(line, dir string) (remote.Node, bool) {
	// The gate guarantees the flag field; the fixed columns need the
	// full record width including at least one name byte.
	if len(line) <= nameStart {
		return remote.Node{}, false
	}

	version, err := parseCount(line[versionStart:versionEnd])
	if err != nil {
		return remote.Node{}, false
	}
	size, err := parseCount(line[sizeStart:sizeEnd])
	if err != nil {
		return remote.Node{}, false
	}
	mod, err := parseTimestamp(strings.TrimSpace(line[dateStart:dateEnd]))
	if err != nil {
		return remote.Node{}, false
	}
	name := strings.TrimSpace(line[nameStart:])
	if name == "" {
		return remote.Node{}, false
	}

	return remote.Node{
		Kind:           remote.KindOf(line[0]),
		Export:         line[1],
		ExportDuration: line[2],
		Shared:         line[3],
		Version:        int(version),
		Size:           size,
		ModTime:        mod,
		Name:           name,
		Path:           joinPath(dir, name),
	}, true
}

// ParseRecursive parses the output of a full-subtree listing. Directory
// header lines (an absolute path terminated by ':') set the context for
// the records that follow; records before any header resolve against
// the remote root. Record lines take precedence over header
// interpretation.
func ParseRecursive(text string) Result {
	var res Result

	// Path of the current directory relative to the listed root,
	// updated only when a header line is recognized.
	currentDir := ""

	for _, line := range strings.Split(text, "\n") {
		if m := recursiveRecord.FindStringSubmatch(line); m != nil {
			node, ok := decodeRecursive(m, currentDir)
			if !ok {
				res.BadLines++
				continue
			}
			res.Nodes = append(res.Nodes, node)
			continue
		}
		if dir, ok := headerDir(line); ok {
			currentDir = dir
		}
	}
	return res
}

func decodeRecursive(m []string, currentDir string) (remote.Node, bool) {
	flags := m[1]
	version, err := parseCount(m[2])
	if err != nil {
		return remote.Node{}, false
	}
	size, err := parseCount(m[3])
	if err != nil {
		return remote.Node{}, false
	}
	mod, err := parseTimestamp(m[4])
	if err != nil {
		return remote.Node{}, false
	}
	name := strings.TrimSpace(m[5])
	if name == "" {
		return remote.Node{}, false
	}

	return remote.Node{
		Kind:           remote.KindOf(flags[0]),
		Export:         flags[1],
		ExportDuration: flags[2],
		Shared:         flags[3],
		Version:        int(version),
		Size:           size,
		ModTime:        mod,
		Name:           name,
		Path:           joinPath(currentDir, name),
	}, true
}

// headerDir recognizes a directory header line and returns the header's
// path relative to the listed root. The first path segment is the root
// itself, so "/Root/sub/dir:" yields "sub/dir" and "/Root:" yields "".
func headerDir(line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, "/") || !strings.HasSuffix(line, ":") {
		return "", false
	}
	inner := strings.Trim(line[1:len(line)-1], "/")
	if i := strings.IndexByte(inner, '/'); i >= 0 {
		return inner[i+1:], true
	}
	return "", true
}

// parseTimestamp decodes a listing timestamp. The field carries no
// zone, and the mod times it gets compared against come from the local
// filesystem, so it is read as local wall time.
func parseTimestamp(value string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, value, time.Local)
}

// parseCount decodes a version or size field: a single dash means "not
// applicable" and decodes to zero.
func parseCount(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "-" {
		return 0, nil
	}
	return strconv.ParseInt(field, 10, 64)
}

// joinPath joins a directory context with a record name into a path
// relative to the remote root, with no leading separator.
func joinPath(dir, name string) string {
	return strings.Trim(dir+"/"+name, "/\\")
}
