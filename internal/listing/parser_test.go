package listing

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hyper-ai-inc/megamirror/internal/remote"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation(timeLayout, value, time.Local)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return parsed
}

func TestParseShallow(t *testing.T) {
	text := "FLAGS VERS       SIZE DATE                NAME\n" +
		"d---    -          - 2024-03-01T12:00:00 Minis\n" +
		"----    1       1000 2024-03-02T08:30:00 dragon.stl\n" +
		"\n" +
		"Couldn't remember session id\n"

	res := ParseShallow(text, "")

	if res.BadLines != 0 {
		t.Fatalf("expected 0 bad lines, got %d", res.BadLines)
	}
	want := []remote.Node{
		{
			Kind: remote.KindFolder, Export: '-', ExportDuration: '-', Shared: '-',
			ModTime: ts(t, "2024-03-01T12:00:00"), Name: "Minis", Path: "Minis",
		},
		{
			Kind: remote.KindFile, Export: '-', ExportDuration: '-', Shared: '-',
			Version: 1, Size: 1000,
			ModTime: ts(t, "2024-03-02T08:30:00"), Name: "dragon.stl", Path: "dragon.stl",
		},
	}
	if diff := cmp.Diff(want, res.Nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestParseShallowJoinsQueriedDir(t *testing.T) {
	text := "----    1       1000 2024-03-02T08:30:00 dragon.stl\n"

	res := ParseShallow(text, "Minis")

	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(res.Nodes))
	}
	if res.Nodes[0].Path != "Minis/dragon.stl" {
		t.Errorf("path = %q, want %q", res.Nodes[0].Path, "Minis/dragon.stl")
	}
}

func TestParseShallowFlagPassthrough(t *testing.T) {
	text := "-eps    3        512 2024-03-02T08:30:00 shared.bin\n"

	res := ParseShallow(text, "")

	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(res.Nodes))
	}
	n := res.Nodes[0]
	if n.Kind != remote.KindFile {
		t.Errorf("kind = %v, want file", n.Kind)
	}
	if n.Export != 'e' || n.ExportDuration != 'p' || n.Shared != 's' {
		t.Errorf("flag bytes = %c%c%c, want eps", n.Export, n.ExportDuration, n.Shared)
	}
}

func TestParseShallowBadLines(t *testing.T) {
	// Both lines pass the record gate: the first has an unparsable
	// timestamp, the second is truncated before the name column.
	text := "----    1       1000 2024-13-45T99:99:99 broken.stl\n" +
		"----    1       1000\n" +
		"----    1       2000 2024-03-02T08:30:00 good.stl\n"

	res := ParseShallow(text, "")

	if res.BadLines != 2 {
		t.Errorf("expected 2 bad lines, got %d", res.BadLines)
	}
	if len(res.Nodes) != 1 || res.Nodes[0].Name != "good.stl" {
		t.Errorf("expected only good.stl to parse, got %+v", res.Nodes)
	}
}

func TestParseShallowMultiDigitVersion(t *testing.T) {
	text := "----   12       1000 2024-03-02T08:30:00 versioned.bin\n"

	res := ParseShallow(text, "")

	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d (bad=%d)", len(res.Nodes), res.BadLines)
	}
	if res.Nodes[0].Version != 12 {
		t.Errorf("version = %d, want 12", res.Nodes[0].Version)
	}
}

func TestParseShallowCarriageReturn(t *testing.T) {
	text := "----    1       1000 2024-03-02T08:30:00 dragon.stl\r\n"

	res := ParseShallow(text, "")

	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(res.Nodes))
	}
	if res.Nodes[0].Name != "dragon.stl" {
		t.Errorf("name = %q, want %q", res.Nodes[0].Name, "dragon.stl")
	}
}

func TestParseRecursive(t *testing.T) {
	text := "/MZ4250:\n" +
		"d---    -          - 2024-03-01T12:00:00 Minis\n" +
		"\n" +
		"/MZ4250/Minis:\n" +
		"----    1       1000 2024-03-02T08:30:00 dragon.stl\n" +
		"d---    -          - 2024-03-01T12:05:00 large\n" +
		"\n" +
		"/MZ4250/Minis/large:\n" +
		"----    2      20000 2024-03-03T09:00:00 giant.stl\n"

	res := ParseRecursive(text)

	if res.BadLines != 0 {
		t.Fatalf("expected 0 bad lines, got %d", res.BadLines)
	}
	wantPaths := []string{"Minis", "Minis/dragon.stl", "Minis/large", "Minis/large/giant.stl"}
	if len(res.Nodes) != len(wantPaths) {
		t.Fatalf("expected %d nodes, got %d", len(wantPaths), len(res.Nodes))
	}
	for i, p := range wantPaths {
		if res.Nodes[i].Path != p {
			t.Errorf("nodes[%d].Path = %q, want %q", i, res.Nodes[i].Path, p)
		}
	}
	if res.Nodes[3].Size != 20000 || res.Nodes[3].Version != 2 {
		t.Errorf("giant.stl decoded as %+v", res.Nodes[3])
	}
}

func TestParseRecursiveRecordBeforeHeader(t *testing.T) {
	// Records emitted before any directory header resolve against the
	// listed root.
	text := "----    1        500 2024-03-02T08:30:00 top.txt\n" +
		"/MZ4250/Minis:\n" +
		"----    1       1000 2024-03-02T08:30:00 dragon.stl\n"

	res := ParseRecursive(text)

	if len(res.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(res.Nodes))
	}
	if res.Nodes[0].Path != "top.txt" {
		t.Errorf("nodes[0].Path = %q, want %q", res.Nodes[0].Path, "top.txt")
	}
	if res.Nodes[1].Path != "Minis/dragon.stl" {
		t.Errorf("nodes[1].Path = %q, want %q", res.Nodes[1].Path, "Minis/dragon.stl")
	}
}

func TestParseRecursiveRecordPrecedence(t *testing.T) {
	// A record whose name ends with ':' must parse as a record, never
	// as a directory header.
	text := "/MZ4250/Minis:\n" +
		"----    1        500 2024-03-02T08:30:00 notes:\n" +
		"----    1       1000 2024-03-02T08:30:00 dragon.stl\n"

	res := ParseRecursive(text)

	if len(res.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(res.Nodes))
	}
	if res.Nodes[0].Path != "Minis/notes:" {
		t.Errorf("nodes[0].Path = %q, want %q", res.Nodes[0].Path, "Minis/notes:")
	}
	if res.Nodes[1].Path != "Minis/dragon.stl" {
		t.Errorf("nodes[1].Path = %q, want %q", res.Nodes[1].Path, "Minis/dragon.stl")
	}
}

func TestParseRecursiveBadTimestamp(t *testing.T) {
	text := "/MZ4250/Minis:\n" +
		"----    1       1000 2024-13-01T08:30:00 broken.stl\n" +
		"----    1       2000 2024-03-02T08:30:00 good.stl\n"

	res := ParseRecursive(text)

	if res.BadLines != 1 {
		t.Errorf("expected 1 bad line, got %d", res.BadLines)
	}
	if len(res.Nodes) != 1 || res.Nodes[0].Name != "good.stl" {
		t.Errorf("expected only good.stl to parse, got %+v", res.Nodes)
	}
}

func TestParseRecursiveDashCounts(t *testing.T) {
	text := "/MZ4250:\n" +
		"d---    -          - 2024-03-01T12:00:00 Minis\n"

	res := ParseRecursive(text)

	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(res.Nodes))
	}
	if res.Nodes[0].Version != 0 || res.Nodes[0].Size != 0 {
		t.Errorf("dash fields should decode to zero, got %+v", res.Nodes[0])
	}
}
