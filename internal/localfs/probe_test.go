package localfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"
)

func setupProbe(t *testing.T) (*Probe, string) {
	t.Helper()
	root := t.TempDir()
	return New(root), root
}

func TestProbeExists(t *testing.T) {
	p, root := setupProbe(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "present.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "Minis"), 0755))

	ok, err := p.Exists("present.txt")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Exists("Minis")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Exists("absent.txt")
	require.NoError(t, err)
	require.False(t, ok)

	// The root itself always exists.
	ok, err = p.Exists(".")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProbeSizeAndModTime(t *testing.T) {
	p, root := setupProbe(t)

	full := filepath.Join(root, "dragon.stl")
	require.NoError(t, os.WriteFile(full, make([]byte, 1000), 0644))
	mod := time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(full, mod, mod))

	size, err := p.Size("dragon.stl")
	require.NoError(t, err)
	require.Equal(t, int64(1000), size)

	got, err := p.ModTime("dragon.stl")
	require.NoError(t, err)
	require.True(t, got.Equal(mod), "mod time %v, want %v", got, mod)
}

func TestProbeNotFound(t *testing.T) {
	p, _ := setupProbe(t)

	_, err := p.Size("missing.bin")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = p.ModTime("missing.bin")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, p.Remove("missing.bin"), ErrNotFound)
}

func TestProbeRejectsTraversal(t *testing.T) {
	p, _ := setupProbe(t)

	_, err := p.Exists("../outside")
	require.ErrorIs(t, err, ErrPathTraversal)

	_, err = p.Size("Minis/../../outside")
	require.ErrorIs(t, err, ErrPathTraversal)

	// Dots inside a segment are a legitimate name, not traversal.
	ok, err := p.Exists("v1..2.stl")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProbeRemove(t *testing.T) {
	p, root := setupProbe(t)

	full := filepath.Join(root, "stale.bin")
	require.NoError(t, os.WriteFile(full, []byte("old"), 0644))

	require.NoError(t, p.Remove("stale.bin"))

	if _, err := os.Stat(full); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file removed, stat err = %v", err)
	}
}

func TestProbeMakeDirAndCreate(t *testing.T) {
	p, root := setupProbe(t)

	require.NoError(t, p.MakeDir("_tmp"))

	f, err := p.Create("_tmp/_replace.log")
	require.NoError(t, err)
	_, err = f.Write([]byte("{}\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(root, "_tmp", "_replace.log"))
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(data))

	// Create truncates an existing file.
	f, err = p.Create("_tmp/_replace.log")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	data, err = os.ReadFile(filepath.Join(root, "_tmp", "_replace.log"))
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestProbeOverMemoryFilesystem(t *testing.T) {
	p := NewWithFilesystem(memfs.New())

	require.NoError(t, p.MakeDir("Minis"))
	ok, err := p.Exists("Minis")
	require.NoError(t, err)
	require.True(t, ok)

	f, err := p.Create("Minis/dragon.stl")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 16))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	size, err := p.Size("Minis/dragon.stl")
	require.NoError(t, err)
	require.Equal(t, int64(16), size)

	require.NoError(t, p.Remove("Minis/dragon.stl"))
	ok, err = p.Exists("Minis/dragon.stl")
	require.NoError(t, err)
	require.False(t, ok)
}
