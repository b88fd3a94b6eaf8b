// Package localfs is the sync engine's view of the local mirror root.
// Probe paths are forward-slash separated and relative to the root, the
// same shape as remote node paths.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

var (
	ErrNotFound      = errors.New("file or directory not found")
	ErrPathTraversal = errors.New("path traversal not allowed")
)

// Probe is a narrow filesystem surface rooted at the local sync root.
// The root itself is assumed to exist; callers validate that before a
// run starts.
type Probe struct {
	fs billy.Filesystem
}

// New returns a probe over the host filesystem rooted at root.
func New(root string) *Probe {
	return &Probe{fs: osfs.New(root)}
}

// NewWithFilesystem returns a probe over the given filesystem. Tests
// use it with memfs.
func NewWithFilesystem(fs billy.Filesystem) *Probe {
	return &Probe{fs: fs}
}

// guard rejects paths that could point outside the root. Remote
// listings are untrusted input, so a ".." segment is refused here and
// surfaces as a per-node probe error upstream.
func guard(path string) error {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return ErrPathTraversal
		}
	}
	return nil
}

// Exists reports whether the path exists. The error is non-nil only
// for failures other than not-found.
func (p *Probe) Exists(path string) (bool, error) {
	if path == "" || path == "." {
		// The root itself.
		return true, nil
	}
	if err := guard(path); err != nil {
		return false, err
	}
	if _, err := p.fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %q: %w", path, err)
	}
	return true, nil
}

// Size returns the byte size of the file at path.
func (p *Probe) Size(path string) (int64, error) {
	info, err := p.stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ModTime returns the modification time of the file at path.
func (p *Probe) ModTime(path string) (time.Time, error) {
	info, err := p.stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (p *Probe) stat(path string) (os.FileInfo, error) {
	if err := guard(path); err != nil {
		return nil, err
	}
	info, err := p.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}
	return info, nil
}

// Remove deletes the file at path.
func (p *Probe) Remove(path string) error {
	if err := guard(path); err != nil {
		return err
	}
	if err := p.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %q: %w", path, err)
	}
	return nil
}

// MakeDir creates the directory at path along with missing parents.
func (p *Probe) MakeDir(path string) error {
	if err := guard(path); err != nil {
		return err
	}
	if err := p.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	return nil
}

// Create truncate-creates the file at path, making parent directories
// as needed. The replace journal is written through it.
func (p *Probe) Create(path string) (io.WriteCloser, error) {
	if err := guard(path); err != nil {
		return nil, err
	}
	f, err := p.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", path, err)
	}
	return f, nil
}
