package remote

import (
	"path"
	"time"
)

// Kind classifies a remote node, decoded from the first listing flag byte.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
	KindRoot
	KindInbox
	KindTrash
	KindUnsupported
)

// KindOf maps a listing flag byte to a Kind. Unknown bytes map to
// KindUnsupported so a single default policy handles them downstream.
func KindOf(flag byte) Kind {
	switch flag {
	case '-':
		return KindFile
	case 'd':
		return KindFolder
	case 'r':
		return KindRoot
	case 'i':
		return KindInbox
	case 'b':
		return KindTrash
	default:
		return KindUnsupported
	}
}

// Flag returns the listing flag byte for the kind, the inverse of
// KindOf.
func (k Kind) Flag() byte {
	switch k {
	case KindFile:
		return '-'
	case KindFolder:
		return 'd'
	case KindRoot:
		return 'r'
	case KindInbox:
		return 'i'
	case KindTrash:
		return 'b'
	default:
		return 'x'
	}
}

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	case KindRoot:
		return "root"
	case KindInbox:
		return "inbox"
	case KindTrash:
		return "trash"
	default:
		return "unsupported"
	}
}

// Node is one entry of the remote hierarchy as reported by a listing.
type Node struct {
	Kind Kind

	// Raw flag bytes from the listing, stored but never interpreted.
	Export         byte
	ExportDuration byte
	Shared         byte

	Version int
	Size    int64
	ModTime time.Time

	// Name is the final path segment. Path is relative to the remote
	// root, forward-slash separated, no leading separator.
	Name string
	Path string
}

// Dir returns the path of the node's containing directory ("." for
// nodes directly under the remote root).
func (n Node) Dir() string {
	return path.Dir(n.Path)
}
