package provider

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryType classifies an entry in a listing.
type EntryType string

const (
	// EntryFile is a regular object or file.
	EntryFile EntryType = "file"

	// EntryDirectory is a directory or prefix-like grouping.
	EntryDirectory EntryType = "directory"

	// EntrySymlink is a symbolic link (local filesystem backends only).
	EntrySymlink EntryType = "symlink"

	// EntryBucket is a bucket/container root.
	EntryBucket EntryType = "bucket"
)

// Entry is an immutable snapshot of one addressable object.
//
// Entries are created by provider List/Stat operations and discarded after
// use. The engine never mutates a stored Entry in place; edits are expressed
// as a second snapshot diffed against the first (see pkg/plan).
type Entry struct {
	// ID is a stable, opaque identity assigned when the snapshot is taken.
	// It is never recomputed from the path, so a path change under the same
	// ID is a rename/move rather than a delete+create.
	ID string `json:"id"`

	// Name is the base name of the entry.
	Name string `json:"name"`

	// Type classifies the entry.
	Type EntryType `json:"type"`

	// Path is the backend-native path, slash-normalized. Directories carry
	// a trailing slash.
	Path string `json:"path"`

	// Size is the object size in bytes. Zero for directories.
	Size int64 `json:"size"`

	// Modified is when the entry was last modified.
	Modified time.Time `json:"modified"`

	// Metadata holds backend-specific fields (etag, content type, storage
	// class, permissions). May be nil.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Well-known metadata keys populated by providers where available.
const (
	MetaETag         = "etag"
	MetaContentType  = "content_type"
	MetaStorageClass = "storage_class"
	MetaPermissions  = "permissions"
	MetaSymlinkDest  = "symlink_target"
)

// IsDir reports whether the entry is a directory or bucket root.
func (e Entry) IsDir() bool {
	return e.Type == EntryDirectory || e.Type == EntryBucket
}

// NewEntryID mints an opaque identity for an entry snapshot.
//
// Backends with no native stable identity call this once per snapshot.
// Identity persists through user edits of a snapshot, which is what the
// change detector keys on.
func NewEntryID() string {
	return uuid.NewString()
}

// NormalizePath slash-normalizes a path and collapses duplicate separators.
// A trailing slash is preserved so directory entries keep their marker.
func NormalizePath(p string) string {
	trailing := strings.HasSuffix(p, "/") && p != "/"
	parts := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	out := strings.Join(kept, "/")
	if trailing && out != "" {
		out += "/"
	}
	return out
}

// BaseName returns the final path segment, ignoring a trailing slash.
func BaseName(p string) string {
	p = strings.TrimSuffix(NormalizePath(p), "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// NewEntry builds an Entry with a freshly minted ID and normalized path.
// Directory entries get a trailing slash marker.
func NewEntry(path string, typ EntryType, size int64, modified time.Time) Entry {
	norm := NormalizePath(path)
	if typ == EntryDirectory && !strings.HasSuffix(norm, "/") {
		norm += "/"
	}
	return Entry{
		ID:       NewEntryID(),
		Name:     BaseName(norm),
		Type:     typ,
		Path:     norm,
		Size:     size,
		Modified: modified,
	}
}
