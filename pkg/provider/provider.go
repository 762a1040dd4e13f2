// Package provider defines the contract between the storage operation
// engine and heterogeneous backends (object stores, network shares,
// local disk).
//
// Backends implement a small core surface (list, stat, read, write,
// mkdir, delete) plus optional capability interfaces discovered by type
// assertion and gated by a declared CapabilitySet. Expected failures
// (missing object, denied permission, unsupported operation, transient
// network errors) are returned as errors mapping onto the canonical
// taxonomy in errors.go, never as panics. Panics are reserved for
// programmer errors.
package provider

import (
	"context"
	"io"
)

// Provider abstracts one storage backend.
//
// Implementations should:
//   - Declare their supported feature set once, at construction
//   - Support pagination via continuation tokens
//   - Map native errors onto the canonical sentinels at the boundary
//
// A provider instance holds mutable session state (current container,
// connection handle) with a single logical owner; it is not safe for
// concurrent use from multiple callers.
type Provider interface {
	// Scheme identifies the backend kind (e.g., "s3", "file").
	Scheme() string

	// Capabilities returns the immutable declared feature set.
	Capabilities() CapabilitySet

	// List returns a page of entries under path.
	// Use ContinuationToken from ListResult for subsequent pages.
	List(ctx context.Context, path string, opts ListOptions) (*ListResult, error)

	// Stat returns the entry for a single path.
	// Returns ErrNotFound if the entry does not exist.
	Stat(ctx context.Context, path string) (*Entry, error)

	// Exists reports whether the path resolves to an entry.
	Exists(ctx context.Context, path string) (bool, error)

	// Read opens the object at path for reading and returns its size.
	// The caller owns the returned ReadCloser.
	Read(ctx context.Context, path string, opts ReadOptions) (io.ReadCloser, int64, error)

	// Write creates or overwrites the object at path from body.
	// size must be the exact content length; some backends require it
	// up front.
	Write(ctx context.Context, path string, body io.Reader, size int64, opts WriteOptions) error

	// Mkdir creates a directory (or directory marker) at path.
	Mkdir(ctx context.Context, path string) error

	// Delete removes the single entry at path. Removing a subtree is a
	// transfer-layer concern (see pkg/transfer); Delete on a non-empty
	// directory returns an error unless the backend has no directory
	// semantics at all.
	Delete(ctx context.Context, path string, opts DeleteOptions) error

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Recursive lists the whole subtree instead of one level.
	Recursive bool

	// ContinuationToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxEntries limits the number of entries returned per page.
	// Zero uses the provider default (typically 1000).
	MaxEntries int
}

// ListResult contains a page of entries from a List operation.
type ListResult struct {
	// Entries contains the entry snapshots for this page.
	Entries []Entry

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ReadOptions configures a Read operation.
type ReadOptions struct {
	// Offset is the starting byte. Zero reads from the beginning.
	Offset int64

	// Length limits the number of bytes read. Zero reads to the end.
	Length int64
}

// WriteOptions configures a Write operation.
type WriteOptions struct {
	// ContentType sets the MIME type where the backend stores one.
	ContentType string

	// Metadata attaches user metadata to the object.
	Metadata map[string]string

	// Overwrite permits replacing an existing object. When false, a
	// write to an existing path fails.
	Overwrite bool
}

// DeleteOptions configures a Delete operation.
type DeleteOptions struct {
	// MissingOK suppresses ErrNotFound for already-absent entries.
	MissingOK bool
}
