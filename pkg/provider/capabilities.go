package provider

import (
	"context"
	"io"
	"strings"
	"time"
)

// Capability is a named optional feature a backend may support.
//
// A provider declares its supported set at construction; the set is
// immutable for the provider's lifetime. Callers must check
// CapabilitySet.Has before invoking an optional operation; providers
// return ErrUnimplemented for undeclared operations without touching
// the network.
type Capability uint32

const (
	CapList Capability = 1 << iota
	CapRead
	CapWrite
	CapDelete
	CapMkdir
	CapRmdir
	CapCopy
	CapMove
	CapServerSideCopy
	CapDownload
	CapUpload
	CapVersioning
	CapMetadata
	CapPresignedURLs
	CapBatchDelete
	CapContainers
	CapConnection
	CapPermissions
	CapSymlinks
)

var capabilityNames = map[Capability]string{
	CapList:           "list",
	CapRead:           "read",
	CapWrite:          "write",
	CapDelete:         "delete",
	CapMkdir:          "mkdir",
	CapRmdir:          "rmdir",
	CapCopy:           "copy",
	CapMove:           "move",
	CapServerSideCopy: "server_side_copy",
	CapDownload:       "download",
	CapUpload:         "upload",
	CapVersioning:     "versioning",
	CapMetadata:       "metadata",
	CapPresignedURLs:  "presigned_urls",
	CapBatchDelete:    "batch_delete",
	CapContainers:     "containers",
	CapConnection:     "connection",
	CapPermissions:    "permissions",
	CapSymlinks:       "symlinks",
}

// String returns the snake_case name of the capability.
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

// CapabilitySet is an immutable set of capabilities declared by a provider.
type CapabilitySet uint32

// NewCapabilitySet combines capabilities into a set.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// Has reports whether the set declares the capability.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// String lists the declared capabilities, comma separated, in flag order.
func (s CapabilitySet) String() string {
	var names []string
	for c := CapList; c <= CapSymlinks; c <<= 1 {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	return strings.Join(names, ",")
}

// Optional provider interfaces, discovered via type assertion: the core
// Provider interface stays small and backends opt into extra surface by
// implementing these. A backend must both implement the interface and
// declare the matching capability; the transfer layer checks the
// declared set before asserting.

// ContainerProvider can enumerate and switch buckets/shares.
//
// SetContainer mutates provider-local session state. That state has a
// single logical owner; concurrent use of one provider instance from
// multiple callers is unsafe (clone a provider per session instead).
type ContainerProvider interface {
	ListContainers(ctx context.Context) ([]Entry, error)
	SetContainer(container string) error
	Container() string
}

// Connector manages an explicit connection lifecycle (network shares).
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
}

// MetadataWriter can replace user metadata on an existing object.
type MetadataWriter interface {
	SetMetadata(ctx context.Context, path string, metadata map[string]string) error
}

// Presigner can mint time-limited URLs for direct object access.
type Presigner interface {
	PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// BatchDeleter can delete many objects in one backend call.
//
// The transfer layer partitions key lists into batches of
// transfer.DeleteBatchSize before calling this.
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, paths []string) error
}

// CompletedPart identifies one finished part of a multipart upload.
type CompletedPart struct {
	// PartNumber is 1-based and must be unique within the upload.
	PartNumber int32

	// ETag is the integrity token returned by the backend for the part.
	ETag string
}

// MultipartUploader supports chunked uploads of large payloads.
//
// Part numbers are 1-based and completion must receive them in order.
type MultipartUploader interface {
	CreateMultipartUpload(ctx context.Context, path string, opts WriteOptions) (uploadID string, err error)
	UploadPart(ctx context.Context, path, uploadID string, partNumber int32, body io.Reader, size int64) (etag string, err error)
	CompleteMultipartUpload(ctx context.Context, path, uploadID string, parts []CompletedPart) error
	AbortMultipartUpload(ctx context.Context, path, uploadID string) error
}

// ServerSideCopier copies a single object without streaming it through
// the client. Selected by the transfer layer when CapServerSideCopy is
// declared; otherwise the generic read/write strategy is used.
type ServerSideCopier interface {
	CopyObject(ctx context.Context, src, dst string) error
}

// Renamer atomically renames a single entry. Local filesystems implement
// this; the transfer layer prefers it over copy+delete for moves when
// CapMove is declared.
type Renamer interface {
	Rename(ctx context.Context, src, dst string) error
}
