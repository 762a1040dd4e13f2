// Package providertest provides an in-memory provider for exercising
// the transfer and executor layers without a real backend.
package providertest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omnistor/omnistor/pkg/provider"
)

// Fake is an in-memory provider. It records every backend call so
// tests can assert on call sequences (part numbers, batch counts,
// abort-after-failure), and injects failures through the Fail hook.
//
// Unlike real providers it is safe for concurrent use; tests are
// allowed to poke at it from multiple goroutines.
type Fake struct {
	caps provider.CapabilitySet

	// PageSize bounds List pages to force pagination. Zero means 1000.
	PageSize int

	// Fail, when set, is consulted before every backend call. A non-nil
	// return is surfaced as that call's failure.
	Fail func(op, path string) error

	mu      sync.Mutex
	objects map[string][]byte
	mtimes  map[string]time.Time
	meta    map[string]map[string]string
	dirs    map[string]struct{}
	uploads map[string]*upload
	calls   []string
}

type upload struct {
	path      string
	parts     map[int32][]byte
	completed bool
}

// AllCapabilities is the default declared set for a Fake.
var AllCapabilities = provider.NewCapabilitySet(
	provider.CapList, provider.CapRead, provider.CapWrite, provider.CapDelete,
	provider.CapMkdir, provider.CapRmdir, provider.CapCopy, provider.CapMove,
	provider.CapServerSideCopy, provider.CapDownload, provider.CapUpload,
	provider.CapBatchDelete, provider.CapMetadata,
)

// New creates a Fake declaring the given capabilities (AllCapabilities
// when none are passed).
func New(caps ...provider.Capability) *Fake {
	set := AllCapabilities
	if len(caps) > 0 {
		set = provider.NewCapabilitySet(caps...)
	}
	return &Fake{
		caps:    set,
		objects: map[string][]byte{},
		mtimes:  map[string]time.Time{},
		meta:    map[string]map[string]string{},
		dirs:    map[string]struct{}{},
		uploads: map[string]*upload{},
	}
}

// Seed stores an object without recording a call.
func (f *Fake) Seed(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = append([]byte(nil), data...)
	f.mtimes[path] = time.Now()
}

// SeedDir registers a directory marker without recording a call.
func (f *Fake) SeedDir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	f.dirs[path] = struct{}{}
}

// Object returns the stored bytes and whether the path exists.
func (f *Fake) Object(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[path]
	return data, ok
}

// Paths returns all stored object paths, sorted.
func (f *Fake) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.objects))
	for p := range f.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Calls returns the recorded backend call log.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount counts recorded calls whose name matches op.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op || strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

func (f *Fake) record(op, path string) error {
	f.mu.Lock()
	if path == "" {
		f.calls = append(f.calls, op)
	} else {
		f.calls = append(f.calls, op+" "+path)
	}
	fail := f.Fail
	f.mu.Unlock()
	if fail != nil {
		return fail(op, path)
	}
	return nil
}

func (f *Fake) Scheme() string                       { return "fake" }
func (f *Fake) Capabilities() provider.CapabilitySet { return f.caps }
func (f *Fake) Close() error                         { return nil }

// List returns a page of entries under the prefix path, paginated by
// PageSize with the last returned path as continuation token.
func (f *Fake) List(ctx context.Context, path string, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := f.record("List", path); err != nil {
		return nil, err
	}

	f.mu.Lock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, path) {
			keys = append(keys, k)
		}
	}
	for d := range f.dirs {
		if strings.HasPrefix(d, path) && d != path {
			keys = append(keys, d)
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	start := 0
	if opts.ContinuationToken != "" {
		for start < len(keys) && keys[start] <= opts.ContinuationToken {
			start++
		}
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	if opts.MaxEntries > 0 && opts.MaxEntries < pageSize {
		pageSize = opts.MaxEntries
	}
	end := start + pageSize
	if end > len(keys) {
		end = len(keys)
	}

	f.mu.Lock()
	entries := make([]provider.Entry, 0, end-start)
	for _, k := range keys[start:end] {
		if strings.HasSuffix(k, "/") {
			entries = append(entries, provider.NewEntry(k, provider.EntryDirectory, 0, time.Now()))
			continue
		}
		entries = append(entries, provider.NewEntry(k, provider.EntryFile, int64(len(f.objects[k])), f.mtimes[k]))
	}
	f.mu.Unlock()

	res := &provider.ListResult{Entries: entries}
	if end < len(keys) {
		res.IsTruncated = true
		res.ContinuationToken = keys[end-1]
	}
	return res, nil
}

func (f *Fake) Stat(ctx context.Context, path string) (*provider.Entry, error) {
	if err := f.record("Stat", path); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.objects[path]; ok {
		e := provider.NewEntry(path, provider.EntryFile, int64(len(data)), f.mtimes[path])
		if m := f.meta[path]; m != nil {
			e.Metadata = m
		}
		return &e, nil
	}
	dir := path
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	if _, ok := f.dirs[dir]; ok {
		e := provider.NewEntry(dir, provider.EntryDirectory, 0, time.Time{})
		return &e, nil
	}
	return nil, &provider.OpError{Op: "Stat", Backend: "fake", Path: path, Err: provider.ErrNotFound}
}

func (f *Fake) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.Stat(ctx, path)
	if err != nil {
		if provider.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *Fake) Read(ctx context.Context, path string, opts provider.ReadOptions) (io.ReadCloser, int64, error) {
	if err := f.record("Read", path); err != nil {
		return nil, 0, err
	}
	f.mu.Lock()
	data, ok := f.objects[path]
	f.mu.Unlock()
	if !ok {
		return nil, 0, &provider.OpError{Op: "Read", Backend: "fake", Path: path, Err: provider.ErrNotFound}
	}
	if opts.Offset > 0 || opts.Length > 0 {
		end := int64(len(data))
		if opts.Length > 0 && opts.Offset+opts.Length < end {
			end = opts.Offset + opts.Length
		}
		data = data[opts.Offset:end]
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *Fake) Write(ctx context.Context, path string, body io.Reader, size int64, opts provider.WriteOptions) error {
	if err := f.record("Write", path); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.objects[path]; exists && !opts.Overwrite {
		return &provider.OpError{Op: "Write", Backend: "fake", Path: path, Err: fmt.Errorf("object exists")}
	}
	f.objects[path] = data
	f.mtimes[path] = time.Now()
	if opts.Metadata != nil {
		f.meta[path] = opts.Metadata
	}
	return nil
}

func (f *Fake) Mkdir(ctx context.Context, path string) error {
	if err := f.record("Mkdir", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	f.dirs[path] = struct{}{}
	return nil
}

func (f *Fake) Delete(ctx context.Context, path string, opts provider.DeleteOptions) error {
	if err := f.record("Delete", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[path]; ok {
		delete(f.objects, path)
		delete(f.mtimes, path)
		delete(f.meta, path)
		return nil
	}
	dir := path
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	if _, ok := f.dirs[dir]; ok {
		delete(f.dirs, dir)
		return nil
	}
	if opts.MissingOK {
		return nil
	}
	return &provider.OpError{Op: "Delete", Backend: "fake", Path: path, Err: provider.ErrNotFound}
}

// DeleteBatch implements provider.BatchDeleter.
func (f *Fake) DeleteBatch(ctx context.Context, paths []string) error {
	if err := f.record("DeleteBatch", fmt.Sprintf("n=%d", len(paths))); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		delete(f.objects, p)
		delete(f.mtimes, p)
		delete(f.meta, p)
	}
	return nil
}

// CopyObject implements provider.ServerSideCopier.
func (f *Fake) CopyObject(ctx context.Context, src, dst string) error {
	if err := f.record("CopyObject", src+" -> "+dst); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[src]
	if !ok {
		return &provider.OpError{Op: "CopyObject", Backend: "fake", Path: src, Err: provider.ErrNotFound}
	}
	f.objects[dst] = append([]byte(nil), data...)
	f.mtimes[dst] = time.Now()
	return nil
}

// Rename implements provider.Renamer.
func (f *Fake) Rename(ctx context.Context, src, dst string) error {
	if err := f.record("Rename", src+" -> "+dst); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[src]
	if !ok {
		return &provider.OpError{Op: "Rename", Backend: "fake", Path: src, Err: provider.ErrNotFound}
	}
	f.objects[dst] = data
	f.mtimes[dst] = f.mtimes[src]
	delete(f.objects, src)
	delete(f.mtimes, src)
	return nil
}

// CreateMultipartUpload implements provider.MultipartUploader.
func (f *Fake) CreateMultipartUpload(ctx context.Context, path string, opts provider.WriteOptions) (string, error) {
	if err := f.record("CreateMultipartUpload", path); err != nil {
		return "", err
	}
	id := uuid.NewString()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[id] = &upload{path: path, parts: map[int32][]byte{}}
	return id, nil
}

// UploadPart implements provider.MultipartUploader.
func (f *Fake) UploadPart(ctx context.Context, path, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	if err := f.record("UploadPart", fmt.Sprintf("%s part=%d size=%d", path, partNumber, size)); err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	up, ok := f.uploads[uploadID]
	if !ok {
		return "", fmt.Errorf("unknown upload %s", uploadID)
	}
	up.parts[partNumber] = data
	return fmt.Sprintf("etag-%d", partNumber), nil
}

// CompleteMultipartUpload implements provider.MultipartUploader.
func (f *Fake) CompleteMultipartUpload(ctx context.Context, path, uploadID string, parts []provider.CompletedPart) error {
	if err := f.record("CompleteMultipartUpload", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	up, ok := f.uploads[uploadID]
	if !ok {
		return fmt.Errorf("unknown upload %s", uploadID)
	}
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(up.parts[p.PartNumber])
	}
	f.objects[path] = buf.Bytes()
	f.mtimes[path] = time.Now()
	up.completed = true
	delete(f.uploads, uploadID)
	return nil
}

// AbortMultipartUpload implements provider.MultipartUploader.
func (f *Fake) AbortMultipartUpload(ctx context.Context, path, uploadID string) error {
	if err := f.record("AbortMultipartUpload", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, uploadID)
	return nil
}

// OpenUploads reports how many multipart sessions are still open.
func (f *Fake) OpenUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// Compile-time interface checks.
var (
	_ provider.Provider          = (*Fake)(nil)
	_ provider.BatchDeleter      = (*Fake)(nil)
	_ provider.ServerSideCopier  = (*Fake)(nil)
	_ provider.Renamer           = (*Fake)(nil)
	_ provider.MultipartUploader = (*Fake)(nil)
)
