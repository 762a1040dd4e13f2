// Package file implements the provider contract for local filesystem
// paths. Paths are relative to a base directory; traversal outside it
// is rejected.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/omnistor/omnistor/pkg/provider"
)

// Backend is the scheme/backend name reported in errors and URLs.
const Backend = "file"

// Config configures a filesystem provider.
type Config struct {
	// BaseDir is the directory all paths resolve under (required).
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("file config: base dir is required")
	}
	return nil
}

// Provider serves entries from a directory tree.
type Provider struct {
	baseDir string
}

var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Renamer  = (*Provider)(nil)
)

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

func (p *Provider) Scheme() string { return Backend }

func (p *Provider) Capabilities() provider.CapabilitySet {
	return provider.NewCapabilitySet(
		provider.CapList, provider.CapRead, provider.CapWrite,
		provider.CapDelete, provider.CapMkdir, provider.CapRmdir,
		provider.CapCopy, provider.CapMove, provider.CapDownload,
		provider.CapUpload, provider.CapSymlinks, provider.CapPermissions,
	)
}

func (p *Provider) Close() error { return nil }

// List returns one page of entries under the prefix path. Filesystems
// have no native pagination, so the full key set is collected, sorted,
// and windowed with the last returned path as continuation token.
func (p *Provider) List(ctx context.Context, path string, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, err := p.collectKeys(path, opts.Recursive)
	if err != nil {
		return nil, p.wrapError("List", path, err)
	}
	sort.Strings(keys)

	start := 0
	if opts.ContinuationToken != "" {
		idx := sort.SearchStrings(keys, opts.ContinuationToken)
		for idx < len(keys) && keys[idx] <= opts.ContinuationToken {
			idx++
		}
		start = idx
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	end := start + maxEntries
	if end > len(keys) {
		end = len(keys)
	}

	entries := make([]provider.Entry, 0, end-start)
	for _, k := range keys[start:end] {
		e, err := p.entryFor(k)
		if err != nil {
			// Raced with a concurrent delete; skip.
			continue
		}
		entries = append(entries, *e)
	}

	res := &provider.ListResult{Entries: entries}
	if end < len(keys) {
		res.IsTruncated = true
		res.ContinuationToken = keys[end-1]
	}
	return res, nil
}

func (p *Provider) Stat(ctx context.Context, path string) (*provider.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := p.entryFor(strings.TrimSuffix(path, "/"))
	if err != nil {
		return nil, p.wrapError("Stat", path, err)
	}
	return e, nil
}

func (p *Provider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := p.Stat(ctx, path)
	if err != nil {
		if provider.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read opens a file for streaming. Offset/Length select a byte range
// through a section reader that still closes the underlying file.
func (p *Provider) Read(ctx context.Context, path string, opts provider.ReadOptions) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	full, err := p.fullPath(path)
	if err != nil {
		return nil, 0, p.wrapError("Read", path, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, p.wrapError("Read", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, p.wrapError("Read", path, err)
	}

	if opts.Offset == 0 && opts.Length == 0 {
		return f, st.Size(), nil
	}

	if opts.Offset < 0 || opts.Offset > st.Size() {
		_ = f.Close()
		return nil, 0, p.wrapError("Read", path, fmt.Errorf("offset %d out of range", opts.Offset))
	}
	length := st.Size() - opts.Offset
	if opts.Length > 0 && opts.Length < length {
		length = opts.Length
	}
	return &sectionReadCloser{
		r: io.NewSectionReader(f, opts.Offset, length),
		c: f,
	}, length, nil
}

type sectionReadCloser struct {
	r io.Reader
	c io.Closer
}

func (s *sectionReadCloser) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *sectionReadCloser) Close() error               { return s.c.Close() }

// Write stores a file through a temp file and rename, so a failed write
// never leaves a truncated file at the destination path.
func (p *Provider) Write(ctx context.Context, path string, body io.Reader, size int64, opts provider.WriteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := p.fullPath(path)
	if err != nil {
		return p.wrapError("Write", path, err)
	}
	if !opts.Overwrite {
		if _, err := os.Lstat(full); err == nil {
			return &provider.OpError{
				Op: "Write", Backend: Backend, Path: path,
				Err: fmt.Errorf("file already exists"),
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("Write", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".omnistor-put-*")
	if err != nil {
		return p.wrapError("Write", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return p.wrapError("Write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("Write", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return p.wrapError("Write", path, err)
	}
	return nil
}

func (p *Provider) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := p.fullPath(path)
	if err != nil {
		return p.wrapError("Mkdir", path, err)
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return p.wrapError("Mkdir", path, err)
	}
	return nil
}

// Delete removes one file, symlink, or empty directory.
func (p *Provider) Delete(ctx context.Context, path string, opts provider.DeleteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := p.fullPath(path)
	if err != nil {
		return p.wrapError("Delete", path, err)
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			if opts.MissingOK {
				return nil
			}
			return p.wrapError("Delete", path, err)
		}
		return p.wrapError("Delete", path, err)
	}
	return nil
}

// Rename implements provider.Renamer with an atomic filesystem rename.
func (p *Provider) Rename(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcFull, err := p.fullPath(src)
	if err != nil {
		return p.wrapError("Rename", src, err)
	}
	dstFull, err := p.fullPath(dst)
	if err != nil {
		return p.wrapError("Rename", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dstFull), 0o755); err != nil {
		return p.wrapError("Rename", dst, err)
	}
	if err := os.Rename(srcFull, dstFull); err != nil {
		return p.wrapError("Rename", src, err)
	}
	return nil
}

// entryFor builds an Entry from an Lstat of the relative path, so
// symlinks report as symlinks with their target in metadata.
func (p *Provider) entryFor(path string) (*provider.Entry, error) {
	full, err := p.fullPath(path)
	if err != nil {
		return nil, err
	}
	st, err := os.Lstat(full)
	if err != nil {
		return nil, err
	}

	typ := provider.EntryFile
	switch {
	case st.IsDir():
		typ = provider.EntryDirectory
	case st.Mode()&os.ModeSymlink != 0:
		typ = provider.EntrySymlink
	}

	e := provider.NewEntry(path, typ, st.Size(), st.ModTime())
	e.Metadata = map[string]string{
		provider.MetaPermissions: st.Mode().Perm().String(),
	}
	if typ == provider.EntrySymlink {
		if target, err := os.Readlink(full); err == nil {
			e.Metadata[provider.MetaSymlinkDest] = target
		}
	}
	return &e, nil
}

// fullPath resolves a slash path under baseDir, rejecting traversal.
func (p *Provider) fullPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "/")
	clean := filepath.Clean("/" + path)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid path")
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

// collectKeys walks the tree under prefix and returns relative slash
// paths, directories with a trailing slash. Non-recursive listings stop
// at the first level.
func (p *Provider) collectKeys(prefix string, recursive bool) ([]string, error) {
	root, err := p.fullPath(prefix)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if d.IsDir() {
			keys = append(keys, key+"/")
			if !recursive {
				return fs.SkipDir
			}
			return nil
		}
		keys = append(keys, key)
		return nil
	})
	return keys, err
}

// wrapError normalizes filesystem errors to the sentinel taxonomy.
func (p *Provider) wrapError(op, path string, err error) error {
	wrapped := &provider.OpError{Op: op, Backend: Backend, Path: path, Err: err}
	switch {
	case err == nil:
		wrapped.Err = fmt.Errorf("unknown error")
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrPermissionDenied
	}
	return wrapped
}
