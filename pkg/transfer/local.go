package transfer

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/omnistor/omnistor/pkg/provider"
)

// Download copies an object (or, recursively, a subtree) from the
// provider to the local filesystem. The local side is plain os
// primitives; it is the collaborator end of the transfer, not a
// provider.
func Download(ctx context.Context, p provider.Provider, src, localDst string, recursive bool, opts Options) (*Summary, error) {
	if !recursive {
		size, err := downloadOne(ctx, p, src, localDst)
		if err != nil {
			return nil, err
		}
		opts.Progress.emit(ProgressEvent{
			Operation:        "download",
			BytesTransferred: size,
			TotalBytes:       size,
			Percentage:       100,
			CurrentFile:      src,
		})
		return &Summary{Entries: 1, BytesTransferred: size}, nil
	}

	srcPrefix := asPrefix(src)
	entries, err := Enumerate(ctx, p, srcPrefix, opts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	total := int64(len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rel := strings.TrimPrefix(e.Path, srcPrefix)
		target := filepath.Join(localDst, filepath.FromSlash(rel))
		if e.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return summary, err
			}
		} else {
			size, err := downloadOne(ctx, p, e.Path, target)
			if err != nil {
				return summary, err
			}
			summary.BytesTransferred += size
		}

		summary.Entries++
		opts.Progress.emit(ProgressEvent{
			Operation:        "download",
			BytesTransferred: summary.BytesTransferred,
			Percentage:       percentage(int64(i+1), total),
			CurrentFile:      e.Path,
		})
	}
	return summary, nil
}

// Upload copies a local file (or, recursively, a directory) into the
// provider. Large payloads take the chunked path via Put.
func Upload(ctx context.Context, p provider.Provider, localSrc, dst string, recursive bool, opts Options) (*Summary, error) {
	st, err := os.Stat(localSrc)
	if err != nil {
		return nil, err
	}

	if !recursive || !st.IsDir() {
		size, err := uploadOne(ctx, p, localSrc, dst, opts.Progress)
		if err != nil {
			return nil, err
		}
		return &Summary{Entries: 1, BytesTransferred: size}, nil
	}

	var files []string
	err = filepath.WalkDir(localSrc, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	dstPrefix := asPrefix(dst)
	total := int64(len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rel, err := filepath.Rel(localSrc, path)
		if err != nil {
			return summary, err
		}
		target := dstPrefix + filepath.ToSlash(rel)

		size, err := uploadOne(ctx, p, path, target, nil)
		if err != nil {
			return summary, err
		}

		summary.Entries++
		summary.BytesTransferred += size
		opts.Progress.emit(ProgressEvent{
			Operation:        "upload",
			BytesTransferred: summary.BytesTransferred,
			Percentage:       percentage(int64(i+1), total),
			CurrentFile:      target,
		})
	}
	return summary, nil
}

func downloadOne(ctx context.Context, p provider.Provider, src, localDst string) (int64, error) {
	body, _, err := p.Read(ctx, src, provider.ReadOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	if err := os.MkdirAll(filepath.Dir(localDst), 0o755); err != nil {
		return 0, err
	}

	// Write through a temp file so a failed download never leaves a
	// truncated object at the destination path.
	tmp, err := os.CreateTemp(filepath.Dir(localDst), ".omnistor-get-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	written, err := io.Copy(tmp, body)
	if err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, localDst); err != nil {
		return 0, err
	}
	return written, nil
}

func uploadOne(ctx context.Context, p provider.Provider, localSrc, dst string, progress ProgressFunc) (int64, error) {
	f, err := os.Open(localSrc)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}

	if err := Put(ctx, p, dst, f, st.Size(), provider.WriteOptions{Overwrite: true}, progress); err != nil {
		return 0, err
	}
	return st.Size(), nil
}
