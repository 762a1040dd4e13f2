package transfer

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"github.com/omnistor/omnistor/pkg/match"
	"github.com/omnistor/omnistor/pkg/provider"
)

// Options tunes recursive transfer behavior.
type Options struct {
	// Matcher optionally narrows which descendants are transferred.
	// Nil transfers everything under the source prefix.
	Matcher *match.Matcher

	// RateLimit caps backend requests per second during enumeration and
	// per-item operations. Zero means unlimited.
	RateLimit float64

	// Progress receives per-item events.
	Progress ProgressFunc
}

func (o Options) limiter() *rate.Limiter {
	if o.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(o.RateLimit), 1)
}

// Summary aggregates the outcome of one recursive transfer.
type Summary struct {
	Entries          int64
	BytesTransferred int64
}

// Copy copies src to dst on a single provider.
//
// recursive treats src as a prefix and copies every descendant,
// handling backend pagination transparently; otherwise a single object
// is copied. The per-object strategy is server-side copy when the
// provider declares CapServerSideCopy, else a generic read/write
// stream. A failure partway through stops this transfer and propagates;
// continuing with unrelated operations is the caller's decision.
func Copy(ctx context.Context, p provider.Provider, src, dst string, recursive bool, opts Options) (*Summary, error) {
	return run(ctx, p, src, dst, recursive, opts, "copy", false)
}

// Move is Copy followed by source deletion per item. Providers with an
// atomic rename (CapMove + Renamer) take that path for single entries.
func Move(ctx context.Context, p provider.Provider, src, dst string, recursive bool, opts Options) (*Summary, error) {
	if !recursive {
		if r, ok := p.(provider.Renamer); ok && p.Capabilities().Has(provider.CapMove) {
			if err := r.Rename(ctx, src, dst); err != nil {
				return nil, err
			}
			opts.Progress.emit(ProgressEvent{Operation: "move", Percentage: 100, CurrentFile: dst})
			return &Summary{Entries: 1}, nil
		}
	}
	return run(ctx, p, src, dst, recursive, opts, "move", true)
}

// DeleteTree removes the subtree under path (or the single entry when
// recursive is false), using the batched delete path where declared.
func DeleteTree(ctx context.Context, p provider.Provider, path string, recursive bool, opts Options) (*Summary, error) {
	if !recursive {
		if err := p.Delete(ctx, path, provider.DeleteOptions{}); err != nil {
			return nil, err
		}
		opts.Progress.emit(ProgressEvent{Operation: "delete", Percentage: 100, CurrentFile: path})
		return &Summary{Entries: 1}, nil
	}

	entries, err := Enumerate(ctx, p, asPrefix(path), opts)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, e.Path)
		}
	}
	if err := DeleteMany(ctx, p, paths, opts.Progress); err != nil {
		return nil, err
	}
	// Directory markers go last, children first.
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].IsDir() {
			if err := p.Delete(ctx, entries[i].Path, provider.DeleteOptions{MissingOK: true}); err != nil {
				return nil, err
			}
		}
	}
	_ = p.Delete(ctx, asPrefix(path), provider.DeleteOptions{MissingOK: true})
	return &Summary{Entries: int64(len(entries))}, nil
}

// Enumerate lists every descendant under prefix, following continuation
// tokens until the backend reports no more pages.
func Enumerate(ctx context.Context, p provider.Provider, prefix string, opts Options) ([]provider.Entry, error) {
	limiter := opts.limiter()

	var entries []provider.Entry
	var token string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		res, err := p.List(ctx, prefix, provider.ListOptions{
			Recursive:         true,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, e := range res.Entries {
			if opts.Matcher != nil && !e.IsDir() && !opts.Matcher.Match(e.Path) {
				continue
			}
			entries = append(entries, e)
		}
		if !res.IsTruncated || res.ContinuationToken == "" {
			return entries, nil
		}
		token = res.ContinuationToken
	}
}

func run(ctx context.Context, p provider.Provider, src, dst string, recursive bool, opts Options, op string, deleteSource bool) (*Summary, error) {
	limiter := opts.limiter()
	summary := &Summary{}

	if !recursive {
		size, err := transferOne(ctx, p, src, dst)
		if err != nil {
			return nil, err
		}
		if deleteSource {
			if err := p.Delete(ctx, src, provider.DeleteOptions{}); err != nil {
				return nil, err
			}
		}
		summary.Entries = 1
		summary.BytesTransferred = size
		opts.Progress.emit(ProgressEvent{
			Operation:        op,
			BytesTransferred: size,
			TotalBytes:       size,
			Percentage:       100,
			CurrentFile:      dst,
		})
		return summary, nil
	}

	srcPrefix := asPrefix(src)
	dstPrefix := asPrefix(dst)

	entries, err := Enumerate(ctx, p, srcPrefix, opts)
	if err != nil {
		return nil, err
	}

	total := int64(len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return summary, err
			}
		}

		target := dstPrefix + strings.TrimPrefix(e.Path, srcPrefix)
		if e.IsDir() {
			if err := p.Mkdir(ctx, target); err != nil && !provider.IsUnimplemented(err) {
				return summary, err
			}
		} else {
			size, err := transferOne(ctx, p, e.Path, target)
			if err != nil {
				return summary, err
			}
			summary.BytesTransferred += size
		}
		if deleteSource && !e.IsDir() {
			if err := p.Delete(ctx, e.Path, provider.DeleteOptions{}); err != nil {
				return summary, err
			}
		}

		summary.Entries++
		opts.Progress.emit(ProgressEvent{
			Operation:        op,
			BytesTransferred: summary.BytesTransferred,
			Percentage:       percentage(int64(i+1), total),
			CurrentFile:      e.Path,
		})
	}

	if deleteSource {
		// Source directory markers go last, children first, once every
		// object under them has moved.
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].IsDir() {
				if err := p.Delete(ctx, entries[i].Path, provider.DeleteOptions{MissingOK: true}); err != nil {
					return summary, err
				}
			}
		}
		if err := p.Delete(ctx, srcPrefix, provider.DeleteOptions{MissingOK: true}); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// transferOne copies a single object, preferring the provider's
// server-side primitive over streaming through the client.
func transferOne(ctx context.Context, p provider.Provider, src, dst string) (int64, error) {
	if sc, ok := p.(provider.ServerSideCopier); ok && p.Capabilities().Has(provider.CapServerSideCopy) {
		if err := sc.CopyObject(ctx, src, dst); err != nil {
			return 0, err
		}
		if meta, err := p.Stat(ctx, dst); err == nil {
			return meta.Size, nil
		}
		return 0, nil
	}

	body, size, err := p.Read(ctx, src, provider.ReadOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	if err := p.Write(ctx, dst, body, size, provider.WriteOptions{Overwrite: true}); err != nil {
		return 0, err
	}
	return size, nil
}

func asPrefix(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
