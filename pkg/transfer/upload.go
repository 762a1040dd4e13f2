package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/omnistor/omnistor/pkg/provider"
)

const (
	// MultipartThreshold is the payload size above which uploads switch
	// to a chunked multipart session. Sizes equal to the threshold take
	// the simple single-call path.
	MultipartThreshold int64 = 5 << 20 // 5 MiB

	// MultipartChunkSize is the size of each uploaded part. The final
	// part carries the remainder.
	MultipartChunkSize int64 = 5 << 20 // 5 MiB
)

// ShouldUseMultipart reports whether a payload of the given size goes
// through the chunked path. Strictly greater-than: a payload exactly at
// the threshold uses the simple path.
func ShouldUseMultipart(size int64) bool {
	return size > MultipartThreshold
}

// Put writes an object, choosing between a single Write call and a
// chunked multipart session by payload size and provider capability.
//
// size must be the exact content length. Progress is reported after
// each uploaded part (or once, for the simple path).
func Put(ctx context.Context, p provider.Provider, path string, body io.Reader, size int64, opts provider.WriteOptions, progress ProgressFunc) error {
	mp, ok := p.(provider.MultipartUploader)
	if ShouldUseMultipart(size) && ok && p.Capabilities().Has(provider.CapUpload) {
		return putMultipart(ctx, mp, path, body, size, opts, progress)
	}

	if err := p.Write(ctx, path, body, size, opts); err != nil {
		return err
	}
	progress.emit(ProgressEvent{
		Operation:        "upload",
		BytesTransferred: size,
		TotalBytes:       size,
		Percentage:       100,
		CurrentFile:      path,
	})
	return nil
}

// PartCount returns ceil(size / MultipartChunkSize).
func PartCount(size int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + MultipartChunkSize - 1) / MultipartChunkSize)
}

// putMultipart runs one chunked upload session: open, upload ordered
// 1-based parts sequentially capturing each part's integrity token,
// then finalize with the ordered token list. Any part failure aborts
// the session best-effort and re-raises the original error.
func putMultipart(ctx context.Context, mp provider.MultipartUploader, path string, body io.Reader, size int64, opts provider.WriteOptions, progress ProgressFunc) error {
	uploadID, err := mp.CreateMultipartUpload(ctx, path, opts)
	if err != nil {
		return err
	}

	numParts := PartCount(size)
	parts := make([]provider.CompletedPart, 0, numParts)

	var sent int64
	for partNum := int32(1); int(partNum) <= numParts; partNum++ {
		partSize := MultipartChunkSize
		if remaining := size - sent; remaining < partSize {
			partSize = remaining
		}

		etag, err := mp.UploadPart(ctx, path, uploadID, partNum, io.LimitReader(body, partSize), partSize)
		if err != nil {
			// Abort is best-effort; the part failure is what the caller
			// needs to see.
			_ = mp.AbortMultipartUpload(ctx, path, uploadID)
			return fmt.Errorf("upload part %d of %s: %w", partNum, path, err)
		}
		parts = append(parts, provider.CompletedPart{PartNumber: partNum, ETag: etag})

		sent += partSize
		progress.emit(ProgressEvent{
			Operation:        "upload",
			BytesTransferred: sent,
			TotalBytes:       size,
			Percentage:       percentage(sent, size),
			CurrentFile:      path,
		})
	}

	if err := mp.CompleteMultipartUpload(ctx, path, uploadID, parts); err != nil {
		_ = mp.AbortMultipartUpload(ctx, path, uploadID)
		return err
	}
	return nil
}
