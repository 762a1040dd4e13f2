// Package transfer implements the bulk mechanics the provider contract
// leaves out: chunked uploads, batched deletes, and recursive copy/move
// built from the contract's single-object primitives.
//
// The generic strategies here are composed from List/Read/Write/Delete
// only. Accelerated paths (server-side copy, atomic rename) are
// selected when the provider declares the matching capability,
// otherwise the generic strategy runs.
package transfer

// ProgressEvent reports incremental transfer progress.
type ProgressEvent struct {
	// Operation names the transfer kind ("upload", "copy", "delete", ...).
	Operation string `json:"operation"`

	// BytesTransferred is the cumulative byte count, where known.
	BytesTransferred int64 `json:"bytes_transferred"`

	// TotalBytes is the expected total, zero when unknown.
	TotalBytes int64 `json:"total_bytes"`

	// Percentage is completion in [0,100].
	Percentage float64 `json:"percentage"`

	// CurrentFile is the path currently being processed.
	CurrentFile string `json:"current_file,omitempty"`
}

// ProgressFunc receives progress events. Callbacks run synchronously on
// the transfer goroutine; implementations must be fast and must not
// block.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(ev ProgressEvent) {
	if f != nil {
		f(ev)
	}
}

func percentage(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
