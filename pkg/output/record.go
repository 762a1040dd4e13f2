// Package output emits newline-delimited JSON records for CLI
// consumers. Data records go to stdout; logs stay on stderr, so the
// stream can be piped into jq or another tool without filtering.
package output

import (
	"time"

	"github.com/omnistor/omnistor/pkg/executor"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

// Record types. Each record line carries one of these in its "type"
// field so consumers can demultiplex the stream.
const (
	TypeEntry    = "omnistor.entry.v1"
	TypeProgress = "omnistor.progress.v1"
	TypeError    = "omnistor.error.v1"
	TypeResult   = "omnistor.result.v1"
	TypeSummary  = "omnistor.summary.v1"
)

// Record is the envelope for every emitted line.
type Record struct {
	// Type identifies the payload shape.
	Type string `json:"type"`

	// Time is the emission timestamp.
	Time time.Time `json:"time"`

	// JobID correlates all records of one command invocation.
	JobID string `json:"job_id,omitempty"`

	// Backend is the backend scheme the command ran against.
	Backend string `json:"backend,omitempty"`

	// Data is the typed payload.
	Data any `json:"data"`
}

// EntryRecord is one listed or statted entry.
type EntryRecord struct {
	Entry provider.Entry `json:"entry"`
}

// ProgressRecord reports incremental transfer progress.
type ProgressRecord struct {
	Event transfer.ProgressEvent `json:"event"`
}

// ErrorRecord reports a failure with its canonical status code.
type ErrorRecord struct {
	Status  provider.Status `json:"status"`
	Message string          `json:"message"`
	Path    string          `json:"path,omitempty"`
}

// ResultRecord is the outcome envelope for one operation or batch,
// rendered through the generic result type.
type ResultRecord struct {
	Result provider.Result[executor.Result] `json:"result"`
}

// SummaryRecord closes a transfer stream with aggregate counts.
type SummaryRecord struct {
	Operation        string `json:"operation"`
	Entries          int64  `json:"entries"`
	BytesTransferred int64  `json:"bytes_transferred"`
	DurationMS       int64  `json:"duration_ms"`
}
