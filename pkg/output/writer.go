package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer emits JSONL records.
//
// Implementations must be safe for concurrent use; each record is
// written as one complete line.
type Writer interface {
	WriteEntry(e *EntryRecord) error
	WriteProgress(p *ProgressRecord) error
	WriteError(e *ErrorRecord) error
	WriteResult(r *ResultRecord) error
	WriteSummary(s *SummaryRecord) error
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON. Writes are
// serialized with a mutex so lines never interleave.
type JSONLWriter struct {
	w       io.Writer
	jobID   string
	backend string

	mu     sync.Mutex
	closed bool
}

// NewJSONLWriter creates a writer emitting to w, stamping every record
// with the job correlation ID and backend scheme.
func NewJSONLWriter(w io.Writer, jobID, backend string) *JSONLWriter {
	return &JSONLWriter{w: w, jobID: jobID, backend: backend}
}

func (jw *JSONLWriter) WriteEntry(e *EntryRecord) error       { return jw.write(TypeEntry, e) }
func (jw *JSONLWriter) WriteProgress(p *ProgressRecord) error { return jw.write(TypeProgress, p) }
func (jw *JSONLWriter) WriteError(e *ErrorRecord) error       { return jw.write(TypeError, e) }
func (jw *JSONLWriter) WriteResult(r *ResultRecord) error     { return jw.write(TypeResult, r) }
func (jw *JSONLWriter) WriteSummary(s *SummaryRecord) error   { return jw.write(TypeSummary, s) }

// Close marks the writer closed. The underlying writer is not closed;
// stdout is not ours to close.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

func (jw *JSONLWriter) write(typ string, data any) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return fmt.Errorf("output: writer is closed")
	}

	rec := Record{
		Type:    typ,
		Time:    time.Now().UTC(),
		JobID:   jw.jobID,
		Backend: jw.backend,
		Data:    data,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("output: marshal %s record: %w", typ, err)
	}
	line = append(line, '\n')
	if _, err := jw.w.Write(line); err != nil {
		return fmt.Errorf("output: write record: %w", err)
	}
	return nil
}
