package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxLineBytes caps the size of one record line.
const DefaultMaxLineBytes = 1 << 20

// DecodedRecord is one parsed record line. Data stays raw so callers
// can decode it into the payload type named by Type.
type DecodedRecord struct {
	Record
	Raw json.RawMessage
}

// Decoder reads a JSONL record stream produced by a Writer. Blank lines
// end the stream; a line over the byte limit is an error rather than a
// truncated record.
type Decoder struct {
	r            *bufio.Reader
	maxLineBytes int
}

// NewDecoder wraps r for record-at-a-time reading.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), maxLineBytes: DefaultMaxLineBytes}
}

// SetMaxLineBytes overrides the per-line size limit. Non-positive
// restores the default.
func (d *Decoder) SetMaxLineBytes(n int) {
	if n <= 0 {
		d.maxLineBytes = DefaultMaxLineBytes
		return
	}
	d.maxLineBytes = n
}

// Next returns the next record, or io.EOF when the stream ends.
func (d *Decoder) Next() (*DecodedRecord, error) {
	line, err := readLineLimited(d.r, d.maxLineBytes)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, io.EOF
	}

	var env struct {
		Record
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}
	rec := &DecodedRecord{Record: env.Record, Raw: env.Data}
	rec.Data = env.Data
	return rec, nil
}

// Payload decodes rec.Raw into v after checking the record type.
func Payload(rec *DecodedRecord, wantType string, v any) error {
	if rec.Type != wantType {
		return fmt.Errorf("record type %q, want %q", rec.Type, wantType)
	}
	return json.Unmarshal(rec.Raw, v)
}

func readLineLimited(r *bufio.Reader, maxBytes int) ([]byte, error) {
	var out []byte
	for {
		frag, err := r.ReadSlice('\n')
		out = append(out, frag...)
		if len(out) > maxBytes {
			return nil, errors.New("jsonl line exceeds max bytes")
		}
		if err == nil {
			return bytes.TrimSuffix(out, []byte("\n")), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(out) == 0 {
				return nil, io.EOF
			}
			return out, nil
		}
		return nil, err
	}
}
