package output_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnistor/omnistor/pkg/output"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

func TestDecoderRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "job-42", "s3")
	require.NoError(t, w.WriteEntry(&output.EntryRecord{Entry: provider.Entry{
		Path: "docs/a.txt",
		Type: provider.EntryFile,
		Size: 5,
	}}))
	require.NoError(t, w.WriteProgress(&output.ProgressRecord{Event: transfer.ProgressEvent{
		Operation:  "copy",
		Percentage: 50,
	}}))
	require.NoError(t, w.Close())

	d := output.NewDecoder(&buf)

	rec, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeEntry, rec.Type)
	assert.Equal(t, "job-42", rec.JobID)
	assert.Equal(t, "s3", rec.Backend)

	var entry output.EntryRecord
	require.NoError(t, output.Payload(rec, output.TypeEntry, &entry))
	assert.Equal(t, "docs/a.txt", entry.Entry.Path)
	assert.Equal(t, int64(5), entry.Entry.Size)

	rec, err = d.Next()
	require.NoError(t, err)
	var prog output.ProgressRecord
	require.NoError(t, output.Payload(rec, output.TypeProgress, &prog))
	assert.Equal(t, "copy", prog.Event.Operation)
	assert.Equal(t, 50.0, prog.Event.Percentage)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderPayloadTypeMismatch(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "job", "fake")
	require.NoError(t, w.WriteSummary(&output.SummaryRecord{Operation: "rm", Entries: 3}))

	rec, err := output.NewDecoder(&buf).Next()
	require.NoError(t, err)

	var entry output.EntryRecord
	err = output.Payload(rec, output.TypeEntry, &entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), output.TypeSummary)
}

func TestDecoderRejectsOversizedLine(t *testing.T) {
	line := `{"type":"omnistor.entry.v1","data":{"pad":"` + strings.Repeat("x", 256) + `"}}` + "\n"
	d := output.NewDecoder(strings.NewReader(line))
	d.SetMaxLineBytes(64)

	_, err := d.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max bytes")
}

func TestDecoderStopsAtBlankLine(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "job", "fake")
	require.NoError(t, w.WriteSummary(&output.SummaryRecord{Operation: "ls"}))
	buf.WriteString("\n")
	w2 := output.NewJSONLWriter(&buf, "job", "fake")
	require.NoError(t, w2.WriteSummary(&output.SummaryRecord{Operation: "ignored"}))

	d := output.NewDecoder(&buf)
	_, err := d.Next()
	require.NoError(t, err)
	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}
