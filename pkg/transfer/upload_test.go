package transfer_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/provider/providertest"
	"github.com/omnistor/omnistor/pkg/transfer"
)

func TestShouldUseMultipart(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"zero", 0, false},
		{"small", 1024, false},
		{"just under threshold", transfer.MultipartThreshold - 1, false},
		{"exactly at threshold", transfer.MultipartThreshold, false},
		{"one byte over", transfer.MultipartThreshold + 1, true},
		{"well over", 100 << 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transfer.ShouldUseMultipart(tt.size))
		})
	}
}

func TestPartCount(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want int
	}{
		{"zero", 0, 0},
		{"one byte", 1, 1},
		{"exactly one chunk", transfer.MultipartChunkSize, 1},
		{"one chunk plus a byte", transfer.MultipartChunkSize + 1, 2},
		{"six MiB", 6 << 20, 2},
		{"exactly two chunks", 2 * transfer.MultipartChunkSize, 2},
		{"twelve MiB", 12 << 20, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transfer.PartCount(tt.size))
		})
	}
}

func TestPutSmallUsesSingleWrite(t *testing.T) {
	f := providertest.New()
	data := bytes.Repeat([]byte("x"), 1024)

	var events []transfer.ProgressEvent
	err := transfer.Put(context.Background(), f, "docs/small.bin", bytes.NewReader(data), int64(len(data)), provider.WriteOptions{}, func(ev transfer.ProgressEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.CallCount("Write"))
	assert.Equal(t, 0, f.CallCount("CreateMultipartUpload"))

	stored, ok := f.Object("docs/small.bin")
	require.True(t, ok)
	assert.Equal(t, data, stored)

	require.Len(t, events, 1)
	assert.Equal(t, float64(100), events[0].Percentage)
}

func TestPutAtThresholdUsesSingleWrite(t *testing.T) {
	f := providertest.New()
	data := bytes.Repeat([]byte("y"), int(transfer.MultipartThreshold))

	err := transfer.Put(context.Background(), f, "docs/edge.bin", bytes.NewReader(data), int64(len(data)), provider.WriteOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, f.CallCount("Write"))
	assert.Equal(t, 0, f.CallCount("CreateMultipartUpload"))
}

func TestPutLargeUsesMultipart(t *testing.T) {
	f := providertest.New()
	data := bytes.Repeat([]byte("z"), 6<<20)

	var events []transfer.ProgressEvent
	err := transfer.Put(context.Background(), f, "media/large.bin", bytes.NewReader(data), int64(len(data)), provider.WriteOptions{}, func(ev transfer.ProgressEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.CallCount("Write"))
	assert.Equal(t, 1, f.CallCount("CreateMultipartUpload"))
	assert.Equal(t, 2, f.CallCount("UploadPart"))
	assert.Equal(t, 1, f.CallCount("CompleteMultipartUpload"))
	assert.Equal(t, 0, f.CallCount("AbortMultipartUpload"))
	assert.Equal(t, 0, f.OpenUploads())

	// Reassembled object matches the original bytes.
	stored, ok := f.Object("media/large.bin")
	require.True(t, ok)
	assert.Equal(t, data, stored)

	// One event per part, cumulative, ending at 100%.
	require.Len(t, events, 2)
	assert.Equal(t, transfer.MultipartChunkSize, events[0].BytesTransferred)
	assert.Equal(t, int64(len(data)), events[1].BytesTransferred)
	assert.Equal(t, float64(100), events[1].Percentage)
}

func TestPutMultipartPartNumbering(t *testing.T) {
	f := providertest.New()
	data := bytes.Repeat([]byte("p"), 12<<20)

	err := transfer.Put(context.Background(), f, "media/huge.bin", bytes.NewReader(data), int64(len(data)), provider.WriteOptions{}, nil)
	require.NoError(t, err)

	// Parts are uploaded strictly in order, 1-based, and the final part
	// carries the remainder.
	var partCalls []string
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, "UploadPart ") {
			partCalls = append(partCalls, c)
		}
	}
	require.Len(t, partCalls, 3)
	for i, c := range partCalls {
		assert.Contains(t, c, fmt.Sprintf("part=%d", i+1))
	}
	assert.Contains(t, partCalls[2], fmt.Sprintf("size=%d", (12<<20)-2*transfer.MultipartChunkSize))

	// Finalize happens after every part.
	calls := f.Calls()
	assert.Equal(t, "CompleteMultipartUpload media/huge.bin", calls[len(calls)-1])
}

func TestPutMultipartAbortsOnPartFailure(t *testing.T) {
	f := providertest.New()
	f.Fail = func(op, path string) error {
		if op == "UploadPart" && strings.Contains(path, "part=2") {
			return &provider.OpError{Op: "UploadPart", Backend: "fake", Path: path, Err: provider.ErrConnectionFailed}
		}
		return nil
	}
	data := bytes.Repeat([]byte("q"), 12<<20)

	err := transfer.Put(context.Background(), f, "media/broken.bin", bytes.NewReader(data), int64(len(data)), provider.WriteOptions{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrConnectionFailed)

	// Exactly one abort, no finalize, no dangling session, no object.
	assert.Equal(t, 1, f.CallCount("AbortMultipartUpload"))
	assert.Equal(t, 0, f.CallCount("CompleteMultipartUpload"))
	assert.Equal(t, 0, f.OpenUploads())
	_, ok := f.Object("media/broken.bin")
	assert.False(t, ok)
}

func TestPutLargeWithoutMultipartCapabilityFallsBack(t *testing.T) {
	// A provider that cannot do chunked uploads takes the simple path
	// even over the threshold.
	f := providertest.New(provider.CapList, provider.CapRead, provider.CapWrite, provider.CapDelete)
	data := bytes.Repeat([]byte("r"), 6<<20)

	err := transfer.Put(context.Background(), f, "media/plain.bin", bytes.NewReader(data), int64(len(data)), provider.WriteOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, f.CallCount("Write"))
	assert.Equal(t, 0, f.CallCount("CreateMultipartUpload"))
}
