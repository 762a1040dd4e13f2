//go:build cloudintegration

package s3_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
	"github.com/omnistor/omnistor/test/cloudtest"
)

func TestS3Roundtrip(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p := cloudtest.Provider(t, ctx, bucket)

	body := []byte("hello omnistor")
	require.NoError(t, p.Write(ctx, "docs/hello.txt", bytes.NewReader(body), int64(len(body)), provider.WriteOptions{
		ContentType: "text/plain",
	}))

	entry, err := p.Stat(ctx, "docs/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), entry.Size)
	assert.Equal(t, provider.EntryFile, entry.Type)

	rc, size, err := p.Read(ctx, "docs/hello.txt", provider.ReadOptions{})
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, int64(len(body)), size)
}

func TestS3RangeRead(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p := cloudtest.Provider(t, ctx, bucket)

	body := []byte("0123456789")
	require.NoError(t, p.Write(ctx, "range.bin", bytes.NewReader(body), int64(len(body)), provider.WriteOptions{}))

	rc, _, err := p.Read(ctx, "range.bin", provider.ReadOptions{Offset: 2, Length: 4})
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), got)
}

func TestS3ListPagination(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p := cloudtest.Provider(t, ctx, bucket)

	for _, key := range []string{"pg/a.txt", "pg/b.txt", "pg/c.txt"} {
		require.NoError(t, p.Write(ctx, key, bytes.NewReader([]byte("x")), 1, provider.WriteOptions{}))
	}

	res, err := p.List(ctx, "pg", provider.ListOptions{Recursive: true, MaxEntries: 2})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	require.True(t, res.IsTruncated)

	res, err = p.List(ctx, "pg", provider.ListOptions{
		Recursive:         true,
		MaxEntries:        2,
		ContinuationToken: res.ContinuationToken,
	})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)
	assert.False(t, res.IsTruncated)
}

func TestS3MultipartUpload(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p := cloudtest.Provider(t, ctx, bucket)

	// Just over the threshold so the chunked path is taken.
	size := transfer.MultipartThreshold + 1024
	body := bytes.Repeat([]byte("m"), int(size))

	require.NoError(t, transfer.Put(ctx, p, "big/payload.bin", bytes.NewReader(body), size, provider.WriteOptions{}, nil))

	entry, err := p.Stat(ctx, "big/payload.bin")
	require.NoError(t, err)
	assert.Equal(t, size, entry.Size)
}

func TestS3BatchDelete(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p := cloudtest.Provider(t, ctx, bucket)

	keys := []string{"bd/a", "bd/b", "bd/c"}
	for _, key := range keys {
		require.NoError(t, p.Write(ctx, key, bytes.NewReader([]byte("x")), 1, provider.WriteOptions{}))
	}

	require.NoError(t, transfer.DeleteMany(ctx, p, keys, nil))

	res, err := p.List(ctx, "bd", provider.ListOptions{Recursive: true})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestS3NotFoundTaxonomy(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p := cloudtest.Provider(t, ctx, bucket)

	_, err := p.Stat(ctx, "missing/nope.txt")
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))

	var opErr *provider.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "s3", opErr.Backend)
	assert.Equal(t, bucket, opErr.Container)
}
