package transfer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnistor/omnistor/pkg/provider/providertest"
	"github.com/omnistor/omnistor/pkg/transfer"
)

func TestDownloadSingle(t *testing.T) {
	f := providertest.New()
	f.Seed("docs/note.txt", []byte("hello"))
	dst := filepath.Join(t.TempDir(), "note.txt")

	sum, err := transfer.Download(context.Background(), f, "docs/note.txt", dst, false, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Entries)
	assert.Equal(t, int64(5), sum.BytesTransferred)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestDownloadRecursive(t *testing.T) {
	f := providertest.New()
	seedTree(f)
	dir := t.TempDir()

	sum, err := transfer.Download(context.Background(), f, "src", dir, true, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Entries)

	data, err := os.ReadFile(filepath.Join(dir, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bravo"), data)
}

func TestDownloadLeavesNoPartialFile(t *testing.T) {
	f := providertest.New()
	dst := filepath.Join(t.TempDir(), "missing.txt")

	_, err := transfer.Download(context.Background(), f, "docs/missing.txt", dst, false, transfer.Options{})
	require.Error(t, err)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadSingle(t *testing.T) {
	f := providertest.New()
	src := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b,c\n"), 0o644))

	sum, err := transfer.Upload(context.Background(), f, src, "imports/report.csv", false, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Entries)

	data, ok := f.Object("imports/report.csv")
	require.True(t, ok)
	assert.Equal(t, []byte("a,b,c\n"), data)
}

func TestUploadRecursive(t *testing.T) {
	f := providertest.New()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "deep.txt"), []byte("2"), 0o644))

	var events []transfer.ProgressEvent
	sum, err := transfer.Upload(context.Background(), f, dir, "backup", true, transfer.Options{
		Progress: func(ev transfer.ProgressEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Entries)

	_, ok := f.Object("backup/top.txt")
	assert.True(t, ok)
	_, ok = f.Object("backup/nested/deep.txt")
	assert.True(t, ok)

	require.Len(t, events, 2)
	assert.Equal(t, float64(100), events[1].Percentage)
}
