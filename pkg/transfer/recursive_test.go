package transfer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnistor/omnistor/pkg/match"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/provider/providertest"
	"github.com/omnistor/omnistor/pkg/transfer"
)

func seedTree(f *providertest.Fake) {
	f.Seed("src/a.txt", []byte("alpha"))
	f.SeedDir("src/sub/")
	f.Seed("src/sub/b.txt", []byte("bravo"))
	f.Seed("src/sub/c.log", []byte("charlie"))
}

func TestCopySingleObject(t *testing.T) {
	f := providertest.New()
	f.Seed("docs/report.pdf", []byte("pdf-bytes"))

	sum, err := transfer.Copy(context.Background(), f, "docs/report.pdf", "archive/report.pdf", false, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Entries)

	data, ok := f.Object("archive/report.pdf")
	require.True(t, ok)
	assert.Equal(t, []byte("pdf-bytes"), data)

	// Source is untouched.
	_, ok = f.Object("docs/report.pdf")
	assert.True(t, ok)
}

func TestCopyPrefersServerSideCopy(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("x"))

	_, err := transfer.Copy(context.Background(), f, "a.txt", "b.txt", false, transfer.Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.CallCount("CopyObject"))
	assert.Equal(t, 0, f.CallCount("Read"))
}

func TestCopyGenericStreamWithoutCapability(t *testing.T) {
	f := providertest.New(provider.CapList, provider.CapRead, provider.CapWrite, provider.CapDelete, provider.CapCopy)
	f.Seed("a.txt", []byte("stream-me"))

	_, err := transfer.Copy(context.Background(), f, "a.txt", "b.txt", false, transfer.Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, f.CallCount("CopyObject"))
	assert.Equal(t, 1, f.CallCount("Read"))
	assert.Equal(t, 1, f.CallCount("Write"))

	data, ok := f.Object("b.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("stream-me"), data)
}

func TestCopyRecursive(t *testing.T) {
	f := providertest.New()
	seedTree(f)

	var events []transfer.ProgressEvent
	sum, err := transfer.Copy(context.Background(), f, "src", "dst", true, transfer.Options{
		Progress: func(ev transfer.ProgressEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Entries)

	for _, want := range []string{"dst/a.txt", "dst/sub/b.txt", "dst/sub/c.log"} {
		_, ok := f.Object(want)
		assert.True(t, ok, "expected %s to exist", want)
	}
	// Originals survive a copy.
	_, ok := f.Object("src/a.txt")
	assert.True(t, ok)

	require.NotEmpty(t, events)
	assert.Equal(t, float64(100), events[len(events)-1].Percentage)
}

func TestCopyRecursiveFollowsPagination(t *testing.T) {
	f := providertest.New()
	f.PageSize = 2
	seedTree(f)

	sum, err := transfer.Copy(context.Background(), f, "src", "dst", true, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Entries)

	// Four entries at two per page means at least two List calls.
	assert.GreaterOrEqual(t, f.CallCount("List"), 2)

	_, ok := f.Object("dst/sub/c.log")
	assert.True(t, ok)
}

func TestCopyRecursiveWithMatcher(t *testing.T) {
	f := providertest.New()
	seedTree(f)

	m, err := match.New(match.Config{Includes: []string{"**/*.txt"}})
	require.NoError(t, err)

	_, err = transfer.Copy(context.Background(), f, "src", "dst", true, transfer.Options{Matcher: m})
	require.NoError(t, err)

	_, ok := f.Object("dst/sub/b.txt")
	assert.True(t, ok)
	_, ok = f.Object("dst/sub/c.log")
	assert.False(t, ok, "excluded file must not be copied")
}

func TestMoveSingleUsesRename(t *testing.T) {
	f := providertest.New()
	f.Seed("old/name.txt", []byte("payload"))

	sum, err := transfer.Move(context.Background(), f, "old/name.txt", "new/name.txt", false, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Entries)

	assert.Equal(t, 1, f.CallCount("Rename"))
	assert.Equal(t, 0, f.CallCount("CopyObject"))

	_, ok := f.Object("old/name.txt")
	assert.False(t, ok)
	data, ok := f.Object("new/name.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), data)
}

func TestMoveSingleWithoutRenameCopiesThenDeletes(t *testing.T) {
	f := providertest.New(
		provider.CapList, provider.CapRead, provider.CapWrite,
		provider.CapDelete, provider.CapCopy, provider.CapServerSideCopy,
	)
	f.Seed("a.txt", []byte("x"))

	_, err := transfer.Move(context.Background(), f, "a.txt", "b.txt", false, transfer.Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, f.CallCount("Rename"))
	assert.Equal(t, 1, f.CallCount("CopyObject"))
	assert.Equal(t, 1, f.CallCount("Delete"))

	_, ok := f.Object("a.txt")
	assert.False(t, ok)
	_, ok = f.Object("b.txt")
	assert.True(t, ok)
}

func TestMoveRecursiveDeletesSources(t *testing.T) {
	f := providertest.New()
	seedTree(f)

	_, err := transfer.Move(context.Background(), f, "src", "dst", true, transfer.Options{})
	require.NoError(t, err)

	for _, want := range []string{"dst/a.txt", "dst/sub/b.txt", "dst/sub/c.log"} {
		_, ok := f.Object(want)
		assert.True(t, ok, "expected %s to exist", want)
	}
	for _, gone := range []string{"src/a.txt", "src/sub/b.txt", "src/sub/c.log"} {
		_, ok := f.Object(gone)
		assert.False(t, ok, "expected %s to be deleted", gone)
	}

	// Directory markers must go too: the whole source prefix is empty.
	left, err := transfer.Enumerate(context.Background(), f, "src/", transfer.Options{})
	require.NoError(t, err)
	assert.Empty(t, left)
	for _, path := range f.Paths() {
		assert.False(t, strings.HasPrefix(path, "src"), "source residue %s left behind", path)
	}
}

func TestDeleteTreeSingle(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("x"))

	sum, err := transfer.DeleteTree(context.Background(), f, "a.txt", false, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Entries)
	assert.Empty(t, f.Paths())
}

func TestDeleteTreeRecursive(t *testing.T) {
	f := providertest.New()
	seedTree(f)

	sum, err := transfer.DeleteTree(context.Background(), f, "src", true, transfer.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Entries)
	assert.Empty(t, f.Paths())
}

func TestDeleteTreeMissingSingle(t *testing.T) {
	f := providertest.New()

	_, err := transfer.DeleteTree(context.Background(), f, "nope.txt", false, transfer.Options{})
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestEnumerateCancellation(t *testing.T) {
	f := providertest.New()
	f.PageSize = 1
	seedTree(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transfer.Enumerate(ctx, f, "src/", transfer.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
