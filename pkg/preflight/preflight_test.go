package preflight_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnistor/omnistor/pkg/preflight"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/provider/providertest"
)

func TestRunPlanOnlySkipsAllChecks(t *testing.T) {
	f := providertest.New()

	rec, err := preflight.Run(context.Background(), f, "", preflight.Spec{Mode: preflight.ModePlanOnly})
	require.NoError(t, err)
	assert.Empty(t, rec.Results)
	assert.True(t, rec.Allowed())
	assert.Empty(t, f.Calls())
}

func TestRunReadSafe(t *testing.T) {
	f := providertest.New()
	f.Seed("data/a.txt", []byte("alpha"))

	rec, err := preflight.Run(context.Background(), f, "data", preflight.Spec{Mode: preflight.ModeReadSafe})
	require.NoError(t, err)
	require.Len(t, rec.Results, 2)
	assert.Equal(t, preflight.CheckList, rec.Results[0].Check)
	assert.Equal(t, preflight.CheckRead, rec.Results[1].Check)
	assert.True(t, rec.Allowed())

	// Read-safe never writes.
	assert.Zero(t, f.CallCount("Write"))
	assert.Zero(t, f.CallCount("Delete"))
}

func TestRunReadSafeEmptyPrefixPassesVacuously(t *testing.T) {
	f := providertest.New()

	rec, err := preflight.Run(context.Background(), f, "empty", preflight.Spec{Mode: preflight.ModeReadSafe})
	require.NoError(t, err)
	assert.True(t, rec.Allowed())
	require.Len(t, rec.Results, 2)
	assert.Equal(t, "skipped", rec.Results[1].Method)
}

func TestRunWriteProbePutDelete(t *testing.T) {
	f := providertest.New()
	f.Seed("data/a.txt", []byte("alpha"))

	rec, err := preflight.Run(context.Background(), f, "data", preflight.Spec{
		Mode:          preflight.ModeWriteProbe,
		ProbeStrategy: preflight.ProbePutDelete,
	})
	require.NoError(t, err)
	assert.True(t, rec.Allowed())
	require.Len(t, rec.Results, 4)
	assert.Equal(t, preflight.CheckWrite, rec.Results[2].Check)
	assert.Equal(t, preflight.CheckDelete, rec.Results[3].Check)

	// Probe object is cleaned up.
	for _, path := range f.Paths() {
		assert.False(t, strings.HasPrefix(path, ".omnistor-preflight/"), "probe object %s left behind", path)
	}
}

func TestRunWriteProbeMultipartAbort(t *testing.T) {
	f := providertest.New()

	rec, err := preflight.Run(context.Background(), f, "", preflight.Spec{
		Mode:          preflight.ModeWriteProbe,
		ProbeStrategy: preflight.ProbeMultipartAbort,
	})
	require.NoError(t, err)
	assert.True(t, rec.Allowed())
	assert.Equal(t, 1, f.CallCount("CreateMultipartUpload"))
	assert.Equal(t, 1, f.CallCount("AbortMultipartUpload"))
	assert.Zero(t, f.CallCount("Write"))
	assert.Zero(t, f.OpenUploads())
}

func TestRunWriteProbeFallsBackWithoutMultipart(t *testing.T) {
	f := providertest.New(provider.CapList, provider.CapRead, provider.CapWrite, provider.CapDelete)

	rec, err := preflight.Run(context.Background(), f, "", preflight.Spec{
		Mode:          preflight.ModeWriteProbe,
		ProbeStrategy: preflight.ProbeMultipartAbort,
	})
	require.NoError(t, err)
	assert.True(t, rec.Allowed())
	assert.Zero(t, f.CallCount("CreateMultipartUpload"))
	assert.Equal(t, 1, f.CallCount("Write"))
	assert.Equal(t, 1, f.CallCount("Delete"))
}

func TestRunReportsDeniedList(t *testing.T) {
	f := providertest.New()
	f.Fail = func(op, path string) error {
		if op == "List" {
			return provider.ErrPermissionDenied
		}
		return nil
	}

	rec, err := preflight.Run(context.Background(), f, "locked", preflight.Spec{Mode: preflight.ModeReadSafe})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrPermissionDenied)
	assert.False(t, rec.Allowed())
	require.Len(t, rec.Results, 1)
	assert.Equal(t, preflight.CheckList, rec.Results[0].Check)
	assert.Equal(t, provider.StatusPermissionDenied, rec.Results[0].Status)
}

func TestRunStopsAfterFailedWrite(t *testing.T) {
	f := providertest.New(provider.CapList, provider.CapRead, provider.CapWrite, provider.CapDelete)
	f.Fail = func(op, path string) error {
		if op == "Write" {
			return provider.ErrPermissionDenied
		}
		return nil
	}

	rec, err := preflight.Run(context.Background(), f, "", preflight.Spec{
		Mode:          preflight.ModeWriteProbe,
		ProbeStrategy: preflight.ProbePutDelete,
	})
	require.Error(t, err)
	assert.False(t, rec.Allowed())
	assert.Zero(t, f.CallCount("Delete"))
}
