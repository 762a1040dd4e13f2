package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/omnistor/omnistor/pkg/executor"
	"github.com/omnistor/omnistor/pkg/plan"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/provider/providertest"
)

func TestExecuteAllSucceed(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("one"))
	f.Seed("b.txt", []byte("two"))

	ops := []plan.PendingOperation{
		plan.NewOperation(plan.OpCopy, "a.txt", "copies/a.txt", false),
		plan.NewOperation(plan.OpMove, "b.txt", "moved/b.txt", false),
		plan.NewOperation(plan.OpDelete, "copies/a.txt", "", false),
	}

	e := executor.New(f, zaptest.NewLogger(t))
	res, err := e.Execute(context.Background(), ops, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	assert.False(t, res.Cancelled)
	assert.Empty(t, res.Failures)
	assert.Equal(t, executor.StateCompleted, e.State())

	_, ok := f.Object("moved/b.txt")
	assert.True(t, ok)
	_, ok = f.Object("copies/a.txt")
	assert.False(t, ok)
}

func TestExecuteIsolatesFailures(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("one"))

	ops := []plan.PendingOperation{
		plan.NewOperation(plan.OpCopy, "a.txt", "out/first.txt", false),
		plan.NewOperation(plan.OpCopy, "ghost.txt", "out/second.txt", false),
		plan.NewOperation(plan.OpCopy, "a.txt", "out/third.txt", false),
	}

	e := executor.New(f, zaptest.NewLogger(t))
	res, err := e.Execute(context.Background(), ops, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.False(t, res.Cancelled)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, ops[1].ID, res.Failures[0].Operation.ID)
	assert.Equal(t, provider.StatusNotFound, res.Failures[0].Result.Status)
	assert.False(t, res.Failures[0].Result.OK())

	// The operation after the failure still ran.
	_, ok := f.Object("out/third.txt")
	assert.True(t, ok)
}

func TestExecuteReportsProgress(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("x"))
	f.Seed("b.txt", []byte("y"))

	ops := []plan.PendingOperation{
		plan.NewOperation(plan.OpCopy, "a.txt", "c/a.txt", false),
		plan.NewOperation(plan.OpCopy, "b.txt", "c/b.txt", false),
	}

	var events []executor.Progress
	e := executor.New(f, nil)
	_, err := e.Execute(context.Background(), ops, func(p executor.Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, 0, events[0].CurrentIndex)
	assert.InDelta(t, 0.5, events[0].OverallProgress, 0.001)
	assert.InDelta(t, 1.0, events[1].OverallProgress, 0.001)
	assert.Equal(t, "a.txt", events[0].CurrentFile)
}

func TestExecuteCancelledBeforeStart(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := executor.New(f, nil)
	res, err := e.Execute(ctx, []plan.PendingOperation{
		plan.NewOperation(plan.OpCopy, "a.txt", "b.txt", false),
	}, nil)
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, executor.StateCancelled, e.State())

	_, ok := f.Object("b.txt")
	assert.False(t, ok)
}

func TestExecuteCancelMidBatch(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("x"))
	f.Seed("b.txt", []byte("y"))
	f.Seed("c.txt", []byte("z"))

	ops := []plan.PendingOperation{
		plan.NewOperation(plan.OpCopy, "a.txt", "out/a.txt", false),
		plan.NewOperation(plan.OpCopy, "b.txt", "out/b.txt", false),
		plan.NewOperation(plan.OpCopy, "c.txt", "out/c.txt", false),
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := executor.New(f, nil)
	res, err := e.Execute(ctx, ops, func(p executor.Progress) {
		if p.CurrentIndex == 0 {
			cancel()
		}
	})
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, executor.StateCancelled, e.State())

	_, ok := f.Object("out/a.txt")
	assert.True(t, ok)
	_, ok = f.Object("out/c.txt")
	assert.False(t, ok, "operations after cancellation must not run")
}

func TestExecuteRejectsConcurrentRun(t *testing.T) {
	f := providertest.New()
	f.Seed("a.txt", []byte("x"))

	release := make(chan struct{})
	f.Fail = func(op, path string) error {
		if op == "CopyObject" {
			<-release
		}
		return nil
	}

	e := executor.New(f, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.Execute(context.Background(), []plan.PendingOperation{
			plan.NewOperation(plan.OpCopy, "a.txt", "b.txt", false),
		}, nil)
	}()

	require.Eventually(t, func() bool {
		return e.State() == executor.StateRunning
	}, time.Second, 5*time.Millisecond)

	_, err := e.Execute(context.Background(), nil, nil)
	require.Error(t, err)

	close(release)
	<-done
	assert.Equal(t, executor.StateCompleted, e.State())
}

func TestExecuteCreateOperations(t *testing.T) {
	f := providertest.New()

	dirOp := plan.NewOperation(plan.OpCreate, "", "projects/", false)
	dirOp.Entry = provider.NewEntry("projects/", provider.EntryDirectory, 0, time.Now())
	fileOp := plan.NewOperation(plan.OpCreate, "", "projects/readme.md", false)

	e := executor.New(f, nil)
	res, err := e.Execute(context.Background(), []plan.PendingOperation{dirOp, fileOp}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)

	assert.Equal(t, 1, f.CallCount("Mkdir"))
	data, ok := f.Object("projects/readme.md")
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestExecuteUnknownOperationType(t *testing.T) {
	f := providertest.New()

	e := executor.New(f, nil)
	res, err := e.Execute(context.Background(), []plan.PendingOperation{
		{ID: "x", Type: plan.OperationType("defragment")},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, provider.StatusError, res.Failures[0].Result.Status)
}
