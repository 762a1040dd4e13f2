// Package executor runs ordered batches of pending operations against
// a provider, with progress reporting and cooperative cancellation.
//
// Operations run strictly sequentially. That trades throughput for
// deterministic progress ordering and race-free cancellation, which is
// what a confirmation UI needs. Individual failures are isolated: one
// bad object does not abort the batch.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/omnistor/omnistor/pkg/plan"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

// State tracks one executor's lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Progress reports batch progress after each operation.
type Progress struct {
	// OverallProgress is completion in [0,1] over the batch.
	OverallProgress float64 `json:"overall_progress"`

	// Description names the operation just processed.
	Description string `json:"description"`

	// CurrentFile is the path the operation touched.
	CurrentFile string `json:"current_file"`

	// CurrentIndex is the zero-based index of the operation.
	CurrentIndex int `json:"current_index"`
}

// ProgressFunc receives batch progress events.
type ProgressFunc func(Progress)

// Result is the outcome of one execute call.
type Result struct {
	SuccessCount int  `json:"success_count"`
	FailureCount int  `json:"failure_count"`
	Cancelled    bool `json:"cancelled"`

	// Failures carries the per-operation outcomes for everything that
	// did not succeed.
	Failures []Failure `json:"failures,omitempty"`

	// Err is set only for batch-level failures (e.g. executor reuse),
	// never for isolated per-operation errors.
	Err error `json:"-"`
}

// Failure records one isolated operation failure.
type Failure struct {
	Operation plan.PendingOperation      `json:"operation"`
	Result    provider.Result[struct{}] `json:"result"`
}

// Executor runs batches against one provider. Only one run may be in
// flight per instance; a finished executor returns to reuse via a fresh
// execute call.
type Executor struct {
	p      provider.Provider
	logger *zap.Logger

	mu    sync.Mutex
	state State

	opts transfer.Options
}

// New creates an executor for the given provider.
// A nil logger disables logging.
func New(p provider.Provider, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{p: p, logger: logger, state: StateIdle}
}

// WithTransferOptions sets matcher/rate-limit options passed through to
// the transfer layer. Returns the executor for chaining.
func (e *Executor) WithTransferOptions(opts transfer.Options) *Executor {
	e.opts = opts
	return e
}

// State returns the executor's current lifecycle state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Execute runs the operations in order.
//
// The cancellation signal is ctx: it is checked before each operation
// and passed into every underlying call. On cancellation the batch
// stops, Cancelled is set, and counts accumulated so far are returned.
// Per-operation failures increment FailureCount and the batch
// continues.
func (e *Executor) Execute(ctx context.Context, operations []plan.PendingOperation, progress ProgressFunc) (*Result, error) {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return nil, fmt.Errorf("executor: a run is already in flight")
	}
	e.state = StateRunning
	e.mu.Unlock()

	res := &Result{}
	total := len(operations)

	for i, op := range operations {
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			break
		}

		if err := e.dispatch(ctx, op); err != nil {
			if provider.IsCancelled(err) {
				res.Cancelled = true
				break
			}
			e.logger.Warn("operation failed",
				zap.String("op_id", op.ID),
				zap.String("type", string(op.Type)),
				zap.String("source", op.Source),
				zap.String("destination", op.Destination),
				zap.Error(err))
			res.FailureCount++
			res.Failures = append(res.Failures, Failure{
				Operation: op,
				Result:    provider.Fail[struct{}](err),
			})
		} else {
			res.SuccessCount++
		}

		if progress != nil {
			progress(Progress{
				OverallProgress: float64(i+1) / float64(total),
				Description:     describe(op),
				CurrentFile:     currentFile(op),
				CurrentIndex:    i,
			})
		}
	}

	e.mu.Lock()
	if res.Cancelled {
		e.state = StateCancelled
	} else {
		e.state = StateCompleted
	}
	e.mu.Unlock()

	return res, nil
}

// dispatch routes one pending operation to the matching contract or
// transfer primitive.
func (e *Executor) dispatch(ctx context.Context, op plan.PendingOperation) error {
	opts := e.opts

	switch op.Type {
	case plan.OpCreate:
		if op.Recursive || op.Entry.IsDir() {
			return e.p.Mkdir(ctx, op.Destination)
		}
		return e.p.Write(ctx, op.Destination, bytes.NewReader(nil), 0, provider.WriteOptions{})

	case plan.OpDelete:
		_, err := transfer.DeleteTree(ctx, e.p, op.Source, op.Recursive, opts)
		return err

	case plan.OpMove, plan.OpRename:
		_, err := transfer.Move(ctx, e.p, op.Source, op.Destination, op.Recursive, opts)
		return err

	case plan.OpCopy:
		_, err := transfer.Copy(ctx, e.p, op.Source, op.Destination, op.Recursive, opts)
		return err

	case plan.OpDownload:
		_, err := transfer.Download(ctx, e.p, op.Source, op.Destination, op.Recursive, opts)
		return err

	case plan.OpUpload:
		_, err := transfer.Upload(ctx, e.p, op.Source, op.Destination, op.Recursive, opts)
		return err

	default:
		return fmt.Errorf("executor: unknown operation type %q", op.Type)
	}
}

func describe(op plan.PendingOperation) string {
	switch op.Type {
	case plan.OpCreate:
		return "create " + op.Destination
	case plan.OpDelete:
		return "delete " + op.Source
	case plan.OpMove, plan.OpRename:
		return fmt.Sprintf("move %s -> %s", op.Source, op.Destination)
	case plan.OpCopy:
		return fmt.Sprintf("copy %s -> %s", op.Source, op.Destination)
	case plan.OpDownload:
		return "download " + op.Source
	case plan.OpUpload:
		return "upload " + op.Source
	default:
		return string(op.Type)
	}
}

func currentFile(op plan.PendingOperation) string {
	if op.Source != "" {
		return op.Source
	}
	return op.Destination
}
