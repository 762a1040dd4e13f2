package transfer

import (
	"context"

	"github.com/omnistor/omnistor/pkg/provider"
)

// DeleteBatchSize is the number of keys sent per batch-delete call.
// Matches the S3 DeleteObjects limit.
const DeleteBatchSize = 1000

// BatchCount returns ceil(keys / DeleteBatchSize).
func BatchCount(keys int) int {
	if keys <= 0 {
		return 0
	}
	return (keys + DeleteBatchSize - 1) / DeleteBatchSize
}

// DeleteMany removes a flat list of paths.
//
// When the provider declares CapBatchDelete the list is partitioned
// into fixed-size batches with one backend call each; otherwise paths
// are deleted one at a time. Cumulative progress is reported after each
// batch as min(processed, total)/total.
func DeleteMany(ctx context.Context, p provider.Provider, paths []string, progress ProgressFunc) error {
	total := int64(len(paths))
	if total == 0 {
		return nil
	}

	bd, ok := p.(provider.BatchDeleter)
	if ok && p.Capabilities().Has(provider.CapBatchDelete) {
		return deleteBatched(ctx, bd, paths, total, progress)
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Delete(ctx, path, provider.DeleteOptions{MissingOK: true}); err != nil {
			return err
		}
		emitDeleteProgress(progress, int64(i+1), total, path)
	}
	return nil
}

func deleteBatched(ctx context.Context, bd provider.BatchDeleter, paths []string, total int64, progress ProgressFunc) error {
	for start := 0; start < len(paths); start += DeleteBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + DeleteBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]
		if err := bd.DeleteBatch(ctx, batch); err != nil {
			return err
		}

		processed := int64(start + DeleteBatchSize)
		if processed > total {
			processed = total
		}
		emitDeleteProgress(progress, processed, total, batch[len(batch)-1])
	}
	return nil
}

func emitDeleteProgress(progress ProgressFunc, processed, total int64, current string) {
	progress.emit(ProgressEvent{
		Operation:   "delete",
		Percentage:  percentage(processed, total),
		CurrentFile: current,
	})
}
