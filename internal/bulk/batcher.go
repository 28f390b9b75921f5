// Package bulk batches document writes into size-bounded bulk operations.
package bulk

import (
	"context"

	"rethinkriver/internal/target"
)

// DefaultBatchSize is the number of operations per bulk request.
const DefaultBatchSize = 1000

// Batcher accumulates upserts and deletes against one (index, type) pair
// and flushes them as a single bulk write. Item failures are reported in
// the flush result, never retried here; retry policy belongs to the caller.
type Batcher struct {
	sink  target.Indexer
	index string
	typ   string
	size  int

	ops []target.BulkOp
}

// NewBatcher creates a batcher flushing through sink. A size of zero or
// less falls back to DefaultBatchSize.
func NewBatcher(sink target.Indexer, index, typ string, size int) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{
		sink:  sink,
		index: index,
		typ:   typ,
		size:  size,
		ops:   make([]target.BulkOp, 0, size),
	}
}

// AddUpsert appends a document write to the current batch.
func (b *Batcher) AddUpsert(id string, doc map[string]interface{}) {
	b.ops = append(b.ops, target.BulkOp{
		Index: b.index,
		Type:  b.typ,
		ID:    id,
		Doc:   doc,
	})
}

// AddDelete appends a document removal to the current batch.
func (b *Batcher) AddDelete(id string) {
	b.ops = append(b.ops, target.BulkOp{
		Delete: true,
		Index:  b.index,
		Type:   b.typ,
		ID:     id,
	})
}

// Len returns the number of pending operations.
func (b *Batcher) Len() int {
	return len(b.ops)
}

// Full reports whether the batch has reached the size bound.
func (b *Batcher) Full() bool {
	return len(b.ops) >= b.size
}

// Flush submits the pending batch and clears it regardless of outcome.
// Flushing an empty batch is a no-op.
func (b *Batcher) Flush(ctx context.Context) (target.BulkResult, error) {
	if len(b.ops) == 0 {
		return target.BulkResult{}, nil
	}

	ops := b.ops
	b.ops = make([]target.BulkOp, 0, b.size)

	return b.sink.Bulk(ctx, ops)
}
