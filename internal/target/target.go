// Package target defines the search-index sink abstraction the river
// writes to.
package target

import "context"

// BulkOp is one operation inside a bulk write.
type BulkOp struct {
	// Delete selects between an upsert and a delete.
	Delete bool

	Index string
	Type  string
	ID    string

	// Doc is the document body for upserts; nil for deletes.
	Doc map[string]interface{}
}

// BulkResult reports the per-item outcome of one bulk write.
type BulkResult struct {
	// Failed is the number of items the sink rejected.
	Failed int

	// Reasons is the set of distinct failure messages.
	Reasons map[string]struct{}
}

// Merge folds another result into r.
func (r *BulkResult) Merge(other BulkResult) {
	r.Failed += other.Failed
	for reason := range other.Reasons {
		if r.Reasons == nil {
			r.Reasons = make(map[string]struct{})
		}
		r.Reasons[reason] = struct{}{}
	}
}

// ReasonList returns the distinct failure reasons in unspecified order.
func (r BulkResult) ReasonList() []string {
	out := make([]string, 0, len(r.Reasons))
	for reason := range r.Reasons {
		out = append(out, reason)
	}
	return out
}

// Indexer is the write surface of the target index.
type Indexer interface {
	// Upsert writes one document. Used by the live-change path.
	Upsert(ctx context.Context, index, typ, id string, doc map[string]interface{}) error

	// Delete removes one document. Used by the live-change path.
	Delete(ctx context.Context, index, typ, id string) error

	// Bulk submits a batch of operations in one round trip. Item failures
	// are reported in the result, not as an error; err is reserved for
	// transport-level failures of the whole batch.
	Bulk(ctx context.Context, ops []BulkOp) (BulkResult, error)

	// UpdateDocument merges a partial document into an existing one,
	// retrying up to maxRetries times on version conflict.
	UpdateDocument(ctx context.Context, index, typ, id string, doc map[string]interface{}, maxRetries int) error
}
