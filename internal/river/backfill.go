package river

import (
	"context"
	"fmt"

	"rethinkriver/internal/bulk"
	"rethinkriver/internal/target"
)

// backfill copies the full current contents of the source table into the
// target index in bulk batches. It uses its own connection so the scan
// does not compete with, or close, the already-open change-feed cursor.
//
// Item failures do not abort the pass: they are counted, their distinct
// reasons logged, and the backfill flag stays set so a later restart
// retries the whole pass. Only source and transport errors propagate.
func (w *Worker) backfill(ctx context.Context) error {
	conn, err := w.source.Connect(ctx, w.mapping.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	w.logger.Info("beginning backfill of documents")

	// The count is only for progress reporting. Rows written while the
	// scan runs make it drift, which is fine.
	total, err := conn.Count(ctx, w.mapping.Table)
	if err != nil {
		return err
	}

	cur, err := conn.Scan(ctx, w.mapping.Table)
	if err != nil {
		return err
	}
	defer cur.Close()

	batch := bulk.NewBatcher(w.sink, w.mapping.Index, w.mapping.Type, bulk.DefaultBatchSize)
	var result target.BulkResult
	attempted := 0
	oldDecile := 0

	for {
		doc, ok := cur.Next(ctx)
		if !ok {
			break
		}

		if total > 0 {
			if newDecile := attempted * 100 / int(total) / 10; newDecile != oldDecile {
				w.logger.Info("backfill progress", "percent", newDecile*10, "documents", attempted)
				oldDecile = newDecile
			}
		}

		if batch.Full() {
			res, err := batch.Flush(ctx)
			if err != nil {
				return err
			}
			result.Merge(res)
		}

		batch.AddUpsert(fmt.Sprint(doc[w.primaryKey]), doc)
		attempted++
	}
	if err := cur.Err(); err != nil {
		return err
	}

	res, err := batch.Flush(ctx)
	if err != nil {
		return err
	}
	result.Merge(res)

	if result.Failed > 0 {
		w.logger.Error("backfill had failures",
			"attempted", attempted,
			"succeeded", attempted-result.Failed,
			"failed", result.Failed,
			"reasons", result.ReasonList(),
		)
		w.backfillRequired = true
	} else {
		w.logger.Info("backfill complete, turning off backfill in settings", "documents", attempted)
		w.backfillRequired = false
	}

	if err := w.progress.Record(ctx, w.mapping, w.backfillRequired); err != nil {
		// Only durability of the flag across restarts is at risk here;
		// the in-memory state already reflects the pass outcome.
		w.logger.Error("failed to persist backfill flag", "error", err)
	}

	return nil
}
