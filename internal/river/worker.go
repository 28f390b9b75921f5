// Package river implements the per-table synchronization workers and the
// supervisor that owns them.
package river

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rethinkriver/internal/mapping"
	"rethinkriver/internal/notify"
	"rethinkriver/internal/source"
	"rethinkriver/internal/target"
)

const (
	initialBackoff = 250 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Worker keeps one mapping's target index converged with its source
// table, indefinitely, surviving transient source failures. It owns
// exactly one live connection and at most one live cursor at a time.
type Worker struct {
	mapping  mapping.Mapping
	source   source.Factory
	sink     target.Indexer
	progress *Recorder
	notifier notify.Notifier
	logger   *slog.Logger

	conn   source.Conn
	cursor source.ChangeCursor

	primaryKey       string
	backfillRequired bool
	backoff          time.Duration
}

// NewWorker creates a worker for one mapping.
func NewWorker(m mapping.Mapping, factory source.Factory, sink target.Indexer, progress *Recorder, notifier notify.Notifier, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Worker{
		mapping:          m,
		source:           factory,
		sink:             sink,
		progress:         progress,
		notifier:         notifier,
		logger:           logger.With("db", m.Database, "table", m.Table),
		backfillRequired: m.Backfill,
		backoff:          initialBackoff,
	}
}

// Run drives the worker until a fatal source error or cancellation.
// Restarting always means "watch from now, and redo backfill if it never
// completed cleanly" — no cursor position survives a worker's lifetime.
func (w *Worker) Run(ctx context.Context) {
	defer w.release()
	defer w.logger.Info("worker shutting down")

	if err := w.connect(ctx); err != nil {
		if !w.handleSourceError(ctx, err) {
			return
		}
	}

	for ctx.Err() == nil {
		err := w.stream(ctx)
		if err == nil {
			// Cursor drained cleanly, reopen it.
			continue
		}
		if !w.handleSourceError(ctx, err) {
			return
		}
	}
}

// connect opens the worker's connection and resolves the table's
// primary-key field. The key field is held for the connection's lifetime
// and re-resolved on every reconnect.
func (w *Worker) connect(ctx context.Context) error {
	conn, err := w.source.Connect(ctx, w.mapping.Database)
	if err != nil {
		return err
	}

	pk, err := conn.PrimaryKey(ctx, w.mapping.Table)
	if err != nil {
		conn.Close()
		return err
	}

	w.conn = conn
	w.primaryKey = pk
	return nil
}

// stream opens the change-feed cursor, runs backfill if still required,
// then applies live events until the cursor ends or errors. The cursor is
// opened before backfill so changes arriving while the snapshot copies
// are queued behind it, not lost.
func (w *Worker) stream(ctx context.Context) error {
	cur, err := w.conn.Changes(ctx, w.mapping.Table)
	if err != nil {
		return err
	}
	w.cursor = cur

	if w.backfillRequired {
		if err := w.backfill(ctx); err != nil {
			return err
		}
	}

	synced := 0
	for {
		ev, ok := cur.Next(ctx)
		if !ok {
			break
		}
		w.apply(ctx, ev)
		synced++
		if synced%10 == 0 {
			w.logger.Info("synced documents", "count", synced)
		}
	}
	return cur.Err()
}

// apply writes one live change through the sink's single-item path, keyed
// by the event document's primary-key value. Outcomes are not inspected:
// live application is best effort, unlike the backfill path which counts
// item failures and feeds them back into the backfill flag.
func (w *Worker) apply(ctx context.Context, ev source.Event) {
	if ev.IsDelete() {
		id := fmt.Sprint(ev.OldVal[w.primaryKey])
		if err := w.sink.Delete(ctx, w.mapping.Index, w.mapping.Type, id); err != nil {
			w.logger.Debug("live delete failed", "id", id, "error", err)
		}
		w.notifier.Publish(ctx, w.mapping, id, notify.OpDelete)
		return
	}

	id := fmt.Sprint(ev.NewVal[w.primaryKey])
	if err := w.sink.Upsert(ctx, w.mapping.Index, w.mapping.Type, id, ev.NewVal); err != nil {
		w.logger.Debug("live upsert failed", "id", id, "error", err)
	}
	w.notifier.Publish(ctx, w.mapping, id, notify.OpUpsert)
}

// handleSourceError classifies a source error. It returns true once the
// worker has reconnected and can continue, false when the worker must
// terminate. Errors observed after shutdown was requested are expected
// noise from interrupting blocking reads and are not logged as failures.
func (w *Worker) handleSourceError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	w.logger.Error("worker has a problem", "error", err)
	if !IsRecoverable(err) {
		w.logger.Info("this probably isn't recoverable, bailing")
		return false
	}

	w.logger.Info("error looks recoverable, reconnecting")
	return w.reconnect(ctx)
}

// reconnect waits out the current backoff, then releases the connection
// and cursor together and retries connecting until it succeeds or the
// context is cancelled. The backoff doubles on every failed attempt up to
// maxBackoff, persists across consecutive failures, and resets only after
// a successful reconnect.
func (w *Worker) reconnect(ctx context.Context) bool {
	if !sleep(ctx, w.backoff) {
		return false
	}

	for {
		w.release()
		w.backoff = nextBackoff(w.backoff)

		w.logger.Info("attempting to reconnect")
		if err := w.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return false
			}
			w.logger.Warn("reconnect failed", "wait", w.backoff, "error", err)
			if !sleep(ctx, w.backoff) {
				return false
			}
			continue
		}

		w.logger.Info("reconnection successful")
		w.backoff = initialBackoff
		return true
	}
}

// release closes the cursor and connection together. Both closes are
// idempotent; calling release with either or both already gone is fine.
func (w *Worker) release() {
	if w.cursor != nil {
		_ = w.cursor.Close()
		w.cursor = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
