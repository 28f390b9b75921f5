package river

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"rethinkriver/internal/config"
	"rethinkriver/internal/mapping"
	"rethinkriver/internal/notify"
	"rethinkriver/internal/source"
	"rethinkriver/internal/target"
)

// River supervises one worker per configured mapping. Workers run
// independently; no worker's failure affects another, and a fatally
// terminated worker is not restarted until the whole river is.
type River struct {
	name     string
	runID    string
	set      *mapping.Set
	source   source.Factory
	sink     target.Indexer
	progress *Recorder
	notifier notify.Notifier
	logger   *slog.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New builds a river from the configuration. The mapping registry is
// validated here, once; it is read-only afterwards.
func New(cfg *config.Config, factory source.Factory, sink target.Indexer, notifier notify.Notifier, logger *slog.Logger) (*River, error) {
	if logger == nil {
		logger = slog.Default()
	}

	set, err := cfg.Mappings()
	if err != nil {
		return nil, fmt.Errorf("building mappings: %w", err)
	}

	logger = logger.With("component", "river")
	return &River{
		name:     cfg.Name,
		runID:    uuid.NewString(),
		set:      set,
		source:   factory,
		sink:     sink,
		progress: NewRecorder(sink, cfg.Elasticsearch.MetaIndex, cfg.Name, set.Len(), logger),
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Mappings returns the registry the river was built from.
func (r *River) Mappings() *mapping.Set {
	return r.set
}

// Start spawns one worker per mapping and returns. Workers run until a
// fatal error or Stop.
func (r *River) Start(ctx context.Context) error {
	if r.cancel != nil {
		return fmt.Errorf("river already started")
	}
	ctx, r.cancel = context.WithCancel(ctx)

	for _, m := range r.set.All() {
		w := NewWorker(m, r.source, r.sink, r.progress, r.notifier, r.logger)
		r.logger.Info("starting worker", "mapping", m.String())
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			w.Run(ctx)
		}()
	}

	r.logger.Info("river started", "run_id", r.runID, "workers", r.set.Len())
	return nil
}

// Stop cancels every worker and waits for them to unwind, releasing
// their connections and cursors. Cancellation is visible to a worker
// before its blocking read is interrupted, so in-flight errors during
// teardown are suppressed. Calling Stop more than once is a no-op.
func (r *River) Stop(ctx context.Context) error {
	var err error
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}

		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			r.logger.Info("river stopped")
		case <-ctx.Done():
			r.logger.Warn("river stop timed out")
			err = ctx.Err()
		}
	})
	return err
}
