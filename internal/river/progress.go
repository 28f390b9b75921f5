package river

import (
	"context"
	"fmt"
	"log/slog"

	"rethinkriver/internal/mapping"
	"rethinkriver/internal/target"
)

// metaDocID is the id of the shared progress document inside the meta index.
const metaDocID = "_meta"

// Recorder persists the backfill flag for a mapping into the shared
// configuration document. Every worker writes through the same document,
// so updates are optimistic with a retry budget sized to the worker count.
type Recorder struct {
	sink      target.Indexer
	metaIndex string
	riverName string
	retries   int
	logger    *slog.Logger
}

// NewRecorder creates a Recorder. totalMappings bounds the retry budget:
// only other backfilling workers can conflict on the meta document, so one
// retry per mapping plus one is always enough.
func NewRecorder(sink target.Indexer, metaIndex, riverName string, totalMappings int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		sink:      sink,
		metaIndex: metaIndex,
		riverName: riverName,
		retries:   totalMappings + 1,
		logger:    logger.With("component", "progress"),
	}
}

// Record writes the backfill flag for one mapping, touching only that
// mapping's (db, table) sub-path of the shared document.
func (r *Recorder) Record(ctx context.Context, m mapping.Mapping, backfill bool) error {
	doc := map[string]interface{}{
		"rethinkdb": map[string]interface{}{
			"databases": map[string]interface{}{
				m.Database: map[string]interface{}{
					m.Table: map[string]interface{}{
						"backfill": backfill,
					},
				},
			},
		},
	}

	if err := r.sink.UpdateDocument(ctx, r.metaIndex, r.riverName, metaDocID, doc, r.retries); err != nil {
		return fmt.Errorf("persisting backfill flag for %s.%s: %w", m.Database, m.Table, err)
	}

	r.logger.Debug("backfill flag persisted", "db", m.Database, "table", m.Table, "backfill", backfill)
	return nil
}
