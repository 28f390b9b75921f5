package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"rethinkriver/internal/config"
	"rethinkriver/internal/mapping"
)

// NATSNotifier publishes change notifications to NATS subjects of the
// form <prefix>.<db>.<table>.
type NATSNotifier struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATS connects to the configured NATS server.
func NewNATS(cfg config.NotifyConfig, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("rethinkriver"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATSNotifier{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		logger: logger.With("component", "notify"),
	}, nil
}

// Publish sends one change notification. Publish never blocks on the
// broker; a failed publish is logged at debug and dropped.
func (n *NATSNotifier) Publish(ctx context.Context, m mapping.Mapping, id, op string) {
	payload, err := json.Marshal(map[string]string{
		"db":    m.Database,
		"table": m.Table,
		"id":    id,
		"op":    op,
	})
	if err != nil {
		n.logger.Debug("failed to encode notification", "error", err)
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", n.prefix, m.Database, m.Table)
	if err := n.conn.Publish(subject, payload); err != nil {
		n.logger.Debug("failed to publish notification", "subject", subject, "error", err)
	}
}

// Close drains and closes the NATS connection.
func (n *NATSNotifier) Close() {
	n.conn.Close()
}
