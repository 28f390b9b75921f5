// Package notify fans out applied live changes to downstream consumers.
package notify

import (
	"context"

	"rethinkriver/internal/mapping"
)

// Op names for published change notifications.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Notifier reports applied live changes. Implementations must never block
// the calling worker; delivery is best effort and failures are dropped.
type Notifier interface {
	Publish(ctx context.Context, m mapping.Mapping, id, op string)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Publish(context.Context, mapping.Mapping, string, string) {}
