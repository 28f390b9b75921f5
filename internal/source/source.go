// Package source defines the change-feed source abstraction the river
// consumes. Concrete drivers live in subpackages.
package source

import "context"

// Document is one row of a source table, keyed by field name.
type Document = map[string]interface{}

// Event is one entry of a table's change feed. NewVal is nil for a
// delete, OldVal is nil for an insert, both are set for an update.
type Event struct {
	NewVal Document
	OldVal Document
}

// IsDelete reports whether the event removes a row.
func (e Event) IsDelete() bool {
	return e.NewVal == nil
}

// Factory opens connections to one source host. Each worker gets its own
// factory-produced connections; there is no shared driver handle.
type Factory interface {
	// Connect opens a connection scoped to the given database.
	Connect(ctx context.Context, database string) (Conn, error)
}

// Conn is a single connection to the source, scoped to one database.
// A Conn is owned by exactly one worker and is not safe for concurrent use.
type Conn interface {
	// Changes opens a live change-feed cursor for the table.
	Changes(ctx context.Context, table string) (ChangeCursor, error)

	// Scan opens a cursor over the full current contents of the table.
	Scan(ctx context.Context, table string) (DocumentCursor, error)

	// Count returns the approximate number of rows in the table. The value
	// is a point-in-time estimate and may be stale.
	Count(ctx context.Context, table string) (int64, error)

	// PrimaryKey resolves the name of the table's primary-key field.
	PrimaryKey(ctx context.Context, table string) (string, error)

	// Close releases the connection. Closing an already-closed connection
	// is a no-op.
	Close() error
}

// ChangeCursor is a blocking iterator over a table's change feed.
type ChangeCursor interface {
	// Next blocks until the next event arrives or the cursor ends.
	// It returns false when the cursor is exhausted, errored or cancelled;
	// the cause, if any, is available via Err.
	Next(ctx context.Context) (Event, bool)

	Err() error

	// Close releases the cursor. Closing an already-closed cursor is a no-op.
	Close() error
}

// DocumentCursor iterates the rows of a table scan.
type DocumentCursor interface {
	Next(ctx context.Context) (Document, bool)

	Err() error

	Close() error
}
