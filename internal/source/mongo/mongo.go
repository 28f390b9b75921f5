// Package mongo adapts MongoDB change streams to the river's source
// interfaces. A database maps to a database, a table to a collection,
// and the resolved primary-key field is always _id.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rethinkriver/internal/source"
)

// Factory opens MongoDB clients for one deployment.
type Factory struct {
	URI string
}

// Connect opens a client scoped to the given database.
func (f Factory) Connect(ctx context.Context, database string) (source.Conn, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(f.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &conn{client: client, db: client.Database(database)}, nil
}

type conn struct {
	client *mongo.Client
	db     *mongo.Database
}

func (c *conn) Changes(ctx context.Context, table string) (source.ChangeCursor, error) {
	// updateLookup gives the full post-image for updates, which is what
	// the single-item upsert path needs.
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := c.db.Collection(table).Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, err
	}
	return &changeCursor{stream: stream}, nil
}

func (c *conn) Scan(ctx context.Context, table string) (source.DocumentCursor, error) {
	cur, err := c.db.Collection(table).Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	return &documentCursor{cur: cur}, nil
}

func (c *conn) Count(ctx context.Context, table string) (int64, error) {
	return c.db.Collection(table).EstimatedDocumentCount(ctx)
}

func (c *conn) PrimaryKey(ctx context.Context, table string) (string, error) {
	return "_id", nil
}

func (c *conn) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(context.Background())
	c.client = nil
	return err
}

type changeCursor struct {
	stream *mongo.ChangeStream
}

func (cc *changeCursor) Next(ctx context.Context) (source.Event, bool) {
	for cc.stream.Next(ctx) {
		var change struct {
			OperationType string `bson:"operationType"`
			FullDocument  bson.M `bson:"fullDocument"`
			DocumentKey   struct {
				ID interface{} `bson:"_id"`
			} `bson:"documentKey"`
		}
		if err := cc.stream.Decode(&change); err != nil {
			continue
		}

		switch change.OperationType {
		case "insert", "update", "replace":
			if change.FullDocument == nil {
				continue
			}
			return source.Event{NewVal: map[string]interface{}(change.FullDocument)}, true
		case "delete":
			return source.Event{OldVal: map[string]interface{}{"_id": change.DocumentKey.ID}}, true
		default:
			// drop/rename/invalidate etc.
			continue
		}
	}
	return source.Event{}, false
}

func (cc *changeCursor) Err() error {
	if cc.stream == nil {
		return nil
	}
	return cc.stream.Err()
}

func (cc *changeCursor) Close() error {
	if cc.stream == nil {
		return nil
	}
	err := cc.stream.Close(context.Background())
	cc.stream = nil
	return err
}

type documentCursor struct {
	cur *mongo.Cursor
}

func (dc *documentCursor) Next(ctx context.Context) (source.Document, bool) {
	if !dc.cur.Next(ctx) {
		return nil, false
	}
	var doc bson.M
	if err := dc.cur.Decode(&doc); err != nil {
		return nil, false
	}
	return map[string]interface{}(doc), true
}

func (dc *documentCursor) Err() error {
	if dc.cur == nil {
		return nil
	}
	return dc.cur.Err()
}

func (dc *documentCursor) Close() error {
	if dc.cur == nil {
		return nil
	}
	err := dc.cur.Close(context.Background())
	dc.cur = nil
	return err
}
