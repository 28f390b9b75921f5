// Package rethinkdb adapts the RethinkDB driver to the river's source
// interfaces.
package rethinkdb

import (
	"context"
	"fmt"
	"net"
	"strconv"

	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"rethinkriver/internal/source"
)

// Factory opens RethinkDB sessions for one host.
type Factory struct {
	Host    string
	Port    int
	AuthKey string
}

// Connect opens a session scoped to the given database.
func (f Factory) Connect(ctx context.Context, database string) (source.Conn, error) {
	sess, err := r.Connect(r.ConnectOpts{
		Address:  net.JoinHostPort(f.Host, strconv.Itoa(f.Port)),
		AuthKey:  f.AuthKey,
		Database: database,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to rethinkdb: %w", err)
	}
	return &conn{sess: sess}, nil
}

type conn struct {
	sess *r.Session
}

func (c *conn) Changes(ctx context.Context, table string) (source.ChangeCursor, error) {
	cur, err := r.Table(table).Changes().Run(c.sess, r.RunOpts{Context: ctx})
	if err != nil {
		return nil, err
	}
	return &changeCursor{cur: cur}, nil
}

func (c *conn) Scan(ctx context.Context, table string) (source.DocumentCursor, error) {
	cur, err := r.Table(table).Run(c.sess, r.RunOpts{Context: ctx})
	if err != nil {
		return nil, err
	}
	return &documentCursor{cur: cur}, nil
}

func (c *conn) Count(ctx context.Context, table string) (int64, error) {
	cur, err := r.Table(table).Count().Run(c.sess, r.RunOpts{Context: ctx})
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	var n int64
	if err := cur.One(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *conn) PrimaryKey(ctx context.Context, table string) (string, error) {
	cur, err := r.Table(table).Info().Run(c.sess, r.RunOpts{Context: ctx})
	if err != nil {
		return "", err
	}
	defer cur.Close()

	var info struct {
		PrimaryKey string `rethinkdb:"primary_key"`
	}
	if err := cur.One(&info); err != nil {
		return "", err
	}
	if info.PrimaryKey == "" {
		return "", fmt.Errorf("table %q reports no primary key", table)
	}
	return info.PrimaryKey, nil
}

func (c *conn) Close() error {
	if c.sess == nil {
		return nil
	}
	err := c.sess.Close()
	c.sess = nil
	return err
}

type changeCursor struct {
	cur *r.Cursor
}

func (cc *changeCursor) Next(ctx context.Context) (source.Event, bool) {
	var row struct {
		NewVal map[string]interface{} `rethinkdb:"new_val"`
		OldVal map[string]interface{} `rethinkdb:"old_val"`
	}
	if !cc.cur.Next(&row) {
		return source.Event{}, false
	}
	return source.Event{NewVal: row.NewVal, OldVal: row.OldVal}, true
}

func (cc *changeCursor) Err() error {
	if cc.cur == nil {
		return nil
	}
	return cc.cur.Err()
}

func (cc *changeCursor) Close() error {
	if cc.cur == nil {
		return nil
	}
	err := cc.cur.Close()
	cc.cur = nil
	return err
}

type documentCursor struct {
	cur *r.Cursor
}

func (dc *documentCursor) Next(ctx context.Context) (source.Document, bool) {
	var doc map[string]interface{}
	if !dc.cur.Next(&doc) {
		return nil, false
	}
	return doc, true
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
	err := dc.cur.Close()
	dc.cur = nil
	return err
}
