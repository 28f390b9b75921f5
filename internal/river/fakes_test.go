package river

import (
	"context"
	"sync"

	"rethinkriver/internal/source"
	"rethinkriver/internal/target"
)

// fakeFactory hands out fakeConns. Scripted connect errors are consumed
// first, one per Connect call.
type fakeFactory struct {
	mu          sync.Mutex
	connectErrs []error
	conns       int

	pk       string
	docs     []source.Document
	feed     chan source.Event
	scanHook func()

	// changesErr, when set, makes every change cursor end immediately
	// with this error. Cleared after the first cursor so a reconnect
	// gets a healthy feed.
	changesErr     error
	changesErrOnce bool
}

func newFakeFactory(pk string, docs []source.Document) *fakeFactory {
	return &fakeFactory{
		pk:   pk,
		docs: docs,
		feed: make(chan source.Event, 16),
	}
}

func (f *fakeFactory) Connect(ctx context.Context, database string) (source.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.conns++
	return &fakeConn{factory: f}, nil
}

func (f *fakeFactory) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

type fakeConn struct {
	factory *fakeFactory
	closed  bool
}

func (c *fakeConn) Changes(ctx context.Context, table string) (source.ChangeCursor, error) {
	f := c.factory
	f.mu.Lock()
	err := f.changesErr
	if f.changesErrOnce {
		f.changesErr = nil
	}
	f.mu.Unlock()

	if err != nil {
		return &fakeChangeCursor{err: err, broken: true}, nil
	}
	return &fakeChangeCursor{feed: f.feed}, nil
}

func (c *fakeConn) Scan(ctx context.Context, table string) (source.DocumentCursor, error) {
	if c.factory.scanHook != nil {
		c.factory.scanHook()
	}
	docs := make([]source.Document, len(c.factory.docs))
	copy(docs, c.factory.docs)
	return &fakeDocCursor{docs: docs}, nil
}

func (c *fakeConn) Count(ctx context.Context, table string) (int64, error) {
	return int64(len(c.factory.docs)), nil
}

func (c *fakeConn) PrimaryKey(ctx context.Context, table string) (string, error) {
	return c.factory.pk, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeChangeCursor struct {
	feed   chan source.Event
	err    error
	broken bool
}

func (cc *fakeChangeCursor) Next(ctx context.Context) (source.Event, bool) {
	if cc.broken {
		return source.Event{}, false
	}
	select {
	case ev, ok := <-cc.feed:
		if !ok {
			return source.Event{}, false
		}
		return ev, true
	case <-ctx.Done():
		cc.err = ctx.Err()
		return source.Event{}, false
	}
}

func (cc *fakeChangeCursor) Err() error { return cc.err }

func (cc *fakeChangeCursor) Close() error { return nil }

type fakeDocCursor struct {
	docs []source.Document
	pos  int
}

func (dc *fakeDocCursor) Next(ctx context.Context) (source.Document, bool) {
	if dc.pos >= len(dc.docs) {
		return nil, false
	}
	doc := dc.docs[dc.pos]
	dc.pos++
	return doc, true
}

func (dc *fakeDocCursor) Err() error { return nil }

func (dc *fakeDocCursor) Close() error { return nil }

type appliedOp struct {
	index string
	typ   string
	id    string
	doc   map[string]interface{}
}

type metaUpdate struct {
	index   string
	typ     string
	id      string
	doc     map[string]interface{}
	retries int
}

// fakeIndexer records every write it sees. Scripted bulk results are
// consumed one per Bulk call; when exhausted, bulk writes succeed.
type fakeIndexer struct {
	mu          sync.Mutex
	upserts     []appliedOp
	deletes     []appliedOp
	bulks       [][]target.BulkOp
	bulkResults []target.BulkResult
	updates     []metaUpdate
	updateErr   error
}

func (f *fakeIndexer) Upsert(ctx context.Context, index, typ, id string, doc map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, appliedOp{index, typ, id, doc})
	return nil
}

func (f *fakeIndexer) Delete(ctx context.Context, index, typ, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, appliedOp{index: index, typ: typ, id: id})
	return nil
}

func (f *fakeIndexer) Bulk(ctx context.Context, ops []target.BulkOp) (target.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulks = append(f.bulks, ops)
	if len(f.bulkResults) > 0 {
		res := f.bulkResults[0]
		f.bulkResults = f.bulkResults[1:]
		return res, nil
	}
	return target.BulkResult{}, nil
}

func (f *fakeIndexer) UpdateDocument(ctx context.Context, index, typ, id string, doc map[string]interface{}, maxRetries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, metaUpdate{index, typ, id, doc, maxRetries})
	return nil
}

func (f *fakeIndexer) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

func (f *fakeIndexer) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeIndexer) bulkSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.bulks))
	for i, ops := range f.bulks {
		sizes[i] = len(ops)
	}
	return sizes
}

func (f *fakeIndexer) metaUpdates() []metaUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]metaUpdate, len(f.updates))
	copy(out, f.updates)
	return out
}
