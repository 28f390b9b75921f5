// Package elastic adapts the Elasticsearch client to the river's target
// interface.
package elastic

import (
	"context"
	"fmt"

	"github.com/olivere/elastic/v7"

	"rethinkriver/internal/config"
	"rethinkriver/internal/target"
)

// Client wraps an Elasticsearch client as a target.Indexer.
type Client struct {
	es *elastic.Client
}

// New connects to the configured Elasticsearch cluster.
func New(cfg config.ElasticConfig) (*Client, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.URLs...),
		elastic.SetSniff(cfg.Sniff),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	es, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to elasticsearch: %w", err)
	}
	return &Client{es: es}, nil
}

func (c *Client) Upsert(ctx context.Context, index, typ, id string, doc map[string]interface{}) error {
	_, err := c.es.Index().Index(index).Type(typ).Id(id).BodyJson(doc).Do(ctx)
	return err
}

func (c *Client) Delete(ctx context.Context, index, typ, id string) error {
	_, err := c.es.Delete().Index(index).Type(typ).Id(id).Do(ctx)
	if elastic.IsNotFound(err) {
		// Deleting a document that was never indexed is not a failure.
		return nil
	}
	return err
}

func (c *Client) Bulk(ctx context.Context, ops []target.BulkOp) (target.BulkResult, error) {
	if len(ops) == 0 {
		return target.BulkResult{}, nil
	}

	svc := c.es.Bulk()
	for _, op := range ops {
		if op.Delete {
			svc = svc.Add(elastic.NewBulkDeleteRequest().Index(op.Index).Type(op.Type).Id(op.ID))
		} else {
			svc = svc.Add(elastic.NewBulkIndexRequest().Index(op.Index).Type(op.Type).Id(op.ID).Doc(op.Doc))
		}
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return target.BulkResult{}, err
	}

	var result target.BulkResult
	for _, item := range resp.Failed() {
		result.Failed++
		if item.Error != nil {
			if result.Reasons == nil {
				result.Reasons = make(map[string]struct{})
			}
			result.Reasons[item.Error.Reason] = struct{}{}
		}
	}
	return result, nil
}

func (c *Client) UpdateDocument(ctx context.Context, index, typ, id string, doc map[string]interface{}, maxRetries int) error {
	// DocAsUpsert creates the meta document on the first ever write.
	_, err := c.es.Update().
		Index(index).
		Type(typ).
		Id(id).
		Doc(doc).
		DocAsUpsert(true).
		RetryOnConflict(maxRetries).
		Do(ctx)
	return err
}
