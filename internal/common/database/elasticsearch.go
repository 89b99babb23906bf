// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

// Elasticsearch serves the staff search index.
type Elasticsearch struct {
	*elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*Elasticsearch, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Elasticsearch{Client: es}, nil
}

// Ping doubles as the readiness check. A cluster answering with an error
// status counts as down.
func (e *Elasticsearch) Ping(ctx context.Context) error {
	res, err := e.Client.Ping(e.Client.Ping.WithContext(ctx))
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(fmt.Errorf("elasticsearch: %w", err)).WithMetadata("backend", "elasticsearch")
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewDatabaseConnectionFailedError(fmt.Errorf("elasticsearch: %s", res.Status())).WithMetadata("backend", "elasticsearch")
	}
	return nil
}
