package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

// AuditIndexer writes audit events to an Elasticsearch index in the background.
type AuditIndexer struct {
	client  *es.Client
	index   string
	logger  *logrus.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewAuditIndexer(client *es.Client, index string, logger *logrus.Logger) *AuditIndexer {
	return &AuditIndexer{client: client, index: index, logger: logger, timeout: 3 * time.Second}
}

// Record queues ev for indexing and returns immediately.
// Events recorded after Close are dropped.
func (a *AuditIndexer) Record(_ context.Context, ev entity.AuditEvent) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		if a.logger != nil {
			a.logger.WithField("action", ev.Action).Debug("audit indexer closed; event dropped")
		}
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	go func() {
		defer a.wg.Done()
		_ = a.indexEvent(ev)
	}()
}

func (a *AuditIndexer) indexEvent(ev entity.AuditEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: a.index, DocumentID: ev.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	res, err := req.Do(c, a.client)
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).WithField("action", ev.Action).Warn("es audit index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && a.logger != nil {
		a.logger.WithField("status", res.Status()).WithField("action", ev.Action).Warn("es audit index response error")
	}
	return nil
}

// Close waits for in-flight events or for ctx to end.
func (a *AuditIndexer) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ repository.AuditLog = (*AuditIndexer)(nil)
