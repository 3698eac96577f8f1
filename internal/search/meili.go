package search

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const idxDocuments = "zedit_documents"

// Meili indexes and searches documents via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the document index.
// An unreachable server is tolerated; the health loop picks it up later.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxDocuments,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.Error(err))
	}

	index := m.client.Index(idxDocuments)
	filterable := []interface{}{"ownerId", "collaboratorIds", "boardId", "status"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.Error(err))
	}
	searchable := []string{"title", "text"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Healthy reports the last observed health state.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// IndexDocument upserts one document record.
func (m *Meili) IndexDocument(doc DocumentRecord) error {
	_, err := m.client.Index(idxDocuments).AddDocuments([]DocumentRecord{doc}, nil)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	return nil
}

// IndexDocuments bulk-upserts document records.
func (m *Meili) IndexDocuments(docs []DocumentRecord) error {
	_, err := m.client.Index(idxDocuments).AddDocuments(docs, nil)
	if err != nil {
		return fmt.Errorf("index documents: %w", err)
	}
	return nil
}

// DeleteDocument removes a document from the index.
func (m *Meili) DeleteDocument(id string) error {
	_, err := m.client.Index(idxDocuments).DeleteDocument(id, nil)
	if err != nil {
		return fmt.Errorf("delete document from index: %w", err)
	}
	return nil
}

// Search runs a caller-scoped query against the document index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	filter := fmt.Sprintf("ownerId = %q OR collaboratorIds = %q", q.UserID, q.UserID)
	resp, err := m.client.Index(idxDocuments).Search(q.Text, &meili.SearchRequest{
		Limit:            int64(limit),
		Offset:           int64(q.Offset),
		Filter:           filter,
		AttributesToCrop: []string{"text"},
		CropLength:       30,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("meili search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var record DocumentRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		results = append(results, Result{
			ID:      record.ID,
			Title:   record.Title,
			Snippet: snippet(record.Text, 30),
			Status:  record.Status,
			BoardID: record.BoardID,
		})
	}
	return results, int(resp.EstimatedTotalHits), nil
}
