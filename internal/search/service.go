package search

import (
	"context"

	"go.uber.org/zap"
)

// Service is the facade that tries Meilisearch first and falls back to
// Postgres. meili may be nil when Meilisearch is not configured.
type Service struct {
	meili  *Meili
	pg     *PgSearch
	logger *zap.Logger
}

func NewService(meili *Meili, pg *PgSearch, logger *zap.Logger) *Service {
	return &Service{meili: meili, pg: pg, logger: logger}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", zap.Error(err))
	}

	results, total, err := s.pg.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search failed", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexDocument indexes a document (fire-and-forget to Meilisearch).
func (s *Service) IndexDocument(doc DocumentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexDocument(doc); err != nil {
			s.logger.Warn("index document", zap.String("id", doc.ID), zap.Error(err))
		}
	}()
}

// Reindex bulk-loads records into Meilisearch. Used to backfill the index
// from the database after a Meilisearch reset.
func (s *Service) Reindex(docs []DocumentRecord) {
	if s.meili == nil || !s.meili.Healthy() || len(docs) == 0 {
		return
	}
	if err := s.meili.IndexDocuments(docs); err != nil {
		s.logger.Warn("reindex documents", zap.Error(err))
		return
	}
	s.logger.Info("search index backfilled", zap.Int("documents", len(docs)))
}

// DeleteDocument removes a document from the index (fire-and-forget).
func (s *Service) DeleteDocument(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDocument(id); err != nil {
			s.logger.Warn("delete document from index", zap.String("id", id), zap.Error(err))
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
