package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexDog indexes a dog (fire-and-forget to Meilisearch).
func (s *Service) IndexDog(d DogRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexDog(d); err != nil {
			log.Printf("search: index dog %s: %v", d.ID, err)
		}
	}()
}

// IndexContact indexes a contact (fire-and-forget to Meilisearch).
func (s *Service) IndexContact(c ContactRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexContact(c); err != nil {
			log.Printf("search: index contact %s: %v", c.ID, err)
		}
	}()
}

// DeleteDog removes a dog from the search index (fire-and-forget).
func (s *Service) DeleteDog(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDog(id); err != nil {
			log.Printf("search: delete dog %s: %v", id, err)
		}
	}()
}

// DeleteContact removes a contact from the search index (fire-and-forget).
func (s *Service) DeleteContact(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteContact(id); err != nil {
			log.Printf("search: delete contact %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	dogs, contacts, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexDogs(dogs); err != nil {
		log.Printf("search: reindex dogs: %v", err)
	}
	if err := s.meili.IndexContacts(contacts); err != nil {
		log.Printf("search: reindex contacts: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
