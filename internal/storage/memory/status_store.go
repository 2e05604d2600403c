package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/loginwall/internal/crawler"
)

// StatusStore keeps crawl records in a map.
type StatusStore struct {
	mu      sync.RWMutex
	records map[string]crawler.CrawlRecord
}

// NewStatusStore creates an empty store.
func NewStatusStore() *StatusStore {
	return &StatusStore{records: make(map[string]crawler.CrawlRecord)}
}

// CreateCrawl inserts a record, replacing any previous record with the same id.
func (s *StatusStore) CreateCrawl(_ context.Context, record crawler.CrawlRecord) error {
	if record.ID == "" {
		return fmt.Errorf("crawl id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// UpdateCrawl replaces an existing record.
func (s *StatusStore) UpdateCrawl(_ context.Context, record crawler.CrawlRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return fmt.Errorf("update %q: %w", record.ID, crawler.ErrCrawlNotFound)
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// GetCrawl returns a copy of the stored record.
func (s *StatusStore) GetCrawl(_ context.Context, crawlID string) (crawler.CrawlRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[crawlID]
	if !ok {
		return crawler.CrawlRecord{}, fmt.Errorf("get %q: %w", crawlID, crawler.ErrCrawlNotFound)
	}
	return cloneRecord(record), nil
}

func cloneRecord(record crawler.CrawlRecord) crawler.CrawlRecord {
	if record.LoginWall != nil {
		lw := *record.LoginWall
		record.LoginWall = &lw
	}
	return record
}
