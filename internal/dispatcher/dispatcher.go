// Package dispatcher accepts crawl submissions and fans queued work out to a
// pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/crawler"
)

// ErrNoURLs is returned when a submission carries nothing to crawl.
var ErrNoURLs = errors.New("at least one url is required")

// Runner is the unit of work the dispatcher runs; *worker.Worker satisfies it.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher creates crawl records, enqueues their first attempt and runs the
// worker pool.
type Dispatcher struct {
	queue   crawler.Queue
	store   crawler.StatusStore
	ids     crawler.IDGenerator
	clock   crawler.Clock
	workers []Runner
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(
	queue crawler.Queue,
	store crawler.StatusStore,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	workers []Runner,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		store:   store,
		ids:     ids,
		clock:   clock,
		workers: workers,
		logger:  logger,
	}
}

// Run starts all workers and blocks until they return.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			r.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Submit validates every URL before creating any record, then creates one
// pending crawl per URL and enqueues its first attempt. The returned ids
// follow the order of urls.
func (d *Dispatcher) Submit(ctx context.Context, urls []string, useHeadless bool) ([]string, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	normalized := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := crawler.NormalizeSeedURL(raw)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, u)
	}

	ids := make([]string, 0, len(normalized))
	for _, u := range normalized {
		id, err := d.ids.NewID()
		if err != nil {
			return ids, fmt.Errorf("generate crawl id: %w", err)
		}
		now := d.clock.Now()
		record := crawler.CrawlRecord{
			ID:          id,
			URL:         u,
			Status:      crawler.CrawlStatusPending,
			UseHeadless: useHeadless,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := d.store.CreateCrawl(ctx, record); err != nil {
			return ids, fmt.Errorf("create crawl: %w", err)
		}
		task := crawler.CrawlTask{CrawlID: id, URL: u, Attempt: 1, UseHeadless: useHeadless}
		if err := d.queue.Enqueue(ctx, task); err != nil {
			return ids, fmt.Errorf("queue enqueue: %w", err)
		}
		d.logger.Debug("crawl submitted", zap.String("crawl_id", id), zap.String("url", u))
		ids = append(ids, id)
	}
	return ids, nil
}
