// Package memory provides an in-process crawl task queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/loginwall/internal/crawler"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch     chan crawler.CrawlTask
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan crawler.CrawlTask, capacity),
	}
}

// Enqueue pushes a task into the queue, blocking while it is full.
func (q *Queue) Enqueue(ctx context.Context, task crawler.CrawlTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return crawler.ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// TryEnqueue pushes a task without blocking and fails with
// crawler.ErrQueueFull when the queue has no free slot.
func (q *Queue) TryEnqueue(task crawler.CrawlTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return crawler.ErrQueueClosed
	}
	select {
	case q.ch <- task:
		return nil
	default:
		return crawler.ErrQueueFull
	}
}

// Dequeue pops the next task, respecting context cancellation. Buffered
// tasks are still delivered after Close.
func (q *Queue) Dequeue(ctx context.Context) (crawler.CrawlTask, error) {
	select {
	case <-ctx.Done():
		return crawler.CrawlTask{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return crawler.CrawlTask{}, crawler.ErrQueueClosed
		}
		return task, nil
	}
}

// Len reports how many tasks are buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting tasks. It waits for in-flight Enqueue calls, so
// callers must cancel their contexts first if the queue may be full.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
