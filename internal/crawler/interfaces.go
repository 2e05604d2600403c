package crawler

import (
	"context"
	"io"
	"time"

	"github.com/JakeFAU/loginwall/internal/loginwall"
)

// StatusStore persists crawl records.
type StatusStore interface {
	CreateCrawl(ctx context.Context, record CrawlRecord) error
	UpdateCrawl(ctx context.Context, record CrawlRecord) error
	GetCrawl(ctx context.Context, crawlID string) (CrawlRecord, error)
}

// SnapshotStore keeps raw HTML of rejected pages and returns a URI.
type SnapshotStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes crawl outcome events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Fetcher fetches a URL and returns the body plus the final URL.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a probe response needs a browser render.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// MetadataExtractor derives page metadata from HTML.
type MetadataExtractor interface {
	Extract(html string) loginwall.Metadata
}

// LoginDetector fails with *loginwall.LoginRedirectError when a page is a
// login wall.
type LoginDetector interface {
	Assert(originalURL, browserURL string, md loginwall.Metadata, html string) error
}

// Queue provides enqueue/dequeue semantics for crawl tasks. Consumers that
// requeue into the queue they drain must use TryEnqueue.
type Queue interface {
	Enqueue(ctx context.Context, task CrawlTask) error
	TryEnqueue(task CrawlTask) error
	Dequeue(ctx context.Context) (CrawlTask, error)
}

// Policy gates outbound fetches, typically by per-host rate.
type Policy interface {
	Wait(ctx context.Context, rawURL string) error
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl IDs.
type IDGenerator interface {
	NewID() (string, error)
}
