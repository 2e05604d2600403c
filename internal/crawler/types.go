package crawler

import (
	"errors"
	"net/http"
	"time"
)

var (
	// ErrCrawlNotFound is returned by status stores for unknown crawl ids.
	ErrCrawlNotFound = errors.New("crawl not found")
	// ErrQueueClosed is returned by Dequeue once a queue has been shut down.
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueFull is returned by TryEnqueue when no slot is free.
	ErrQueueFull = errors.New("queue full")
)

// CrawlStatus represents the lifecycle state of a crawl.
type CrawlStatus string

// Crawl status values persisted in the status store.
const (
	CrawlStatusPending   CrawlStatus = "pending"
	CrawlStatusRunning   CrawlStatus = "running"
	CrawlStatusSucceeded CrawlStatus = "succeeded"
	CrawlStatusFailed    CrawlStatus = "failed"
)

// Terminal reports whether no further attempts will be made.
func (s CrawlStatus) Terminal() bool {
	return s == CrawlStatusSucceeded || s == CrawlStatusFailed
}

// LoginWall describes a positive login-redirect verdict.
type LoginWall struct {
	SiteName string `json:"site_name"`
	Reason   string `json:"reason"`
}

// CrawlRecord is the persisted state of one requested URL.
type CrawlRecord struct {
	ID            string      `json:"id"`
	URL           string      `json:"url"`
	Status        CrawlStatus `json:"status"`
	Attempt       int         `json:"attempt"`
	UseHeadless   bool        `json:"use_headless"`
	FinalURL      string      `json:"final_url,omitempty"`
	StatusCode    int         `json:"status_code,omitempty"`
	Title         string      `json:"title,omitempty"`
	ContentHash   string      `json:"content_hash,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	Retryable     bool        `json:"retryable"`
	LoginWall     *LoginWall  `json:"login_wall,omitempty"`
	SnapshotURI   string      `json:"snapshot_uri,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CrawlTask is one queued fetch attempt.
type CrawlTask struct {
	CrawlID     string
	URL         string
	Attempt     int
	UseHeadless bool
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	CrawlID string
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
// FinalURL is where the fetcher ended up after redirects.
type FetchResponse struct {
	RequestedURL string
	FinalURL     string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
