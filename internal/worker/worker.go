// Package worker implements the crawl pipeline execution loop.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/crawler"
	"github.com/JakeFAU/loginwall/internal/loginwall"
	"github.com/JakeFAU/loginwall/internal/metrics"
)

// abandonTimeout bounds the store and publish calls made for a crawl that is
// given up during shutdown.
const abandonTimeout = 5 * time.Second

// Config controls Worker behavior.
type Config struct {
	ContentType    string
	SnapshotPrefix string
	Topic          string
	// MaxAttempts bounds how often a transient fetch failure is retried.
	MaxAttempts int
	// LoginRedirectRetryable is copied onto records rejected as login walls.
	LoginRedirectRetryable bool
	RetryBackoffBase       time.Duration
}

// Deps holds the collaborators a Worker needs. Snapshots, Publisher,
// Headless, Promoter and Policy are optional.
type Deps struct {
	Queue     crawler.Queue
	Store     crawler.StatusStore
	Snapshots crawler.SnapshotStore
	Publisher crawler.Publisher
	Hasher    crawler.Hasher
	Clock     crawler.Clock
	Probe     crawler.Fetcher
	Headless  crawler.Fetcher
	Promoter  crawler.HeadlessDetector
	Extractor crawler.MetadataExtractor
	Detector  crawler.LoginDetector
	Policy    crawler.Policy
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Worker consumes crawl tasks and executes the fetch-and-detect pipeline.
type Worker struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(deps Deps, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("github.com/JakeFAU/loginwall/internal/worker")
	}
	metrics.Init()
	return &Worker{deps: deps, cfg: cfg, logger: logger}
}

// Run blocks, consuming tasks until the context finishes or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.deps.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, crawler.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued crawl", zap.String("crawl_id", task.CrawlID), zap.Int("attempt", task.Attempt))
		metrics.IncActiveWorkers()
		w.Process(ctx, task)
		metrics.DecActiveWorkers()
	}
}

// Process runs a single task to a recorded outcome.
func (w *Worker) Process(ctx context.Context, task crawler.CrawlTask) {
	ctx, span := w.deps.Tracer.Start(ctx, "crawl.process", trace.WithAttributes(
		attribute.String("crawl.id", task.CrawlID),
		attribute.String("crawl.url", task.URL),
		attribute.Int("crawl.attempt", task.Attempt),
	))
	defer span.End()

	record, err := w.deps.Store.GetCrawl(ctx, task.CrawlID)
	if err != nil {
		w.logger.Error("load crawl failed", zap.String("crawl_id", task.CrawlID), zap.Error(err))
		return
	}
	record.Status = crawler.CrawlStatusRunning
	record.Attempt = task.Attempt
	record.UpdatedAt = w.deps.Clock.Now()
	if err := w.deps.Store.UpdateCrawl(ctx, record); err != nil {
		w.logger.Error("mark crawl running failed", zap.String("crawl_id", task.CrawlID), zap.Error(err))
		return
	}

	resp, err := w.fetch(ctx, task)
	if err == nil && resp.StatusCode >= http.StatusInternalServerError {
		err = fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	if err != nil {
		if ctx.Err() != nil {
			w.abandon(ctx, record, fmt.Errorf("crawl canceled: %w", err))
			return
		}
		w.handleFetchFailure(ctx, task, record, err)
		return
	}
	metrics.ObserveFetch(task.URL, len(resp.Body))

	record.FinalURL = resp.FinalURL
	record.StatusCode = resp.StatusCode
	html := string(resp.Body)
	md := w.deps.Extractor.Extract(html)
	record.Title = md.Title
	if hash, hashErr := w.deps.Hasher.Hash(resp.Body); hashErr == nil {
		record.ContentHash = hash
	} else {
		w.logger.Warn("hash body failed", zap.String("crawl_id", task.CrawlID), zap.Error(hashErr))
	}

	verdict := w.deps.Detector.Assert(task.URL, resp.FinalURL, md, html)
	if lr, ok := loginwall.AsLoginRedirect(verdict); ok {
		w.handleLoginWall(ctx, record, lr, resp.Body)
		return
	}
	if verdict != nil {
		w.logger.Error("login-wall detection failed", zap.String("crawl_id", task.CrawlID), zap.Error(verdict))
		record.Status = crawler.CrawlStatusFailed
		record.FailureReason = fmt.Sprintf("detect: %v", verdict)
		record.Retryable = false
		w.finish(ctx, record)
		return
	}

	record.Status = crawler.CrawlStatusSucceeded
	record.FailureReason = ""
	record.Retryable = false
	w.finish(ctx, record)
}

func (w *Worker) fetch(ctx context.Context, task crawler.CrawlTask) (crawler.FetchResponse, error) {
	req := crawler.FetchRequest{CrawlID: task.CrawlID, URL: task.URL}
	if w.deps.Policy != nil {
		if err := w.deps.Policy.Wait(ctx, task.URL); err != nil {
			return crawler.FetchResponse{}, err
		}
	}
	if task.UseHeadless && w.deps.Headless != nil {
		resp, err := w.deps.Headless.Fetch(ctx, req)
		if err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("headless fetch: %w", err)
		}
		return resp, nil
	}

	resp, err := w.deps.Probe.Fetch(ctx, req)
	if err != nil {
		return crawler.FetchResponse{}, fmt.Errorf("probe fetch: %w", err)
	}
	if w.deps.Headless == nil || w.deps.Promoter == nil || !w.deps.Promoter.ShouldPromote(resp) {
		return resp, nil
	}

	rendered, err := w.deps.Headless.Fetch(ctx, req)
	if err != nil {
		w.logger.Warn("headless promotion failed",
			zap.String("crawl_id", task.CrawlID),
			zap.String("url", task.URL),
			zap.Error(err),
		)
		return resp, nil
	}
	w.logger.Debug("headless promotion applied", zap.String("crawl_id", task.CrawlID))
	return rendered, nil
}

func (w *Worker) handleFetchFailure(ctx context.Context, task crawler.CrawlTask, record crawler.CrawlRecord, err error) {
	record.FailureReason = err.Error()
	record.Retryable = true
	record.UpdatedAt = w.deps.Clock.Now()

	if task.Attempt < w.cfg.MaxAttempts {
		record.Status = crawler.CrawlStatusPending
		if updateErr := w.deps.Store.UpdateCrawl(ctx, record); updateErr != nil {
			w.logger.Error("mark crawl pending failed", zap.String("crawl_id", task.CrawlID), zap.Error(updateErr))
			return
		}
		metrics.ObserveCrawlAttempt("retry")
		w.logger.Warn("fetch failed, retrying",
			zap.String("crawl_id", task.CrawlID),
			zap.Int("attempt", task.Attempt),
			zap.Error(err),
		)
		if !w.backoff(ctx, task.Attempt) {
			w.abandon(ctx, record, fmt.Errorf("crawl canceled: %w", ctx.Err()))
			return
		}
		next := task
		next.Attempt++
		// Workers drain this queue, so a blocking requeue could stall the pool.
		if enqueueErr := w.deps.Queue.TryEnqueue(next); enqueueErr != nil {
			w.logger.Error("requeue crawl failed", zap.String("crawl_id", task.CrawlID), zap.Error(enqueueErr))
			w.abandon(ctx, record, fmt.Errorf("%w; requeue: %w", err, enqueueErr))
		}
		return
	}

	w.logger.Error("fetch failed, attempts exhausted",
		zap.String("crawl_id", task.CrawlID),
		zap.Int("attempt", task.Attempt),
		zap.Error(err),
	)
	record.Status = crawler.CrawlStatusFailed
	w.finish(ctx, record)
}

// abandon records a retryable failure for a crawl that was not finished,
// even when ctx is already canceled.
func (w *Worker) abandon(ctx context.Context, record crawler.CrawlRecord, err error) {
	record.Status = crawler.CrawlStatusFailed
	record.Retryable = true
	record.FailureReason = err.Error()
	w.logger.Warn("crawl abandoned", zap.String("crawl_id", record.ID), zap.Error(err))
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()
	w.finish(ctx, record)
}

func (w *Worker) handleLoginWall(ctx context.Context, record crawler.CrawlRecord, lr *loginwall.LoginRedirectError, body []byte) {
	record.Status = crawler.CrawlStatusFailed
	record.FailureReason = lr.Error()
	record.Retryable = w.cfg.LoginRedirectRetryable
	record.LoginWall = &crawler.LoginWall{SiteName: lr.SiteName, Reason: lr.Reason}

	if w.deps.Snapshots != nil {
		uri, err := w.deps.Snapshots.PutObject(ctx, w.snapshotPath(record), w.cfg.ContentType, bytes.NewReader(body))
		if err != nil {
			w.logger.Error("store login wall snapshot failed", zap.String("crawl_id", record.ID), zap.Error(err))
		} else {
			record.SnapshotURI = uri
		}
	}
	w.finish(ctx, record)
}

func (w *Worker) finish(ctx context.Context, record crawler.CrawlRecord) {
	record.UpdatedAt = w.deps.Clock.Now()
	if err := w.deps.Store.UpdateCrawl(ctx, record); err != nil {
		w.logger.Error("record crawl outcome failed", zap.String("crawl_id", record.ID), zap.Error(err))
		return
	}
	metrics.ObserveCrawlAttempt(string(record.Status))
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("crawl.status", string(record.Status)),
		attribute.Bool("crawl.login_wall", record.LoginWall != nil),
	)
	if record.Status == crawler.CrawlStatusFailed {
		span.SetStatus(codes.Error, record.FailureReason)
	}
	w.logger.Info("crawl finished",
		zap.String("crawl_id", record.ID),
		zap.String("url", record.URL),
		zap.String("final_url", record.FinalURL),
		zap.String("status", string(record.Status)),
		zap.Bool("login_wall", record.LoginWall != nil),
	)
	if err := w.publish(ctx, record); err != nil {
		w.logger.Error("publish crawl outcome failed", zap.String("crawl_id", record.ID), zap.Error(err))
	}
}

func (w *Worker) publish(ctx context.Context, record crawler.CrawlRecord) error {
	if w.cfg.Topic == "" || w.deps.Publisher == nil {
		return nil
	}
	payload := map[string]any{
		"crawl_id":     record.ID,
		"url":          record.URL,
		"final_url":    record.FinalURL,
		"status":       string(record.Status),
		"attempt":      record.Attempt,
		"retryable":    record.Retryable,
		"content_hash": record.ContentHash,
		"timestamp":    record.UpdatedAt.Format(time.RFC3339),
	}
	if record.LoginWall != nil {
		payload["login_wall"] = map[string]string{
			"site_name": record.LoginWall.SiteName,
			"reason":    record.LoginWall.Reason,
		}
		payload["snapshot_uri"] = record.SnapshotURI
	}
	if _, err := w.deps.Publisher.Publish(ctx, w.cfg.Topic, payload); err != nil {
		return fmt.Errorf("publish payload: %w", err)
	}
	return nil
}

// backoff waits before a retry and reports false if the context ended first.
func (w *Worker) backoff(ctx context.Context, attempt int) bool {
	if w.cfg.RetryBackoffBase <= 0 {
		return ctx.Err() == nil
	}
	delay := w.cfg.RetryBackoffBase << max(attempt-1, 0)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *Worker) snapshotPath(record crawler.CrawlRecord) string {
	name := record.ContentHash
	if name == "" {
		name = fmt.Sprintf("attempt-%d", record.Attempt)
	}
	prefix := strings.Trim(w.cfg.SnapshotPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", record.ID, name)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, record.ID, name)
}
