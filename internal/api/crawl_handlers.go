package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/crawler"
	"github.com/JakeFAU/loginwall/internal/dispatcher"
	iduuid "github.com/JakeFAU/loginwall/internal/id/uuid"
)

const crawlTimeout = 5 * time.Second

// CrawlHandler submits URLs to the crawl pipeline and reports their status.
type CrawlHandler struct {
	submitter Submitter
	store     crawler.StatusStore
	timeout   time.Duration
	logger    *zap.Logger
}

// NewCrawlHandler wires the submitter, status store, and logger.
func NewCrawlHandler(submitter Submitter, store crawler.StatusStore, logger *zap.Logger) *CrawlHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrawlHandler{
		submitter: submitter,
		store:     store,
		timeout:   crawlTimeout,
		logger:    logger,
	}
}

type submitCrawlsRequest struct {
	URLs     []string `json:"urls"`
	Headless bool     `json:"headless"`
}

// Submit handles POST /v1/crawls. It returns 202 with {"crawl_ids": [...]},
// 400 for missing or unsupported URLs, 503 when the queue is full or closed,
// or 500 for store failures.
func (h *CrawlHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.submitter == nil {
		writeError(w, http.StatusServiceUnavailable, "crawl pipeline unavailable")
		return
	}
	var req submitCrawlsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ids, err := h.submitter.Submit(ctx, req.URLs, req.Headless)
	if err != nil {
		switch {
		case errors.Is(err, dispatcher.ErrNoURLs), errors.Is(err, crawler.ErrUnsupportedURL):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, crawler.ErrQueueClosed), errors.Is(err, context.DeadlineExceeded):
			h.logger.Warn("crawl submission rejected", zap.Int("accepted", len(ids)), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "crawl queue unavailable")
		default:
			h.logger.Error("crawl submission failed", zap.Int("accepted", len(ids)), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to submit crawls")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"crawl_ids": ids})
}

// Get handles GET /v1/crawls/{crawl_id}. It returns {"crawl": {...}} on
// success, 400 for malformed ids, 404 for unknown crawls, or 500 otherwise.
func (h *CrawlHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "status store unavailable")
		return
	}
	crawlID := chi.URLParam(r, "crawl_id")
	if !iduuid.Valid(crawlID) {
		writeError(w, http.StatusBadRequest, "invalid crawl_id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	record, err := h.store.GetCrawl(ctx, crawlID)
	if err != nil {
		if errors.Is(err, crawler.ErrCrawlNotFound) {
			writeError(w, http.StatusNotFound, "crawl not found")
			return
		}
		h.logger.Error("get crawl failed", zap.String("crawl_id", crawlID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load crawl")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crawl": record})
}
