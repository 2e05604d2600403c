// Package metrics exposes Prometheus collectors for the login-wall service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/loginwall/internal/loginwall"
)

// Verdict label values for loginwall_detections_total.
const (
	VerdictLoginWall = "login_wall"
	VerdictClean     = "clean"
)

var (
	detectionsTotal            *prometheus.CounterVec
	signalMatchesTotal         *prometheus.CounterVec
	crawlerAttemptsTotal       *prometheus.CounterVec
	crawlerFetchBytesTotal     *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	crawlerActiveWorkers       prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		detectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginwall_detections_total",
				Help: "Evaluations of a site rule, labeled by site and verdict.",
			},
			[]string{"site", "verdict"},
		)

		signalMatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginwall_signal_matches_total",
				Help: "Signals that matched during evaluation, labeled by rule and signal.",
			},
			[]string{"rule", "signal"},
		)

		crawlerAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_attempts_total",
				Help: "Crawl attempts finished, labeled by resulting status.",
			},
			[]string{"status"},
		)

		crawlerFetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_bytes_total",
				Help: "Bytes fetched, labeled by host.",
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently processing a crawl task.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawlAttempt counts one finished crawl attempt.
func ObserveCrawlAttempt(status string) {
	crawlerAttemptsTotal.WithLabelValues(status).Inc()
}

// ObserveFetch records the size of a fetched body.
func ObserveFetch(rawURL string, bytesFetched int) {
	if bytesFetched <= 0 {
		return
	}
	crawlerFetchBytesTotal.WithLabelValues(SanitizeSite(rawURL)).Add(float64(bytesFetched))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records how long a fetch waited for its host's bucket.
func ObserveRateLimitDelay(site string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(site).Observe(d.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	crawlerActiveWorkers.Dec()
}

// DetectionObserver feeds detector evaluations into the Prometheus counters.
type DetectionObserver struct{}

// NewDetectionObserver initializes the collectors and returns an observer
// suitable for loginwall.WithObserver.
func NewDetectionObserver() DetectionObserver {
	Init()
	return DetectionObserver{}
}

// ObserveEvaluation implements loginwall.Observer.
func (DetectionObserver) ObserveEvaluation(rule loginwall.Rule, outcomes []loginwall.Outcome, result loginwall.Result) {
	verdict := VerdictClean
	if result.IsLoginRedirect {
		verdict = VerdictLoginWall
	}
	detectionsTotal.WithLabelValues(rule.SiteName, verdict).Inc()
	for _, o := range outcomes {
		if o.Matched {
			signalMatchesTotal.WithLabelValues(rule.ID, o.SignalID).Inc()
		}
	}
}
