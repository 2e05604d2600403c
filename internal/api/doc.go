// Package api hosts the HTTP server, middleware, and REST handlers for the
// login-wall service. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/detect to classify an already fetched page.
//   - GET /v1/rules to list the active site rules.
//   - POST /v1/crawls and GET /v1/crawls/{crawl_id} to submit URLs to the
//     crawl pipeline and read back their status.
package api
