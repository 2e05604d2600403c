// Package main hosts the login-wall service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, synchronous
//     detection (/v1/detect, /v1/rules) and crawl submission/status
//     (/v1/crawls).
//   - Dispatcher & queue: submitted URLs are normalised, recorded as pending
//     crawls and pushed onto a bounded in-memory queue sized by
//     crawler.queue_depth, then fanned out to crawler.concurrency workers.
//   - Fetch pipeline: workers fetch with the Colly probe, follow redirects,
//     and promote to a headless Chromedp render when asked to or when the
//     probe looks like an app shell.
//   - Detection: the final URL, extracted metadata and HTML go through the
//     site rules. A login wall fails the crawl, its HTML is snapshotted
//     (memory/local/GCS) and an outcome event is published.
//   - Configuration & plumbing: Viper (CRAWLER_ env prefix), zap logging,
//     Prometheus metrics, OpenTelemetry tracing, Postgres for crawl records
//     when db.dsn is set.
//
// Run locally: go run ./cmd/loginwall -config config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/JakeFAU/loginwall/internal/config"
	"github.com/JakeFAU/loginwall/internal/server"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := server.Build(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}
