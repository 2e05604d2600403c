package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/config"
	"github.com/JakeFAU/loginwall/internal/crawler"
	headlessfetcher "github.com/JakeFAU/loginwall/internal/fetcher/headless"
	"github.com/JakeFAU/loginwall/internal/loginwall"
	"github.com/JakeFAU/loginwall/internal/metadata"
)

// Report is the outcome of checking a single URL.
type Report struct {
	URL          string             `json:"url"`
	FinalURL     string             `json:"final_url"`
	StatusCode   int                `json:"status_code"`
	UsedHeadless bool               `json:"used_headless"`
	Metadata     loginwall.Metadata `json:"metadata"`
	Result       loginwall.Result   `json:"result"`
}

// Checker fetches one URL and classifies it, without queues or stores.
type Checker struct {
	fetchers  *Fetchers
	extractor crawler.MetadataExtractor
	detector  *loginwall.Detector
	logger    *zap.Logger
}

// NewChecker builds a Checker from the service configuration.
func NewChecker(cfg config.Config, logger *zap.Logger) (*Checker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	det, err := NewDetector(cfg.Detector, logger.Named("detector"))
	if err != nil {
		return nil, err
	}
	return &Checker{
		fetchers:  NewFetchers(cfg, logger.Named("fetcher")),
		extractor: metadata.New(),
		detector:  det,
		logger:    logger,
	}, nil
}

// Check fetches rawURL, following redirects, and runs the detector against
// the page it landed on. With headless set the page is rendered in Chrome;
// otherwise the probe may still be promoted when it looks like an app shell.
func (c *Checker) Check(ctx context.Context, rawURL string, headless bool) (Report, error) {
	u, err := crawler.NormalizeSeedURL(rawURL)
	if err != nil {
		return Report{}, fmt.Errorf("check url: %w", err)
	}
	resp, err := c.fetch(ctx, u, headless)
	if err != nil {
		return Report{}, err
	}
	html := string(resp.Body)
	md := c.extractor.Extract(html)
	result := c.detector.Detect(u, resp.FinalURL, md, html)
	c.logger.Debug("check finished",
		zap.String("url", u),
		zap.String("final_url", resp.FinalURL),
		zap.Bool("login_redirect", result.IsLoginRedirect),
	)
	return Report{
		URL:          u,
		FinalURL:     resp.FinalURL,
		StatusCode:   resp.StatusCode,
		UsedHeadless: resp.UsedHeadless,
		Metadata:     md,
		Result:       result,
	}, nil
}

func (c *Checker) fetch(ctx context.Context, u string, headless bool) (crawler.FetchResponse, error) {
	req := crawler.FetchRequest{URL: u}
	if headless {
		var browser crawler.Fetcher = headlessfetcher.NewNoop()
		if c.fetchers.Headless != nil {
			browser = c.fetchers.Headless
		}
		resp, err := browser.Fetch(ctx, req)
		if err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("headless fetch: %w", err)
		}
		return resp, nil
	}

	resp, err := c.fetchers.Probe.Fetch(ctx, req)
	if err != nil {
		return crawler.FetchResponse{}, fmt.Errorf("probe fetch: %w", err)
	}
	if c.fetchers.Headless == nil || !c.fetchers.Promoter.ShouldPromote(resp) {
		return resp, nil
	}
	rendered, err := c.fetchers.Headless.Fetch(ctx, req)
	if err != nil {
		c.logger.Warn("headless promotion failed", zap.String("url", u), zap.Error(err))
		return resp, nil
	}
	return rendered, nil
}

// Close releases the fetchers.
func (c *Checker) Close() {
	c.fetchers.Close()
}
