package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/app"
	"github.com/JakeFAU/loginwall/internal/config"
	"github.com/JakeFAU/loginwall/internal/logging"
)

// errLoginWallDetected is returned when at least one URL is a login wall.
var errLoginWallDetected = errors.New("login wall detected")

type checkOptions struct {
	configPath string
	headless   bool
	timeout    time.Duration
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "loginwall-check [flags] URL...",
		Short: "Fetch URLs and report whether they are login walls",
		Long: `loginwall-check fetches each URL, follows redirects, extracts page
metadata and runs the site rules against the page it landed on. Rules come
from the same configuration the service uses, including detector.rules_file.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (defaults and CRAWLER_* env when empty)")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "render pages in headless Chrome")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall time budget per URL")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions, urls []string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.headless {
		cfg.Headless.Enabled = true
	}

	logger := zap.NewNop()
	if opts.verbose {
		logger, err = logging.New(true, "debug")
		if err != nil {
			return err
		}
	}
	defer func() { _ = logger.Sync() }()

	checker, err := app.NewChecker(cfg, logger)
	if err != nil {
		return err
	}
	defer checker.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	found := false
	for _, u := range urls {
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		report, err := checker.Check(ctx, u, opts.headless)
		cancel()
		if err != nil {
			return fmt.Errorf("check %s: %w", u, err)
		}
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		found = found || report.Result.IsLoginRedirect
	}
	if found {
		return errLoginWallDetected
	}
	return nil
}
