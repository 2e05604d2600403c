// Package server assembles the login-wall service from configuration and runs
// it until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/api"
	"github.com/JakeFAU/loginwall/internal/app"
	"github.com/JakeFAU/loginwall/internal/clock/system"
	"github.com/JakeFAU/loginwall/internal/config"
	"github.com/JakeFAU/loginwall/internal/crawler"
	"github.com/JakeFAU/loginwall/internal/dispatcher"
	"github.com/JakeFAU/loginwall/internal/hash/sha256"
	"github.com/JakeFAU/loginwall/internal/id/uuid"
	"github.com/JakeFAU/loginwall/internal/logging"
	"github.com/JakeFAU/loginwall/internal/loginwall"
	"github.com/JakeFAU/loginwall/internal/metadata"
	"github.com/JakeFAU/loginwall/internal/metrics"
	"github.com/JakeFAU/loginwall/internal/policy/ratelimit"
	"github.com/JakeFAU/loginwall/internal/policy/simple"
	memorypublisher "github.com/JakeFAU/loginwall/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/loginwall/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/loginwall/internal/queue/memory"
	gcsstorage "github.com/JakeFAU/loginwall/internal/storage/gcs"
	localstorage "github.com/JakeFAU/loginwall/internal/storage/local"
	memoryStorage "github.com/JakeFAU/loginwall/internal/storage/memory"
	pgstore "github.com/JakeFAU/loginwall/internal/storage/postgres"
	"github.com/JakeFAU/loginwall/internal/telemetry"
	"github.com/JakeFAU/loginwall/internal/worker"
)

// App contains the service's long-lived dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	dispatch        *dispatcher.Dispatcher
	queue           *queueMemory.Queue
	fetchers        *app.Fetchers
	statusStore     crawler.StatusStore
	pgStore         *pgstore.StatusStore
	pubsubClient    *pubsub.Client
	pubsubPublisher *gcppublisher.Publisher
	storage         *storage.Client
	tracerProvider  *sdktrace.TracerProvider
}

// Build creates the service's dependencies from cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Int("concurrency", cfg.Crawler.Concurrency),
		zap.String("storage_backend", cfg.Storage.Backend),
	)
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	a.tracerProvider, err = telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}

	snapshots, err := setupStorage(ctx, a)
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, err
	}
	if err := setupDatabase(ctx, a); err != nil {
		a.closeInfrastructure(ctx)
		return nil, err
	}
	publisher, err := setupPublisher(ctx, a)
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, err
	}
	det, err := app.NewDetector(cfg.Detector, logging.Component(logger, "detector"),
		loginwall.WithObserver(metrics.NewDetectionObserver()))
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, fmt.Errorf("detector init failed: %w", err)
	}
	a.fetchers = app.NewFetchers(*cfg, logging.Component(logger, "fetcher"))

	a.queue = queueMemory.NewQueue(cfg.Crawler.QueueDepth)
	a.dispatch = setupDispatcher(a, snapshots, publisher, det)

	a.apiServer = api.NewServer(api.Deps{
		Detector:  det,
		Extractor: metadata.New(),
		Submitter: a.dispatch,
		Store:     a.statusStore,
		Ready:     a.ready,
	}, *cfg, logging.Component(logger, "api"))

	return a, nil
}

// Run starts the workers and HTTP server and blocks until ctx is canceled or
// the process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Crawler.Concurrency))
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("workers did not stop before shutdown timeout")
	}

	return a.Close(shutdownCtx)
}

// Close releases every resource Build acquired.
func (a *App) Close(ctx context.Context) error {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.fetchers != nil {
		a.fetchers.Close()
	}
	a.closeInfrastructure(ctx)
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) ready(ctx context.Context) error {
	if a.pgStore == nil {
		return nil
	}
	return a.pgStore.Ping(ctx)
}

func (a *App) closeInfrastructure(_ context.Context) {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
}

func (a *App) closeObservability(ctx context.Context) {
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	// Sync fails on stdout/stderr for some platforms; nothing to do about it.
	_ = a.logger.Sync()
}

func setupStorage(ctx context.Context, a *App) (crawler.SnapshotStore, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageGCS:
		a.logger.Info("using GCS snapshot backend", zap.String("bucket", a.cfg.Storage.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.storage = client
		store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Storage.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs snapshot store init failed: %w", err)
		}
		return store, nil
	case config.StorageLocal:
		a.logger.Info("using local snapshot backend", zap.String("path", a.cfg.Storage.LocalDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local snapshot store init failed: %w", err)
		}
		return store, nil
	default:
		a.logger.Info("using in-memory snapshot backend")
		return memoryStorage.NewSnapshotStore(), nil
	}
}

func setupDatabase(ctx context.Context, a *App) error {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no database DSN configured, crawl records are kept in memory")
		a.statusStore = memoryStorage.NewStatusStore()
		return nil
	}
	store, err := pgstore.NewStatusStore(ctx, pgstore.Config{
		DSN:             a.cfg.DB.DSN,
		Table:           a.cfg.DB.Table,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(a.cfg.DB.MaxConnLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("status store init failed: %w", err)
	}
	a.pgStore = store
	a.statusStore = store
	if a.cfg.DB.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("status store migrate failed: %w", err)
		}
	}
	a.logger.Info("postgres status store initialized", zap.String("table", a.cfg.DB.Table))
	return nil
}

func setupPublisher(ctx context.Context, a *App) (crawler.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubPublisher = gcppublisher.New(client, gcppublisher.WithPropagator(otel.GetTextMapPropagator()))
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return a.pubsubPublisher, nil
}

func setupDispatcher(
	a *App,
	snapshots crawler.SnapshotStore,
	publisher crawler.Publisher,
	det *loginwall.Detector,
) *dispatcher.Dispatcher {
	hasher := sha256.New()
	clock := system.New()
	extractor := metadata.New()
	policy := setupPolicy(a.cfg.RateLimit, a.logger)

	workerCfg := worker.Config{
		ContentType:            a.cfg.Storage.ContentType,
		SnapshotPrefix:         a.cfg.Storage.Prefix,
		Topic:                  a.cfg.PubSub.TopicName,
		MaxAttempts:            a.cfg.Crawler.MaxAttempts,
		LoginRedirectRetryable: a.cfg.Detector.LoginRedirectRetryable,
		RetryBackoffBase:       a.cfg.RetryBackoff(),
	}
	if workerCfg.Topic == "" {
		workerCfg.Topic = "crawl-outcomes"
	}
	a.logger.Info("worker config",
		zap.String("snapshot_prefix", workerCfg.SnapshotPrefix),
		zap.String("topic", workerCfg.Topic),
		zap.Int("max_attempts", workerCfg.MaxAttempts),
		zap.Bool("login_redirect_retryable", workerCfg.LoginRedirectRetryable),
	)

	workers := make([]dispatcher.Runner, 0, a.cfg.Crawler.Concurrency)
	for i := 0; i < a.cfg.Crawler.Concurrency; i++ {
		workers = append(workers, worker.New(worker.Deps{
			Queue:     a.queue,
			Store:     a.statusStore,
			Snapshots: snapshots,
			Publisher: publisher,
			Hasher:    hasher,
			Clock:     clock,
			Probe:     a.fetchers.Probe,
			Headless:  a.fetchers.Headless,
			Promoter:  a.fetchers.Promoter,
			Extractor: extractor,
			Detector:  det,
			Policy:    policy,
		}, workerCfg, logging.Component(a.logger, "worker").With(zap.Int("index", i))))
	}
	return dispatcher.New(a.queue, a.statusStore, uuid.New(), clock, workers, logging.Component(a.logger, "dispatcher"))
}

func setupPolicy(cfg config.RateLimitConfig, logger *zap.Logger) crawler.Policy {
	if !cfg.Enabled {
		logger.Info("rate limiting disabled")
		return simple.New()
	}
	logger.Info("rate limiting enabled",
		zap.Float64("default_rps", cfg.DefaultRPS),
		zap.Int("default_burst", cfg.DefaultBurst),
	)
	return ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.DefaultRPS,
		DefaultBurst: cfg.DefaultBurst,
	})
}
