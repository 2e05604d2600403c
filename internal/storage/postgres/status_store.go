// Package postgres persists crawl records in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/loginwall/internal/crawler"
)

const defaultTable = "crawls"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for crawl records.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// StatusStore implements crawler.StatusStore on a single table.
type StatusStore struct {
	pool  Pool
	table string
}

// NewStatusStore connects a pool from cfg.
func NewStatusStore(ctx context.Context, cfg Config) (*StatusStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewStatusStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewStatusStoreWithPool constructs a store from an existing pool.
func NewStatusStoreWithPool(pool Pool, table string) (*StatusStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &StatusStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *StatusStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *StatusStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Migrate creates the crawl table when it does not exist.
func (s *StatusStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	status         TEXT NOT NULL,
	attempt        INTEGER NOT NULL DEFAULT 0,
	use_headless   BOOLEAN NOT NULL DEFAULT FALSE,
	final_url      TEXT NOT NULL DEFAULT '',
	status_code    INTEGER NOT NULL DEFAULT 0,
	title          TEXT NOT NULL DEFAULT '',
	content_hash   TEXT NOT NULL DEFAULT '',
	failure_reason TEXT NOT NULL DEFAULT '',
	retryable      BOOLEAN NOT NULL DEFAULT FALSE,
	login_site     TEXT NOT NULL DEFAULT '',
	login_reason   TEXT NOT NULL DEFAULT '',
	snapshot_uri   TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// CreateCrawl upserts a record so resubmitted ids start over.
func (s *StatusStore) CreateCrawl(ctx context.Context, record crawler.CrawlRecord) error {
	if record.ID == "" {
		return fmt.Errorf("crawl id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, url, status, attempt, use_headless, final_url, status_code, title, content_hash,
	failure_reason, retryable, login_site, login_reason, snapshot_uri, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
	url = EXCLUDED.url,
	status = EXCLUDED.status,
	attempt = EXCLUDED.attempt,
	use_headless = EXCLUDED.use_headless,
	final_url = EXCLUDED.final_url,
	status_code = EXCLUDED.status_code,
	title = EXCLUDED.title,
	content_hash = EXCLUDED.content_hash,
	failure_reason = EXCLUDED.failure_reason,
	retryable = EXCLUDED.retryable,
	login_site = EXCLUDED.login_site,
	login_reason = EXCLUDED.login_reason,
	snapshot_uri = EXCLUDED.snapshot_uri,
	updated_at = EXCLUDED.updated_at`, s.table)

	site, reason := loginColumns(record)
	args := []any{
		record.ID,
		record.URL,
		string(record.Status),
		record.Attempt,
		record.UseHeadless,
		record.FinalURL,
		record.StatusCode,
		record.Title,
		record.ContentHash,
		record.FailureReason,
		record.Retryable,
		site,
		reason,
		record.SnapshotURI,
		record.CreatedAt,
		record.UpdatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert crawl: %w", err)
	}
	return nil
}

// UpdateCrawl overwrites the mutable columns of an existing record.
func (s *StatusStore) UpdateCrawl(ctx context.Context, record crawler.CrawlRecord) error {
	query := fmt.Sprintf(`
UPDATE %s SET
	status = $2,
	attempt = $3,
	final_url = $4,
	status_code = $5,
	title = $6,
	content_hash = $7,
	failure_reason = $8,
	retryable = $9,
	login_site = $10,
	login_reason = $11,
	snapshot_uri = $12,
	updated_at = $13
WHERE id = $1`, s.table)

	site, reason := loginColumns(record)
	tag, err := s.pool.Exec(ctx, query,
		record.ID,
		string(record.Status),
		record.Attempt,
		record.FinalURL,
		record.StatusCode,
		record.Title,
		record.ContentHash,
		record.FailureReason,
		record.Retryable,
		site,
		reason,
		record.SnapshotURI,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update crawl: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %q: %w", record.ID, crawler.ErrCrawlNotFound)
	}
	return nil
}

// GetCrawl loads a record by id.
func (s *StatusStore) GetCrawl(ctx context.Context, crawlID string) (crawler.CrawlRecord, error) {
	query := fmt.Sprintf(`
SELECT id, url, status, attempt, use_headless, final_url, status_code, title, content_hash,
	failure_reason, retryable, login_site, login_reason, snapshot_uri, created_at, updated_at
FROM %s WHERE id = $1`, s.table)

	var (
		record      crawler.CrawlRecord
		status      string
		site, cause string
	)
	err := s.pool.QueryRow(ctx, query, crawlID).Scan(
		&record.ID,
		&record.URL,
		&status,
		&record.Attempt,
		&record.UseHeadless,
		&record.FinalURL,
		&record.StatusCode,
		&record.Title,
		&record.ContentHash,
		&record.FailureReason,
		&record.Retryable,
		&site,
		&cause,
		&record.SnapshotURI,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawler.CrawlRecord{}, fmt.Errorf("get %q: %w", crawlID, crawler.ErrCrawlNotFound)
	}
	if err != nil {
		return crawler.CrawlRecord{}, fmt.Errorf("select crawl: %w", err)
	}
	record.Status = crawler.CrawlStatus(status)
	if site != "" {
		record.LoginWall = &crawler.LoginWall{SiteName: site, Reason: cause}
	}
	return record, nil
}

func loginColumns(record crawler.CrawlRecord) (string, string) {
	if record.LoginWall == nil {
		return "", ""
	}
	return record.LoginWall.SiteName, record.LoginWall.Reason
}
