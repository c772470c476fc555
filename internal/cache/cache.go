// Package cache persists fetched daily records in SQLite so repeated
// summaries over the same station and date range do not re-hit the remote
// provider.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xyloclime/snowline/internal/provider"
	"github.com/xyloclime/snowline/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_records_cache (
	provider   TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	records    BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (provider, cache_key)
);
`

// Store is a SQLite-backed cache of fetched record sequences, keyed by
// provider and request shape. Entries older than the TTL are refetched.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, ttl time.Duration, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	// Set pragmas for performance
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	return New(db, ttl, logger)
}

// New builds a Store around an existing database handle and ensures the
// cache table exists.
func New(db *sql.DB, ttl time.Duration, logger *zap.SugaredLogger) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating cache table: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func requestKey(req provider.Request) string {
	return strings.Join([]string{
		req.StationID,
		fmt.Sprintf("%.4f,%.4f", req.Latitude, req.Longitude),
		req.Start.Format("2006-01-02"),
		req.End.Format("2006-01-02"),
		strings.Join(req.DataTypes, ","),
	}, "|")
}

// Get returns the cached records for a request, or ok=false when absent or
// expired.
func (s *Store) Get(ctx context.Context, providerName string, req provider.Request) ([]types.DailyRecord, bool) {
	var blob []byte
	var fetchedAt int64

	query := `SELECT records, fetched_at FROM daily_records_cache WHERE provider = ? AND cache_key = ?`
	err := s.db.QueryRowContext(ctx, query, providerName, requestKey(req)).Scan(&blob, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warnf("cache read failed: %v", err)
		return nil, false
	}

	if time.Since(time.Unix(fetchedAt, 0)) > s.ttl {
		return nil, false
	}

	var records []types.DailyRecord
	if err := msgpack.Unmarshal(blob, &records); err != nil {
		s.logger.Warnf("cache entry for %s is corrupt, discarding: %v", providerName, err)
		return nil, false
	}
	return records, true
}

// Put stores the records for a request, replacing any previous entry.
func (s *Store) Put(ctx context.Context, providerName string, req provider.Request, records []types.DailyRecord) error {
	blob, err := msgpack.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	query := `INSERT OR REPLACE INTO daily_records_cache (provider, cache_key, records, fetched_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, providerName, requestKey(req), blob, time.Now().Unix()); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Prune removes entries older than the TTL.
func (s *Store) Prune(ctx context.Context) error {
	cutoff := time.Now().Add(-s.ttl).Unix()
	_, err := s.db.ExecContext(ctx, `DELETE FROM daily_records_cache WHERE fetched_at < ?`, cutoff)
	return err
}

// Fetcher decorates a provider.Fetcher with read-through caching. Cache
// failures degrade to a live fetch; they never fail the request.
type Fetcher struct {
	inner  provider.Fetcher
	store  *Store
	logger *zap.SugaredLogger
}

// NewFetcher wraps inner with the cache store.
func NewFetcher(inner provider.Fetcher, store *Store, logger *zap.SugaredLogger) *Fetcher {
	return &Fetcher{inner: inner, store: store, logger: logger}
}

// Name identifies the wrapped provider.
func (f *Fetcher) Name() string {
	return f.inner.Name()
}

// FetchDaily serves from the cache when fresh, otherwise fetches live and
// stores the result.
func (f *Fetcher) FetchDaily(ctx context.Context, req provider.Request) ([]types.DailyRecord, error) {
	if records, ok := f.store.Get(ctx, f.inner.Name(), req); ok {
		f.logger.Debugf("cache hit for %s %s", f.inner.Name(), requestKey(req))
		return records, nil
	}

	records, err := f.inner.FetchDaily(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := f.store.Put(ctx, f.inner.Name(), req, records); err != nil {
		f.logger.Warnf("caching %s response failed: %v", f.inner.Name(), err)
	}
	return records, nil
}
