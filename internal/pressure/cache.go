package pressure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/types"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// cachedSeries is the msgpack payload stored per (site, span) key.
type cachedSeries struct {
	Times  []int64   `msgpack:"t"` // unix seconds
	Values []float64 `msgpack:"v"` // kPa
}

// Cache wraps a Retriever with a local sqlite store so repeated runs over
// the same site and span do not hit the external archive again.
type Cache struct {
	inner Retriever
	db    *sql.DB
}

// NewCache opens (and if needed initializes) the cache database.
func NewCache(dbPath string, inner Retriever) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pressure cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping pressure cache: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pressure_cache (
		site TEXT NOT NULL,
		span_start INTEGER NOT NULL,
		span_end INTEGER NOT NULL,
		payload BLOB NOT NULL,
		fetched_at INTEGER NOT NULL,
		PRIMARY KEY (site, span_start, span_end)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize pressure cache: %w", err)
	}
	return &Cache{inner: inner, db: db}, nil
}

// Close releases the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Name() string {
	return c.inner.Name()
}

// FetchPressure serves the span from cache when present, delegating to the
// wrapped retriever otherwise. Only successful fetches are stored.
func (c *Cache) FetchPressure(ctx context.Context, site types.Site, start, end time.Time) ([]time.Time, []float64, error) {
	key := site.Name()
	if times, values, ok := c.lookup(ctx, key, start, end); ok {
		log.Debugf("pressure cache hit for %s %s/%s", key, start.Format(time.RFC3339), end.Format(time.RFC3339))
		return times, values, nil
	}

	times, values, err := c.inner.FetchPressure(ctx, site, start, end)
	if err != nil {
		return nil, nil, err
	}
	c.store(ctx, key, start, end, times, values)
	return times, values, nil
}

func (c *Cache) lookup(ctx context.Context, key string, start, end time.Time) ([]time.Time, []float64, bool) {
	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM pressure_cache WHERE site = ? AND span_start = ? AND span_end = ?`,
		key, start.Unix(), end.Unix()).Scan(&payload)
	if err != nil {
		return nil, nil, false
	}
	var series cachedSeries
	if err := msgpack.Unmarshal(payload, &series); err != nil {
		log.Warnf("corrupt pressure cache entry for %s: %v", key, err)
		return nil, nil, false
	}
	times := make([]time.Time, len(series.Times))
	for i, sec := range series.Times {
		times[i] = time.Unix(sec, 0).UTC()
	}
	return times, series.Values, true
}

func (c *Cache) store(ctx context.Context, key string, start, end time.Time, times []time.Time, values []float64) {
	series := cachedSeries{Times: make([]int64, len(times)), Values: values}
	for i, ts := range times {
		series.Times[i] = ts.Unix()
	}
	payload, err := msgpack.Marshal(series)
	if err != nil {
		log.Warnf("failed to encode pressure cache entry: %v", err)
		return
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pressure_cache (site, span_start, span_end, payload, fetched_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key, start.Unix(), end.Unix(), payload, time.Now().Unix())
	if err != nil {
		log.Warnf("failed to store pressure cache entry: %v", err)
	}
}
