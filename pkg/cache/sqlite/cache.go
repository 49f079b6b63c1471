// Package sqlite implements cache.Store on top of SQLite.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/dimsync/pkg/models"
)

// Cache is a namespaced key-value store backed by SQLite.
type Cache struct {
	db        *sql.DB
	namespace string
	hits      atomic.Int64
	misses    atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
);
`

// New opens a Cache for namespace. An empty dbPath or ":memory:" keeps the
// data in process memory for the lifetime of the Cache.
func New(dbPath, namespace string) (*Cache, error) {
	inMemory := dbPath == "" || dbPath == ":memory:"
	if inMemory {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, namespace: namespace}, nil
}

// Get retrieves a value. Returns false if not found.
func (c *Cache) Get(key string) (string, bool) {
	var value string
	err := c.db.QueryRow(
		`SELECT value FROM cache_entries WHERE namespace = ? AND key = ?`,
		c.namespace, key,
	).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("cache get failed", "namespace", c.namespace, "key", key, "error", err)
		}
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return value, true
}

// Put stores a value, replacing any previous one.
func (c *Cache) Put(key, value string) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO cache_entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)`,
		c.namespace, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete removes key from the namespace.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec(`DELETE FROM cache_entries WHERE namespace = ? AND key = ?`, c.namespace, key)
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRow(`SELECT COUNT(*) FROM cache_entries WHERE namespace = ?`, c.namespace).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Name:    c.namespace,
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes every entry in the namespace.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec(`DELETE FROM cache_entries WHERE namespace = ?`, c.namespace); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
