// Package cache stores compiled artifacts keyed by source content hash, so
// unchanged scripts skip recompilation on later runs.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed artifact store. Safe for concurrent use.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		hash     TEXT PRIMARY KEY,
		path     TEXT NOT NULL,
		ncs      BLOB NOT NULL,
		built_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating artifacts table: %w", err)
	}

	return &Cache{db: db}, nil
}

// HashSource returns the cache key for a source text.
func HashSource(src []byte) [sha256.Size]byte {
	return sha256.Sum256(src)
}

// Lookup returns the serialized artifact for hash, or ok=false on a miss.
func (c *Cache) Lookup(hash [sha256.Size]byte) (ncs []byte, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRow("SELECT ncs FROM artifacts WHERE hash = ?", hex.EncodeToString(hash[:]))
	if err := row.Scan(&ncs); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	return ncs, true, nil
}

// Store records the serialized artifact for hash, replacing any previous
// entry.
func (c *Cache) Store(hash [sha256.Size]byte, path string, ncs []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO artifacts (hash, path, ncs, built_at) VALUES (?, ?, ?, ?)",
		hex.EncodeToString(hash[:]), path, ncs, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
