// Package cache stores translation results on disk using badger.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL is how long a cached translation stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Usage mirrors token usage of the call that produced an entry.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Entry is one cached translation.
type Entry struct {
	Text      string    `json:"text"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is a persistent key/value cache. Safe for concurrent use.
type Cache struct {
	db *badger.DB
}

// New opens (or creates) a cache in dir.
func New(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Cache{db: db}, nil
}

// NewInMemory creates a cache that is not persisted.
func NewInMemory() (*Cache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (*Entry, bool) {
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key. A ttl of zero means no expiry.
func (c *Cache) Set(key string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Close flushes and closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GenerateKey builds a stable cache key from its parts.
func GenerateKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "tr:" + hex.EncodeToString(sum[:])
}

// Size returns the on-disk size in bytes of the LSM tree and value log.
func (c *Cache) Size() (lsm, vlog int64) {
	return c.db.Size()
}
