package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"brandstudio/internal/logging"
)

// Cache defaults.
const (
	DefaultCacheDir    = "data/cache"
	DefaultExpiryHours = 24
)

// Cache is a disk-backed response cache keyed by SHA-256 of model and
// prompt. Entries expire after a fixed TTL; expired entries are removed
// lazily on read or explicitly via ClearExpired.
type Cache struct {
	dir    string
	expiry time.Duration
}

type cacheEntry struct {
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// CacheStats summarizes the cache directory.
type CacheStats struct {
	TotalEntries   int     `json:"total_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	ActiveEntries  int     `json:"active_entries"`
	SizeMB         float64 `json:"size_mb"`
}

// NewCache creates a cache rooted at dir. Zero values fall back to the
// defaults.
func NewCache(dir string, expiryHours int) (*Cache, error) {
	if dir == "" {
		dir = DefaultCacheDir
	}
	if expiryHours <= 0 {
		expiryHours = DefaultExpiryHours
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, expiry: time.Duration(expiryHours) * time.Hour}, nil
}

func (c *Cache) key(prompt, model string) string {
	sum := sha256.Sum256([]byte(model + ":" + prompt))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached response for the prompt, if present and fresh.
// Expired entries are deleted on the way out.
func (c *Cache) Get(prompt, model string) (string, bool) {
	key := c.key(prompt, model)
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		logging.Generation("WARN: unreadable cache entry %s: %v", key[:8], err)
		return "", false
	}

	if c.isExpired(entry) {
		os.Remove(c.path(key))
		return "", false
	}
	return entry.Response, true
}

// Set stores a response. Write failures are logged and swallowed; the
// cache is an optimization, never a required dependency.
func (c *Cache) Set(prompt, response, model string) {
	entry := cacheEntry{
		Prompt:    prompt,
		Response:  response,
		Model:     model,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		logging.Generation("WARN: failed to marshal cache entry: %v", err)
		return
	}
	if err := os.WriteFile(c.path(c.key(prompt, model)), data, 0644); err != nil {
		logging.Generation("WARN: failed to write cache entry: %v", err)
	}
}

func (c *Cache) isExpired(entry cacheEntry) bool {
	if entry.Timestamp.IsZero() {
		return true
	}
	return time.Now().After(entry.Timestamp.Add(c.expiry))
}

// ClearExpired removes all expired entries, returning how many were
// deleted.
func (c *Cache) ClearExpired() int {
	cleared := 0
	for _, path := range c.entryPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if c.isExpired(entry) {
			if os.Remove(path) == nil {
				cleared++
			}
		}
	}
	logging.Generation("cleared %d expired cache entries", cleared)
	return cleared
}

// ClearAll removes every entry.
func (c *Cache) ClearAll() int {
	cleared := 0
	for _, path := range c.entryPaths() {
		if os.Remove(path) == nil {
			cleared++
		}
	}
	logging.Generation("cleared all %d cache entries", cleared)
	return cleared
}

// Stats reports entry counts and total size.
func (c *Cache) Stats() CacheStats {
	var stats CacheStats
	var sizeBytes int64

	for _, path := range c.entryPaths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stats.TotalEntries++
		sizeBytes += info.Size()

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if c.isExpired(entry) {
			stats.ExpiredEntries++
		}
	}

	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	stats.SizeMB = float64(sizeBytes) / (1024 * 1024)
	return stats
}

func (c *Cache) entryPaths() []string {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return nil
	}
	return matches
}
