// Package cache stores model tool-call answers in SQLite so that the same
// input, template and model are only sent to the model runner once.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrCacheDisabled indicates caching is disabled
	ErrCacheDisabled = errors.New("caching is disabled")
	// ErrNotFound indicates the entry was not found in cache
	ErrNotFound = errors.New("cache entry not found")
)

var log = logger.GetLogger("cache")

// Config holds cache configuration
type Config struct {
	DBPath  string        // Database file path (default: ~/.cache/brandify.db)
	TTL     time.Duration // Entry time-to-live, 0 keeps entries forever
	NoCache bool          // Disable caching
}

// Entry is one cached tool call.
type Entry struct {
	ExpiresAt *time.Time

	CacheKey    string
	Model       string
	Template    string
	InputDigest string
	// Arguments is the raw JSON arguments of the tool call.
	Arguments string

	ID           int64
	DurationMS   int64
	HitCount     int64
	CreatedAt    time.Time
	AccessedAt   time.Time
	TokensInput  int
	TokensOutput int
	TokensTotal  int
}

// StatsEntry aggregates entries per model.
type StatsEntry struct {
	Model         string    `json:"model" pretty:"label=Model"`
	Entries       int64     `json:"entries" pretty:"label=Entries"`
	Hits          int64     `json:"hits" pretty:"label=Hits"`
	TotalTokens   int64     `json:"totalTokens" pretty:"label=Tokens"`
	AvgDurationMS int64     `json:"avgDurationMs" pretty:"label=Avg ms"`
	FirstRequest  time.Time `json:"firstRequest" pretty:"label=First request"`
	LastRequest   time.Time `json:"lastRequest" pretty:"label=Last request"`
}

// Cache manages tool-call caching in SQLite
type Cache struct {
	db     *sql.DB
	config Config
	now    func() time.Time
	done   chan struct{}
	once   sync.Once
}

// New opens (and creates if needed) the cache database.
func New(config Config) (*Cache, error) {
	if config.DBPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		config.DBPath = filepath.Join(homeDir, ".cache", "brandify.db")
	}

	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(embeddedSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	c := &Cache{
		db:     db,
		config: config,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go c.cleanupExpired(time.Hour)
	return c, nil
}

// Path returns the database file.
func (c *Cache) Path() string {
	return c.config.DBPath
}

// Close stops the cleanup loop and closes the database.
func (c *Cache) Close() error {
	c.once.Do(func() { close(c.done) })
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Key derives the lookup key for a model, template and input digest.
func Key(model, template, inputDigest string) string {
	hash := sha256.Sum256([]byte(model + "|" + template + "|" + inputDigest))
	return fmt.Sprintf("%x", hash)
}

// Digest hashes input content for use in Key.
func Digest(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// Get returns the live entry for the key triple.
func (c *Cache) Get(model, template, inputDigest string) (*Entry, error) {
	if c.config.NoCache {
		return nil, ErrCacheDisabled
	}

	query := `
		SELECT id, cache_key, model, template, input_digest, arguments,
		       tokens_input, tokens_output, tokens_total, duration_ms, hit_count,
		       created_at, accessed_at, expires_at
		FROM style_cache
		WHERE cache_key = ? AND (expires_at IS NULL OR expires_at > ?)
	`

	var entry Entry
	var expiresAt sql.NullInt64
	err := c.db.QueryRow(query, Key(model, template, inputDigest), c.now().Unix()).Scan(
		&entry.ID, &entry.CacheKey, &entry.Model, &entry.Template, &entry.InputDigest, &entry.Arguments,
		&entry.TokensInput, &entry.TokensOutput, &entry.TokensTotal, &entry.DurationMS, &entry.HitCount,
		&entry.CreatedAt, &entry.AccessedAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0)
		entry.ExpiresAt = &t
	}

	_, _ = c.db.Exec("UPDATE style_cache SET accessed_at = CURRENT_TIMESTAMP, hit_count = hit_count + 1 WHERE id = ?", entry.ID)
	log.Debugf("Cache hit for %s/%s (model: %s)", template, inputDigest[:min(12, len(inputDigest))], model)
	return &entry, nil
}

// Set stores or replaces the entry for its key triple.
func (c *Cache) Set(entry *Entry) error {
	if c.config.NoCache {
		return nil
	}

	entry.CacheKey = Key(entry.Model, entry.Template, entry.InputDigest)

	var expiresAt *int64
	if c.config.TTL > 0 {
		exp := c.now().Add(c.config.TTL).Unix()
		expiresAt = &exp
	}

	query := `
		INSERT OR REPLACE INTO style_cache (
			cache_key, model, template, input_digest, arguments,
			tokens_input, tokens_output, tokens_total, duration_ms, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.Exec(query,
		entry.CacheKey, entry.Model, entry.Template, entry.InputDigest, entry.Arguments,
		entry.TokensInput, entry.TokensOutput, entry.TokensTotal, entry.DurationMS, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	log.Debugf("Cached tool call for %s (model: %s, tokens: %d)", entry.Template, entry.Model, entry.TokensTotal)
	return nil
}

// Stats aggregates entries per model, busiest first.
func (c *Cache) Stats() ([]StatsEntry, error) {
	query := `
		SELECT model,
		       COUNT(*),
		       COALESCE(SUM(hit_count), 0),
		       COALESCE(SUM(tokens_total), 0),
		       CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER),
		       MIN(created_at),
		       MAX(created_at)
		FROM style_cache
		GROUP BY model
		ORDER BY COUNT(*) DESC
	`
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	var stats []StatsEntry
	for rows.Next() {
		var s StatsEntry
		var first, last sql.NullString
		if err := rows.Scan(&s.Model, &s.Entries, &s.Hits, &s.TotalTokens, &s.AvgDurationMS, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s.FirstRequest = parseTimestamp(first.String)
		s.LastRequest = parseTimestamp(last.String)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// aggregates lose the column type, so timestamps come back as text
func parseTimestamp(v string) time.Time {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clear removes every entry and returns how many were deleted.
func (c *Cache) Clear() (int64, error) {
	result, err := c.db.Exec("DELETE FROM style_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	n, _ := result.RowsAffected()
	log.Debugf("Cleared %d cache entries", n)
	return n, nil
}

// PurgeExpired deletes entries past their TTL.
func (c *Cache) PurgeExpired() (int64, error) {
	result, err := c.db.Exec("DELETE FROM style_cache WHERE expires_at IS NOT NULL AND expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (c *Cache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if n, err := c.PurgeExpired(); err != nil {
				log.Debugf("Failed to cleanup expired entries: %v", err)
			} else if n > 0 {
				log.Debugf("Cleaned up %d expired cache entries", n)
			}
		}
	}
}
