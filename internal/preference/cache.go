package preference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long cached profiles live when no TTL is configured.
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "placerank:profile:"

// Cache stores place profiles by key.
type Cache interface {
	// Get returns the cached profile and true, or false on a miss.
	Get(ctx context.Context, key string) (Profile, bool, error)
	Set(ctx context.Context, key string, p Profile, ttl time.Duration) error
}

// ProfileSource computes place profiles from review texts.
type ProfileSource interface {
	ProfileForPlace(ctx context.Context, texts []string) (Profile, error)
}

// CachedScorer serves place profiles from a cache, computing and storing them
// on a miss. Cache failures are logged and never fail a request.
type CachedScorer struct {
	source  ProfileSource
	cache   Cache
	ttl     time.Duration
	vocab   string
	metrics *Metrics
	logger  *slog.Logger
}

// NewCachedScorer wraps source with cache. The vocabulary is part of every
// key, so changing it invalidates stale profiles. metrics may be nil.
func NewCachedScorer(source ProfileSource, cache Cache, attributes []string, ttl time.Duration, metrics *Metrics, logger *slog.Logger) *CachedScorer {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	sum := sha256.Sum256([]byte(strings.Join(attributes, "\x1f")))
	return &CachedScorer{
		source:  source,
		cache:   cache,
		ttl:     ttl,
		vocab:   hex.EncodeToString(sum[:8]),
		metrics: metrics,
		logger:  logger,
	}
}

// ProfileForPlace returns the cached profile for texts, computing it on a miss.
func (c *CachedScorer) ProfileForPlace(ctx context.Context, texts []string) (Profile, error) {
	key := c.key(texts)

	p, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.incErrors()
		c.logger.WarnContext(ctx, "profile cache read failed", "error", err)
	case ok:
		c.metrics.incHits()
		return p, nil
	default:
		c.metrics.incMisses()
	}

	p, err = c.source.ProfileForPlace(ctx, texts)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, p, c.ttl); err != nil {
		c.metrics.incErrors()
		c.logger.WarnContext(ctx, "profile cache write failed", "error", err)
	}
	return p, nil
}

// Similarity returns the preference match score of profile for prefs.
func (c *CachedScorer) Similarity(prefs map[string]float64, profile Profile) float64 {
	return Similarity(prefs, profile)
}

func (c *CachedScorer) key(texts []string) string {
	h := sha256.New()
	for _, t := range texts {
		h.Write([]byte(t))
		h.Write([]byte{0x1e})
	}
	return cacheKeyPrefix + c.vocab + ":" + hex.EncodeToString(h.Sum(nil))
}

// RedisCache stores CBOR-encoded profiles in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed profile cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) (Profile, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var p Profile
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("decode profile: %w", err)
	}
	return p, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, p Profile, ttl time.Duration) error {
	data, err := cbor.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

type memoryEntry struct {
	profile Profile
	expires time.Time
}

// MemoryCache is an in-process Cache with per-entry expiry.
// Thread-safe for concurrent access.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Cache. Returned profiles are copies.
func (m *MemoryCache) Get(_ context.Context, key string) (Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return copyProfile(e.profile), true, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, p Profile, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{profile: copyProfile(p), expires: m.now().Add(ttl)}
	return nil
}

// Cleanup evicts every expired entry and returns how many were removed.
func (m *MemoryCache) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func copyProfile(p Profile) Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
