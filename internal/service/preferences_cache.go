package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/observability/metrics"
	"github.com/target/mmk-outbound/internal/observability/statsd"
)

const (
	preferencesKeyPrefix = "outbound:prefs:"
	identityKeyPrefix    = "outbound:identity:"

	cachePreferences = "preferences"
	cacheIdentity    = "identity"

	// DefaultPreferencesCacheTTL bounds how stale a cached consent decision may be.
	DefaultPreferencesCacheTTL = 30 * time.Second
)

// absentMarker records a confirmed missing row so repeated lookups skip the database.
var absentMarker = []byte("null")

// CachedPreferencesOptions configures CachedPreferences.
type CachedPreferencesOptions struct {
	Preferences core.PreferencesRepository // Required
	Identities  core.IdentityRepository    // Required
	Cache       CacheConfig
}

// CacheConfig groups the optional cache dependencies.
type CacheConfig struct {
	Repo    core.CacheRepository // Optional: nil disables caching
	TTL     time.Duration
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// CachedPreferences is a read-through Redis cache in front of the preferences and
// identity repositories. Cache failures fall back to the database; they never fail a lookup.
type CachedPreferences struct {
	prefs      core.PreferencesRepository
	identities core.IdentityRepository
	cache      core.CacheRepository
	ttl        time.Duration
	metrics    statsd.Sink
	logger     *slog.Logger
}

var (
	_ core.PreferencesRepository = (*CachedPreferences)(nil)
	_ core.IdentityRepository    = (*cachedIdentities)(nil)
)

// NewCachedPreferences constructs a CachedPreferences.
func NewCachedPreferences(opts CachedPreferencesOptions) *CachedPreferences {
	if opts.Preferences == nil {
		panic("PreferencesRepository is required")
	}
	if opts.Identities == nil {
		panic("IdentityRepository is required")
	}
	ttl := opts.Cache.TTL
	if ttl <= 0 {
		ttl = DefaultPreferencesCacheTTL
	}
	sink := opts.Cache.Metrics
	if sink == nil {
		sink = statsd.Discard
	}
	logger := opts.Cache.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedPreferences{
		prefs:      opts.Preferences,
		identities: opts.Identities,
		cache:      opts.Cache.Repo,
		ttl:        ttl,
		metrics:    sink,
		logger:     logger.With("component", "preferences_cache"),
	}
}

// Get returns the customer's preferences, consulting the cache first.
func (c *CachedPreferences) Get(ctx context.Context, customerID string) (*model.CommPreferences, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, nil
	}
	key := preferencesKeyPrefix + customerID

	var cached *model.CommPreferences
	if hit := c.lookup(ctx, cachePreferences, key, &cached); hit {
		return cached, nil
	}

	prefs, err := c.prefs.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cachePreferences, key, prefs)
	return prefs, nil
}

// Upsert writes through to the repository and invalidates the cached entry.
func (c *CachedPreferences) Upsert(ctx context.Context, prefs *model.CommPreferences) error {
	if err := c.prefs.Upsert(ctx, prefs); err != nil {
		return err
	}
	c.invalidate(ctx, cachePreferences, preferencesKeyPrefix+strings.TrimSpace(prefs.CustomerID))
	return nil
}

// Identities returns the cached view of the identity repository.
func (c *CachedPreferences) Identities() core.IdentityRepository {
	return &cachedIdentities{parent: c}
}

type cachedIdentities struct {
	parent *CachedPreferences
}

func identityKey(channel model.Channel, address string) string {
	return identityKeyPrefix + string(channel) + ":" + address
}

func (ci *cachedIdentities) Lookup(ctx context.Context, channel model.Channel, address string) (*model.IdentityLink, error) {
	c := ci.parent
	key := identityKey(channel, address)

	var cached *model.IdentityLink
	if hit := c.lookup(ctx, cacheIdentity, key, &cached); hit {
		return cached, nil
	}

	link, err := c.identities.Lookup(ctx, channel, address)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheIdentity, key, link)
	return link, nil
}

func (ci *cachedIdentities) Upsert(ctx context.Context, link *model.IdentityLink) error {
	c := ci.parent
	if err := c.identities.Upsert(ctx, link); err != nil {
		return err
	}
	c.invalidate(ctx, cacheIdentity, identityKey(link.Channel, link.Address))
	return nil
}

// lookup decodes a cached value into dst. It reports false on a miss or any cache error.
func (c *CachedPreferences) lookup(ctx context.Context, name, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed", "cache", name, "error", err)
		metrics.EmitCacheEvent(c.metrics, name, "miss", false)
		return false
	}
	if raw == nil {
		metrics.EmitCacheEvent(c.metrics, name, "miss", true)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WarnContext(ctx, "cache entry undecodable", "cache", name, "error", err)
		metrics.EmitCacheEvent(c.metrics, name, "miss", false)
		return false
	}
	metrics.EmitCacheEvent(c.metrics, name, "hit", true)
	return true
}

func (c *CachedPreferences) store(ctx context.Context, name, key string, v any) {
	if c.cache == nil {
		return
	}
	raw := absentMarker
	if v != nil && !isNilPointer(v) {
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		raw = b
	}
	err := c.cache.Set(ctx, key, raw, c.ttl)
	if err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "cache", name, "error", err)
	}
	metrics.EmitCacheEvent(c.metrics, name, "write", err == nil)
}

func (c *CachedPreferences) invalidate(ctx context.Context, name, key string) {
	if c.cache == nil {
		return
	}
	_, err := c.cache.Delete(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "cache", name, "error", err)
	}
	metrics.EmitCacheEvent(c.metrics, name, "invalidate", err == nil)
}

func isNilPointer(v any) bool {
	switch p := v.(type) {
	case *model.CommPreferences:
		return p == nil
	case *model.IdentityLink:
		return p == nil
	}
	return false
}
