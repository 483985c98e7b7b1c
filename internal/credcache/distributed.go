// Package credcache provides an optional second caching tier in front of
// aws/credentials.Provider, for deployments running many processes that
// would otherwise each hammer the same metadata endpoint independently.
// It mirrors the teacher's internal/lock.RedisLocker /
// internal/repository.Cache duality: Redis holds the shared, TTL-bounded
// credential blob, and a distributed lock (SetNX) collapses concurrent
// refreshes across processes the same way aws/credentials.Cache's
// singleflight.Group collapses them within one process.
package credcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	awscore "github.com/prn-tf/awscore/aws"
	"github.com/prn-tf/awscore/aws/credentials"
)

// DistributedCredentialCache wraps inner with a Redis-backed cache shared
// across every process pointed at the same Redis instance. Within one
// process, callers should still wrap inner (or this cache) in
// credentials.MetaDataCredentialCache to dedupe concurrent local
// goroutines; this type addresses cross-process deduplication only.
type DistributedCredentialCache struct {
	inner  credentials.Provider
	client *redis.Client
	key    string

	// RefreshWindow mirrors credentials.MetaDataCredentialCache's field:
	// how long before expiration a cached entry is treated as stale.
	RefreshWindow time.Duration
	// LockTTL bounds how long one process holds the refresh lock before
	// another is allowed to try, guarding against a crashed holder
	// wedging every other process out indefinitely.
	LockTTL time.Duration
}

// NewDistributedCredentialCache wraps inner with a Redis-shared cache keyed
// by key (callers typically derive key from the service/account/role so
// distinct credential sets don't collide in one Redis instance).
func NewDistributedCredentialCache(inner credentials.Provider, client *redis.Client, key string) *DistributedCredentialCache {
	return &DistributedCredentialCache{
		inner:         inner,
		client:        client,
		key:           key,
		RefreshWindow: 5 * time.Minute,
		LockTTL:       10 * time.Second,
	}
}

func (c *DistributedCredentialCache) Name() string { return "distributed:" + c.inner.Name() }

// cachedCredential is the JSON shape stored in Redis. Expiration is carried
// explicitly rather than relied on via Redis TTL, since the stored TTL is
// set conservatively (RefreshWindow early) to leave room for a refresh
// before the real expiration.
type cachedCredential struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

func (c *DistributedCredentialCache) lockKey() string { return "lock:credcache:" + c.key }

// Retrieve returns the shared cached credential when fresh, otherwise
// refreshes it — acquiring a short-lived Redis lock first so that only one
// process among many sharing this cache key performs the underlying fetch.
// A process that loses the lock race polls the cache briefly rather than
// calling inner itself, keeping the dedup property cross-process.
func (c *DistributedCredentialCache) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	if cred, ok, err := c.readCache(ctx); err != nil {
		return awscore.ExpiringCredential{}, err
	} else if ok {
		return cred, nil
	}

	acquired, err := c.client.SetNX(ctx, c.lockKey(), "1", c.lockTTL()).Result()
	if err != nil {
		return awscore.ExpiringCredential{}, fmt.Errorf("credcache: acquiring refresh lock: %w", err)
	}
	if !acquired {
		return c.waitForPeerRefresh(ctx)
	}
	defer c.client.Del(context.Background(), c.lockKey())

	// Re-check after acquiring the lock: another process may have
	// refreshed and written a fresh entry between our first read and the
	// successful SetNX.
	if cred, ok, err := c.readCache(ctx); err != nil {
		return awscore.ExpiringCredential{}, err
	} else if ok {
		return cred, nil
	}

	cred, err := c.inner.Retrieve(ctx)
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}
	if err := c.writeCache(ctx, cred); err != nil {
		return awscore.ExpiringCredential{}, err
	}
	return cred, nil
}

func (c *DistributedCredentialCache) readCache(ctx context.Context) (awscore.ExpiringCredential, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return awscore.ExpiringCredential{}, false, nil
	}
	if err != nil {
		return awscore.ExpiringCredential{}, false, fmt.Errorf("credcache: reading cache: %w", err)
	}

	var stored cachedCredential
	if err := json.Unmarshal(raw, &stored); err != nil {
		return awscore.ExpiringCredential{}, false, fmt.Errorf("credcache: decoding cached credential: %w", err)
	}

	cred := awscore.ExpiringCredential{
		Credential: awscore.Credential{
			AccessKeyID:     stored.AccessKeyID,
			SecretAccessKey: stored.SecretAccessKey,
			SessionToken:    stored.SessionToken,
		},
		Expiration: stored.Expiration,
	}
	if cred.IsExpiringWithin(c.refreshWindow()) {
		return awscore.ExpiringCredential{}, false, nil
	}
	return cred, true, nil
}

func (c *DistributedCredentialCache) writeCache(ctx context.Context, cred awscore.ExpiringCredential) error {
	stored := cachedCredential{
		AccessKeyID:     cred.AccessKeyID,
		SecretAccessKey: cred.SecretAccessKey,
		SessionToken:    cred.SessionToken,
		Expiration:      cred.Expiration,
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("credcache: encoding credential: %w", err)
	}

	ttl := time.Until(cred.Expiration) - c.refreshWindow()
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("credcache: writing cache: %w", err)
	}
	return nil
}

// waitForPeerRefresh polls the cache briefly while another process holds
// the refresh lock, falling back to a direct inner.Retrieve if the peer
// doesn't finish before lockTTL elapses.
func (c *DistributedCredentialCache) waitForPeerRefresh(ctx context.Context) (awscore.ExpiringCredential, error) {
	deadline := time.Now().Add(c.lockTTL())
	const pollInterval = 100 * time.Millisecond

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return awscore.ExpiringCredential{}, ctx.Err()
		case <-time.After(pollInterval):
		}
		if cred, ok, err := c.readCache(ctx); err != nil {
			return awscore.ExpiringCredential{}, err
		} else if ok {
			return cred, nil
		}
	}
	return c.inner.Retrieve(ctx)
}

func (c *DistributedCredentialCache) refreshWindow() time.Duration {
	if c.RefreshWindow <= 0 {
		return 5 * time.Minute
	}
	return c.RefreshWindow
}

func (c *DistributedCredentialCache) lockTTL() time.Duration {
	if c.LockTTL <= 0 {
		return 10 * time.Second
	}
	return c.LockTTL
}
