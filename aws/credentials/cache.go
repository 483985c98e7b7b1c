package credentials

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	awscore "github.com/prn-tf/awscore/aws"
)

// MetaDataCredentialCache wraps a metadata-backed Provider (EC2 or ECS) with
// a singleflight-deduplicated, expiration-aware cache: concurrent callers
// racing to refresh an expired credential collapse onto one network fetch
// instead of hammering the metadata endpoint.
type MetaDataCredentialCache struct {
	inner Provider

	mu      sync.Mutex
	current awscore.ExpiringCredential
	has     bool

	group singleflight.Group

	// RefreshWindow controls how long before expiration a cached credential
	// is considered stale and triggers a proactive refresh. Defaults to
	// 180s.
	RefreshWindow time.Duration
}

// defaultRefreshWindow is the cache-staleness guard's default: refresh a
// metadata credential starting 180s before it expires.
const defaultRefreshWindow = 180 * time.Second

// NewMetaDataCredentialCache wraps inner with caching and request
// deduplication.
func NewMetaDataCredentialCache(inner Provider) *MetaDataCredentialCache {
	return &MetaDataCredentialCache{inner: inner, RefreshWindow: defaultRefreshWindow}
}

func (c *MetaDataCredentialCache) Name() string { return "cached:" + c.inner.Name() }

func (c *MetaDataCredentialCache) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	c.mu.Lock()
	if c.has && !c.current.IsExpiringWithin(c.refreshWindow()) {
		cred := c.current
		c.mu.Unlock()
		return cred, nil
	}
	c.mu.Unlock()

	// singleflight ensures exactly one in-flight fetch across however many
	// goroutines observe the cache as stale at the same moment.
	v, err, _ := c.group.Do(c.inner.Name(), func() (interface{}, error) {
		return c.inner.Retrieve(ctx)
	})
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}

	cred := v.(awscore.ExpiringCredential)
	c.mu.Lock()
	c.current = cred
	c.has = true
	c.mu.Unlock()

	return cred, nil
}

func (c *MetaDataCredentialCache) refreshWindow() time.Duration {
	if c.RefreshWindow <= 0 {
		return defaultRefreshWindow
	}
	return c.RefreshWindow
}
