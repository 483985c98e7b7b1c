package filecache

import (
	"context"

	awscore "github.com/prn-tf/awscore/aws"
	"github.com/prn-tf/awscore/aws/credentials"
)

// FallbackProvider wraps inner with an encrypted on-disk cache: a
// successful Retrieve updates the file, and a failed Retrieve falls back
// to whatever was last written there (if it hasn't expired) instead of
// propagating the error. This is strictly a last-resort path — a fresh
// fetch from inner is always preferred over the file when inner succeeds.
type FallbackProvider struct {
	inner credentials.Provider
	cache *Cache
}

// NewFallbackProvider wraps inner with a Cache backed by path and
// passphrase.
func NewFallbackProvider(inner credentials.Provider, path, passphrase, purpose string) *FallbackProvider {
	return &FallbackProvider{inner: inner, cache: New(path, passphrase, purpose)}
}

func (p *FallbackProvider) Name() string { return "filecached:" + p.inner.Name() }

func (p *FallbackProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	cred, err := p.inner.Retrieve(ctx)
	if err == nil {
		// Best-effort: a failed write here shouldn't fail a successful
		// fetch, since the live credential is still valid without it.
		_ = p.cache.Store(cred)
		return cred, nil
	}

	cached, cacheErr := p.cache.Load()
	if cacheErr != nil || cached.IsExpiringWithin(0) {
		return awscore.ExpiringCredential{}, err
	}
	return cached, nil
}
