package credcache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	awscore "github.com/prn-tf/awscore/aws"
)

type fakeProvider struct {
	name string
	cred awscore.ExpiringCredential
	err  error
	n    int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	p.n++
	return p.cred, p.err
}

func TestDistributedCredentialCache_Name(t *testing.T) {
	inner := &fakeProvider{name: "metadata:ec2"}
	cache := NewDistributedCredentialCache(inner, redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "svc:ec2")
	assert.Equal(t, "distributed:metadata:ec2", cache.Name())
}

func TestDistributedCredentialCache_DefaultsWhenUnset(t *testing.T) {
	cache := &DistributedCredentialCache{}
	assert.Equal(t, 5*time.Minute, cache.refreshWindow())
	assert.Equal(t, 10*time.Second, cache.lockTTL())
}

func TestDistributedCredentialCache_HonorsExplicitTunables(t *testing.T) {
	cache := &DistributedCredentialCache{RefreshWindow: time.Minute, LockTTL: 2 * time.Second}
	assert.Equal(t, time.Minute, cache.refreshWindow())
	assert.Equal(t, 2*time.Second, cache.lockTTL())
}

func TestDistributedCredentialCache_LockKeyIsScopedToCacheKey(t *testing.T) {
	cache := &DistributedCredentialCache{key: "svc:ec2-role"}
	assert.Equal(t, "lock:credcache:svc:ec2-role", cache.lockKey())
}
