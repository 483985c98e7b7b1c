package credentials

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awscore "github.com/prn-tf/awscore/aws"
)

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "SECRET"})
	cred, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", cred.AccessKeyID)
	assert.Equal(t, NeverExpires, cred.Expiration)
}

func TestStaticProvider_Anonymous(t *testing.T) {
	p := NewStaticProvider(awscore.Credential{})
	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, awscore.ErrMissingCredentials)
}

func TestEnvProvider(t *testing.T) {
	env := map[string]string{
		EnvAccessKeyID:     "AKID",
		EnvSecretAccessKey: "SECRET",
		EnvSessionToken:    "TOKEN",
	}
	p := &EnvProvider{Getenv: func(k string) string { return env[k] }}
	cred, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", cred.AccessKeyID)
	assert.Equal(t, "TOKEN", cred.SessionToken)
}

func TestEnvProvider_Missing(t *testing.T) {
	p := &EnvProvider{Getenv: func(k string) string { return "" }}
	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
}

func TestSharedFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")
	contents := "[default]\naws_access_key_id = AKID\naws_secret_access_key = SECRET\n\n" +
		"[other]\naws_access_key_id = AKID2\naws_secret_access_key = SECRET2\naws_session_token = TOK2\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	p := NewSharedFileProvider(path, "")
	cred, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", cred.AccessKeyID)
	assert.Equal(t, "SECRET", cred.SecretAccessKey)

	p2 := NewSharedFileProvider(path, "other")
	cred2, err := p2.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID2", cred2.AccessKeyID)
	assert.Equal(t, "TOK2", cred2.SessionToken)
}

func TestSharedFileProvider_MissingProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(path, []byte("[default]\naws_access_key_id = AKID\naws_secret_access_key = SECRET\n"), 0o600))

	p := NewSharedFileProvider(path, "nonexistent")
	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
}

func TestECSProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/creds", r.URL.Path)
		w.Write([]byte(`{"AccessKeyId":"AKID","SecretAccessKey":"SECRET","Token":"TOK","Expiration":"2099-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	p := &ECSProvider{
		// redirect the hardcoded ECS host to the test server instead of the
		// real link-local address.
		Client: &redirectingClient{base: srv.URL},
		Getenv: func(k string) string {
			if k == ecsRelativeEnv {
				return "/v2/creds"
			}
			return ""
		},
	}

	cred, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", cred.AccessKeyID)
	assert.Equal(t, "TOK", cred.SessionToken)
}

func TestECSProvider_TimesOutOnHungEndpoint(t *testing.T) {
	blocked := make(chan struct{})
	defer close(blocked)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()

	orig := ecsRequestTimeout
	ecsRequestTimeout = 20 * time.Millisecond
	defer func() { ecsRequestTimeout = orig }()

	p := &ECSProvider{
		Client: &redirectingClient{base: srv.URL},
		Getenv: func(k string) string {
			if k == ecsRelativeEnv {
				return "/v2/creds"
			}
			return ""
		},
	}

	start := time.Now()
	_, err := p.Retrieve(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, time.Second)
}

func TestECSProvider_NotConfigured(t *testing.T) {
	p := &ECSProvider{Getenv: func(string) string { return "" }}
	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
}

func TestEC2Provider_IMDSv2(t *testing.T) {
	var sawToken bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/latest/api/token":
			w.Write([]byte("tokenvalue"))
		case r.URL.Path == "/latest/meta-data/iam/security-credentials/":
			if r.Header.Get(ec2TokenHdr) == "tokenvalue" {
				sawToken = true
			}
			w.Write([]byte("my-role"))
		case r.URL.Path == "/latest/meta-data/iam/security-credentials/my-role":
			w.Write([]byte(`{"Code":"Success","AccessKeyId":"AKID","SecretAccessKey":"SECRET","Token":"TOK","Expiration":"2099-01-01T00:00:00Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := &EC2Provider{Client: srv.Client(), BaseURLOverride: srv.URL}
	cred, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", cred.AccessKeyID)
	assert.True(t, sawToken)
}

func TestEC2Provider_FallsBackToV1WhenTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/latest/api/token":
			w.WriteHeader(http.StatusForbidden)
		case r.URL.Path == "/latest/meta-data/iam/security-credentials/":
			assert.Empty(t, r.Header.Get(ec2TokenHdr))
			w.Write([]byte("my-role"))
		case r.URL.Path == "/latest/meta-data/iam/security-credentials/my-role":
			w.Write([]byte(`{"Code":"Success","AccessKeyId":"AKID","SecretAccessKey":"SECRET","Expiration":"2099-01-01T00:00:00Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := &EC2Provider{Client: srv.Client(), BaseURLOverride: srv.URL}
	cred, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", cred.AccessKeyID)
}

func TestMetaDataCredentialCache_DeduplicatesConcurrentFetches(t *testing.T) {
	var fetches int32
	fp := &fakeProvider{
		retrieve: func() (awscore.ExpiringCredential, error) {
			fetches++
			return awscore.ExpiringCredential{
				Credential: awscore.Credential{AccessKeyID: "AKID"},
				Expiration: time.Now().Add(time.Hour),
			}, nil
		},
	}
	cache := NewMetaDataCredentialCache(fp)

	const n = 20
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := cache.Retrieve(context.Background())
			assert.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	assert.Equal(t, int32(1), fetches)
}

func TestMetaDataCredentialCache_RefreshesWhenStale(t *testing.T) {
	var fetches int
	fp := &fakeProvider{
		retrieve: func() (awscore.ExpiringCredential, error) {
			fetches++
			return awscore.ExpiringCredential{
				Credential: awscore.Credential{AccessKeyID: "AKID"},
				Expiration: time.Now().Add(time.Millisecond),
			}, nil
		},
	}
	cache := NewMetaDataCredentialCache(fp)
	cache.RefreshWindow = time.Hour // force everything to look stale

	_, err := cache.Retrieve(context.Background())
	require.NoError(t, err)
	_, err = cache.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
}

func TestMetaDataCredentialCache_DefaultRefreshWindowIs180Seconds(t *testing.T) {
	cache := NewMetaDataCredentialCache(&fakeProvider{})
	assert.Equal(t, 180*time.Second, cache.RefreshWindow)
	assert.Equal(t, 180*time.Second, cache.refreshWindow())
}

func TestChain_FirstSuccessWins(t *testing.T) {
	failing := &fakeProvider{retrieve: func() (awscore.ExpiringCredential, error) {
		return awscore.ExpiringCredential{}, errors.New("boom")
	}}
	succeeding := &fakeProvider{retrieve: func() (awscore.ExpiringCredential, error) {
		return awscore.ExpiringCredential{Credential: awscore.Credential{AccessKeyID: "AKID"}}, nil
	}}

	chain := NewChain(failing, succeeding)
	cred, err := chain.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", cred.AccessKeyID)
}

func TestChain_AllFail(t *testing.T) {
	failing := &fakeProvider{retrieve: func() (awscore.ExpiringCredential, error) {
		return awscore.ExpiringCredential{}, errors.New("boom")
	}}
	chain := NewChain(failing, failing)
	_, err := chain.Retrieve(context.Background())
	require.Error(t, err)
	var cpErr *awscore.CredentialProviderError
	require.ErrorAs(t, err, &cpErr)
	assert.Len(t, cpErr.Attempts, 2)
}

type fakeProvider struct {
	retrieve func() (awscore.ExpiringCredential, error)
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	return f.retrieve()
}

// redirectingClient rewrites requests destined for the hardcoded ECS host to
// the test server's address, so ECSProvider's real code path (which builds
// its request URL from ecsDefaultHost) can be tested against an httptest
// server instead of the unreachable link-local address.
type redirectingClient struct {
	base string
}

func (c *redirectingClient) Do(req *http.Request) (*http.Response, error) {
	u, err := req.URL.Parse(c.base + req.URL.Path)
	if err != nil {
		return nil, err
	}
	req2 := req.Clone(req.Context())
	req2.URL = u
	req2.Host = ""
	return http.DefaultClient.Do(req2)
}
