package credaudit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awscore "github.com/prn-tf/awscore/aws"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordAndQueryFailures(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordFetch(ctx, Record{
		ProviderName: "metadata:ec2", ServiceName: "s3", FetchedAt: time.Now().UTC(), Success: true,
	}))
	require.NoError(t, store.RecordFetch(ctx, Record{
		ProviderName: "metadata:ec2", ServiceName: "s3", FetchedAt: time.Now().UTC(), Success: false, ErrorMessage: "timeout",
	}))

	failures, err := store.RecentFailures(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "timeout", failures[0].ErrorMessage)
	assert.False(t, failures[0].Success)
}

func TestSQLiteStore_RecentFailuresExcludesOlderThanSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordFetch(ctx, Record{
		ProviderName: "env", ServiceName: "s3", FetchedAt: time.Now().Add(-2 * time.Hour), Success: false, ErrorMessage: "old failure",
	}))

	failures, err := store.RecentFailures(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, failures)
}

type fakeCredentialProvider struct {
	name string
	cred awscore.ExpiringCredential
	err  error
}

func (p fakeCredentialProvider) Name() string { return p.name }

func (p fakeCredentialProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	return p.cred, p.err
}

func TestAuditingProvider_RecordsSuccessAndPassesThroughCredential(t *testing.T) {
	store := newTestStore(t)
	inner := fakeCredentialProvider{name: "static", cred: awscore.ExpiringCredential{
		Credential: awscore.Credential{AccessKeyID: "AKIA"},
	}}
	provider := AuditingProvider{ServiceName: "s3", Inner: inner, Store: store}

	got, err := provider.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA", got.AccessKeyID)
	assert.Equal(t, "audited:static", provider.Name())

	failures, err := store.RecentFailures(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestAuditingProvider_RecordsFailureAndPropagatesError(t *testing.T) {
	store := newTestStore(t)
	inner := fakeCredentialProvider{name: "imds", err: errors.New("connection refused")}
	provider := AuditingProvider{ServiceName: "s3", Inner: inner, Store: store}

	_, err := provider.Retrieve(context.Background())
	assert.Error(t, err)

	failures, err := store.RecentFailures(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "connection refused", failures[0].ErrorMessage)
}
