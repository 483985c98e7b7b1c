// Package credaudit records every credential fetch — success or failure —
// to a durable store, so an operator can answer "when did this process
// last get a working credential from IMDS" after the fact without relying
// on log retention. It follows the teacher's dual-driver repository split
// (internal/repository/postgres and internal/repository/sqlite): the same
// Store interface, a pgx-backed implementation for multi-instance
// deployments, and a modernc.org/sqlite-backed one for single-binary /
// embedded deployments.
package credaudit

import (
	"context"
	"time"

	awscore "github.com/prn-tf/awscore/aws"
	"github.com/prn-tf/awscore/aws/credentials"
)

// Record is one credential-fetch attempt.
type Record struct {
	ProviderName string
	ServiceName  string
	FetchedAt    time.Time
	Success      bool
	ErrorMessage string
}

// Store persists and queries credential-fetch records.
type Store interface {
	RecordFetch(ctx context.Context, rec Record) error
	// RecentFailures returns failed fetches at or after since, newest
	// first, for surfacing in an operator dashboard or CLI.
	RecentFailures(ctx context.Context, since time.Time) ([]Record, error)
	Close() error
}

// AuditingProvider wraps a credentials.Provider and writes one Record per
// Retrieve call, regardless of outcome, before returning the wrapped
// provider's result unchanged.
type AuditingProvider struct {
	ServiceName string
	Inner       credentials.Provider
	Store       Store
}

// Name implements credentials.Provider.
func (p AuditingProvider) Name() string { return "audited:" + p.Inner.Name() }

// Retrieve implements credentials.Provider. Audit-write failures are
// swallowed: a credential fetch must never fail because the audit sink is
// unavailable, and the caller has no channel to surface a secondary error
// through anyway.
func (p AuditingProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	cred, err := p.Inner.Retrieve(ctx)

	rec := Record{
		ProviderName: p.Inner.Name(),
		ServiceName:  p.ServiceName,
		FetchedAt:    time.Now().UTC(),
		Success:      err == nil,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	_ = p.Store.RecordFetch(ctx, rec)

	return cred, err
}
