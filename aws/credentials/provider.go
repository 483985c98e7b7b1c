// Package credentials implements the multi-source credential resolution
// chain: static, environment, shared INI file, ECS container metadata, and
// EC2 IMDSv2-with-v1-fallback, composed behind a Chain that tries each in
// order and a cache that deduplicates concurrent metadata fetches.
package credentials

import (
	"context"
	"time"

	awscore "github.com/prn-tf/awscore/aws"
)

// Provider resolves one credential. Implementations must be safe for
// concurrent use; callers invoke Retrieve from multiple goroutines issuing
// requests in parallel.
type Provider interface {
	Retrieve(ctx context.Context) (awscore.ExpiringCredential, error)
	// Name identifies the provider for logging and error attribution.
	Name() string
}

// NeverExpires is used by providers (static, environment) whose credential
// has no expiration of its own.
var NeverExpires = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
