package credentials

import (
	"context"

	awscore "github.com/prn-tf/awscore/aws"
)

// Chain tries each Provider in order, returning the first successful
// credential. It does not cache across calls itself — wrap a metadata
// provider in a MetaDataCredentialCache before adding it to the chain if
// caching is desired.
type Chain struct {
	Providers []Provider
}

// NewChain builds a Chain over the given providers, tried in order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{Providers: providers}
}

// DefaultChain returns the standard resolution order: static callers inject
// their own; this constructs the rest — environment, shared file, ECS
// metadata, then EC2 IMDS, with the two metadata providers cached.
func DefaultChain() *Chain {
	return NewChain(
		NewEnvProvider(),
		NewSharedFileProvider("", ""),
		NewMetaDataCredentialCache(NewECSProvider()),
		NewMetaDataCredentialCache(NewEC2Provider()),
	)
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	var attempts []error
	for _, p := range c.Providers {
		cred, err := p.Retrieve(ctx)
		if err == nil {
			return cred, nil
		}
		attempts = append(attempts, err)
	}
	return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{Attempts: attempts}
}
