package credentials

import (
	"context"

	awscore "github.com/prn-tf/awscore/aws"
)

// StaticProvider returns a fixed credential supplied directly by the caller,
// e.g. from application configuration. It never expires and never errors.
type StaticProvider struct {
	Credential awscore.Credential
}

// NewStaticProvider builds a StaticProvider around the given credential.
func NewStaticProvider(cred awscore.Credential) *StaticProvider {
	return &StaticProvider{Credential: cred}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	if p.Credential.IsAnonymous() {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{awscore.ErrMissingCredentials},
		}
	}
	return awscore.ExpiringCredential{
		Credential: p.Credential,
		Expiration: NeverExpires,
	}, nil
}
