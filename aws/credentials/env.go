package credentials

import (
	"context"
	"os"

	awscore "github.com/prn-tf/awscore/aws"
)

// Standard AWS environment variable names, matching the CLI and SDK
// convention (see AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN).
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvSessionToken    = "AWS_SESSION_TOKEN"
)

// EnvProvider reads credentials from environment variables. It never
// expires; the caller is responsible for restarting the process to rotate.
type EnvProvider struct {
	// Getenv defaults to os.Getenv; overridable for tests.
	Getenv func(string) string
}

// NewEnvProvider builds an EnvProvider reading from the real environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{Getenv: os.Getenv}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	accessKey := getenv(EnvAccessKeyID)
	secretKey := getenv(EnvSecretAccessKey)
	if accessKey == "" || secretKey == "" {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{awscore.ErrMissingCredentials},
		}
	}

	return awscore.ExpiringCredential{
		Credential: awscore.Credential{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			SessionToken:    getenv(EnvSessionToken),
		},
		Expiration: NeverExpires,
	}, nil
}
