package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	awscore "github.com/prn-tf/awscore/aws"
)

// DefaultSharedCredentialsFilename returns ~/.aws/credentials, matching the
// AWS CLI's own default, honoring AWS_SHARED_CREDENTIALS_FILE when set.
func DefaultSharedCredentialsFilename() string {
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", "credentials")
}

// SharedFileProvider reads a named profile section out of an INI-format
// shared credentials file.
type SharedFileProvider struct {
	Filename string
	Profile  string
}

// NewSharedFileProvider builds a SharedFileProvider. An empty filename
// resolves to DefaultSharedCredentialsFilename(); an empty profile resolves
// to "default".
func NewSharedFileProvider(filename, profile string) *SharedFileProvider {
	if filename == "" {
		filename = DefaultSharedCredentialsFilename()
	}
	if profile == "" {
		profile = "default"
	}
	return &SharedFileProvider{Filename: filename, Profile: profile}
}

func (p *SharedFileProvider) Name() string { return "shared-file:" + p.Profile }

func (p *SharedFileProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	if p.Filename == "" {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("%w: no shared credentials file path resolved", awscore.ErrMissingCredentials)},
		}
	}

	cfg, err := ini.Load(p.Filename)
	if err != nil {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("%w: reading %s: %v", awscore.ErrMissingCredentials, p.Filename, err)},
		}
	}

	section, err := cfg.GetSection(p.Profile)
	if err != nil {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("%w: profile %q not found in %s", awscore.ErrMissingCredentials, p.Profile, p.Filename)},
		}
	}

	accessKey := section.Key("aws_access_key_id").String()
	secretKey := section.Key("aws_secret_access_key").String()
	if accessKey == "" || secretKey == "" {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("%w: profile %q missing access key or secret key", awscore.ErrMissingCredentials, p.Profile)},
		}
	}

	return awscore.ExpiringCredential{
		Credential: awscore.Credential{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			SessionToken:    section.Key("aws_session_token").String(),
		},
		Expiration: NeverExpires,
	}, nil
}
