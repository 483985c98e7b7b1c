package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	awscore "github.com/prn-tf/awscore/aws"
)

// Well-known metadata service endpoints, matching the EC2 instance-metadata
// and ECS task-metadata documentation.
const (
	ec2TokenPath     = "http://169.254.169.254/latest/api/token"
	ec2RoleNamePath  = "http://169.254.169.254/latest/meta-data/iam/security-credentials/"
	ecsDefaultHost   = "http://169.254.170.2"
	ecsRelativeEnv   = "AWS_CONTAINER_CREDENTIALS_RELATIVE_URI"
	ec2TokenTTLHdr   = "X-aws-ec2-metadata-token-ttl-seconds"
	ec2TokenHdr      = "X-aws-ec2-metadata-token"
	ec2TokenTTLValue = "21600"
)

// ecsRequestTimeout bounds the ECS task-metadata call so a hung or slow
// endpoint fails over to the next Chain provider within 2s instead of
// blocking indefinitely. A var, not a const, so tests can shrink it rather
// than waiting out the real bound.
var ecsRequestTimeout = 2 * time.Second

type metadataPayload struct {
	Code            string
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string
	Token           string
	Expiration      time.Time
}

// HTTPDoer is the minimal client surface the metadata providers need,
// satisfied by *http.Client; tests inject a fake.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ECSProvider fetches credentials from the ECS task metadata endpoint when
// AWS_CONTAINER_CREDENTIALS_RELATIVE_URI is set in the environment.
type ECSProvider struct {
	Client HTTPDoer
	Getenv func(string) string
}

// NewECSProvider builds an ECSProvider using http.DefaultClient.
func NewECSProvider() *ECSProvider {
	return &ECSProvider{Client: http.DefaultClient, Getenv: os.Getenv}
}

func (p *ECSProvider) Name() string { return "ecs-container" }

func (p *ECSProvider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	relative := getenv(ecsRelativeEnv)
	if relative == "" {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("%w: %s not set", awscore.ErrMissingCredentials, ecsRelativeEnv)},
		}
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, ecsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ecsDefaultHost+relative, nil)
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}
	return fetchMetadataCredential(client, req)
}

// EC2Provider fetches credentials from the EC2 instance metadata service,
// preferring IMDSv2 (token-gated) and falling back to the unauthenticated
// IMDSv1 flow when the token request fails, e.g. because the hop limit
// blocks it inside a container.
type EC2Provider struct {
	Client HTTPDoer
	// roleNameOverride and baseURLOverride exist for tests that point at a
	// local fixture server instead of the real link-local address.
	RoleNameOverride string
	BaseURLOverride  string
}

// NewEC2Provider builds an EC2Provider using http.DefaultClient.
func NewEC2Provider() *EC2Provider {
	return &EC2Provider{Client: http.DefaultClient}
}

func (p *EC2Provider) Name() string { return "ec2-imds" }

func (p *EC2Provider) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	roleNameURL := ec2RoleNamePath
	tokenURL := ec2TokenPath
	if p.BaseURLOverride != "" {
		roleNameURL = p.BaseURLOverride + "/latest/meta-data/iam/security-credentials/"
		tokenURL = p.BaseURLOverride + "/latest/api/token"
	}

	token, tokenErr := p.fetchIMDSv2Token(ctx, client, tokenURL)

	roleName := p.RoleNameOverride
	if roleName == "" {
		var err error
		roleName, err = p.fetchRoleName(ctx, client, roleNameURL, token)
		if err != nil {
			return awscore.ExpiringCredential{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, roleNameURL+roleName, nil)
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}
	if token != "" {
		req.Header.Set(ec2TokenHdr, token)
	}
	// tokenErr is intentionally not fatal: IMDSv1 proceeds without a token.
	_ = tokenErr

	return fetchMetadataCredential(client, req)
}

// fetchIMDSv2Token requests a session token. A failure here is not fatal —
// the caller falls back to the unauthenticated IMDSv1 request path.
func (p *EC2Provider) fetchIMDSv2Token(ctx context.Context, client HTTPDoer, tokenURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, tokenURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(ec2TokenTTLHdr, ec2TokenTTLValue)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imds token request failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (p *EC2Provider) fetchRoleName(ctx context.Context, client HTTPDoer, roleNameURL, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, roleNameURL, nil)
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set(ec2TokenHdr, token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &awscore.CredentialProviderError{Attempts: []error{err}}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("imds role-name request failed: status %d", resp.StatusCode)},
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func fetchMetadataCredential(client HTTPDoer, req *http.Request) (awscore.ExpiringCredential, error) {
	resp, err := client.Do(req)
	if err != nil {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{Attempts: []error{err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("metadata service request failed: status %d", resp.StatusCode)},
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}

	var payload metadataPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("failed to parse metadata service response: %w", err)},
		}
	}
	// The EC2 role-name endpoint returns a Code field; the ECS endpoint does
	// not, so only check it when present.
	if payload.Code != "" && payload.Code != "Success" {
		return awscore.ExpiringCredential{}, &awscore.CredentialProviderError{
			Attempts: []error{fmt.Errorf("metadata service query did not succeed: %s", payload.Code)},
		}
	}

	return awscore.ExpiringCredential{
		Credential: awscore.Credential{
			AccessKeyID:     payload.AccessKeyID,
			SecretAccessKey: payload.SecretAccessKey,
			SessionToken:    payload.Token,
		},
		Expiration: payload.Expiration,
	}, nil
}
