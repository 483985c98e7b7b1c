// Package compat adapts this module's credential and config types to and
// from github.com/aws/aws-sdk-go-v2/aws, so a caller migrating an existing
// aws-sdk-go-v2 service client can plug this module's credential chain (or
// its signer) into SDK-v2-shaped code without rewriting either side.
package compat

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"

	awscore "github.com/prn-tf/awscore/aws"
	"github.com/prn-tf/awscore/aws/credentials"
)

// ToSDKCredentials converts one of this module's resolved credentials into
// the aws-sdk-go-v2 shape, preserving the anonymous-credential convention
// (empty AccessKeyID) that sdkaws.Credentials also recognizes via
// HasKeys().
func ToSDKCredentials(cred awscore.ExpiringCredential) sdkaws.Credentials {
	return sdkaws.Credentials{
		AccessKeyID:     cred.AccessKeyID,
		SecretAccessKey: cred.SecretAccessKey,
		SessionToken:    cred.SessionToken,
		CanExpire:       !cred.Expiration.Equal(credentials.NeverExpires),
		Expires:         cred.Expiration,
	}
}

// FromSDKCredentials is the inverse of ToSDKCredentials.
func FromSDKCredentials(cred sdkaws.Credentials) awscore.ExpiringCredential {
	expiration := credentials.NeverExpires
	if cred.CanExpire {
		expiration = cred.Expires
	}
	return awscore.ExpiringCredential{
		Credential: awscore.Credential{
			AccessKeyID:     cred.AccessKeyID,
			SecretAccessKey: cred.SecretAccessKey,
			SessionToken:    cred.SessionToken,
		},
		Expiration: expiration,
	}
}

// ProviderAdapter wraps one of this module's credentials.Provider behind
// the aws-sdk-go-v2 CredentialsProvider interface, so it can be handed to
// an sdkaws.Config.Credentials field directly.
type ProviderAdapter struct {
	Provider credentials.Provider
}

// Retrieve implements sdkaws.CredentialsProvider.
func (a ProviderAdapter) Retrieve(ctx context.Context) (sdkaws.Credentials, error) {
	cred, err := a.Provider.Retrieve(ctx)
	if err != nil {
		return sdkaws.Credentials{}, err
	}
	return ToSDKCredentials(cred), nil
}

// sdkProviderWrapper lets an aws-sdk-go-v2 CredentialsProvider serve as one
// of this module's credentials.Provider, for the reverse migration
// direction (an application already holding an sdkaws.CredentialsProvider,
// e.g. from ec2rolecreds or stscreds, that wants to feed this module's
// Chain/Cache instead of rewriting its own resolution logic).
type sdkProviderWrapper struct {
	name     string
	delegate sdkaws.CredentialsProvider
}

// WrapSDKProvider adapts an aws-sdk-go-v2 CredentialsProvider into this
// module's credentials.Provider interface.
func WrapSDKProvider(name string, delegate sdkaws.CredentialsProvider) credentials.Provider {
	return sdkProviderWrapper{name: name, delegate: delegate}
}

func (w sdkProviderWrapper) Name() string { return w.name }

func (w sdkProviderWrapper) Retrieve(ctx context.Context) (awscore.ExpiringCredential, error) {
	cred, err := w.delegate.Retrieve(ctx)
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}
	return FromSDKCredentials(cred), nil
}

// Region returns cfg's region, the one sdkaws.Config field this module's
// ServiceConfig cares about when a caller builds both configs from the
// same loaded aws-sdk-go-v2 Config.
func Region(cfg sdkaws.Config) string {
	return cfg.Region
}
