package awsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awscore "github.com/prn-tf/awscore/aws"
	"github.com/prn-tf/awscore/aws/credentials"
	"github.com/prn-tf/awscore/aws/retry"
)

func describeEchoOperation() awscore.OperationDescriptor {
	return awscore.OperationDescriptor{
		Name:   "EchoThing",
		Path:   "/things/{id}",
		Method: "GET",
		Bindings: []awscore.FieldBinding{
			{
				WireName: "id",
				Location: awscore.LocationPath,
				Get:      func() (string, bool) { return "42", true },
			},
		},
		DecodeInto: func(dialect awscore.Protocol, body awscore.Body, headers map[string]string) error {
			return nil
		},
	}
}

func newRestJSONConfig(endpoint string) awscore.ServiceConfig {
	return awscore.ServiceConfig{
		Region:      "us-east-1",
		ServiceName: "thingservice",
		Protocol:    awscore.ProtocolRestJSON,
		Endpoint:    endpoint,
	}
}

func TestClient_ExecuteSucceedsOnFirstAttempt(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cred := credentials.NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"})
	client := New(newRestJSONConfig(srv.URL), cred, WithTransport(srv.Client()))
	defer client.Shutdown()

	resp, err := client.Execute(context.Background(), describeEchoOperation())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/things/42", gotPath)
}

func TestClient_ExecuteRetriesOnServerErrorThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.Header().Set("X-Amzn-Errortype", "ServiceUnavailableException")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"message":"try again"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cred := credentials.NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"})
	policy := retry.NewJitterPolicy(3, time.Millisecond, 4*time.Millisecond)
	client := New(newRestJSONConfig(srv.URL), cred, WithTransport(srv.Client()), WithRetryPolicy(policy))
	defer client.Shutdown()

	resp, err := client.Execute(context.Background(), describeEchoOperation())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestClient_ExecuteGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("X-Amzn-Errortype", "ServiceUnavailableException")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"down"}`))
	}))
	defer srv.Close()

	cred := credentials.NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"})
	policy := retry.NewJitterPolicy(2, time.Millisecond, 4*time.Millisecond)
	client := New(newRestJSONConfig(srv.URL), cred, WithTransport(srv.Client()), WithRetryPolicy(policy))
	defer client.Shutdown()

	_, err := client.Execute(context.Background(), describeEchoOperation())
	require.Error(t, err)
	var serverErr *awscore.AWSServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 3, attempts)
}

func TestClient_ExecuteDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("X-Amzn-Errortype", "NotFoundException")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no such thing"}`))
	}))
	defer srv.Close()

	cred := credentials.NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"})
	client := New(newRestJSONConfig(srv.URL), cred, WithTransport(srv.Client()))
	defer client.Shutdown()

	_, err := client.Execute(context.Background(), describeEchoOperation())
	require.Error(t, err)
	var clientErr *awscore.AWSClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 1, attempts)
}

func TestClient_ExecuteFailsWhenCredentialProviderFails(t *testing.T) {
	cred := credentials.NewStaticProvider(awscore.Credential{})
	client := New(newRestJSONConfig("https://example.com"), cred)
	defer client.Shutdown()

	_, err := client.Execute(context.Background(), describeEchoOperation())
	require.Error(t, err)
	var credErr *awscore.CredentialProviderError
	require.ErrorAs(t, err, &credErr)
}

func TestClient_ShutdownIsIdempotent(t *testing.T) {
	cred := credentials.NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"})
	client := New(newRestJSONConfig("https://example.com"), cred)

	require.NoError(t, client.Shutdown())
	err := client.Shutdown()
	require.Error(t, err)
	var lifecycleErr *awscore.LifecycleError
	require.ErrorAs(t, err, &lifecycleErr)
}

func TestClient_ExecuteAfterShutdownFails(t *testing.T) {
	cred := credentials.NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"})
	client := New(newRestJSONConfig("https://example.com"), cred)
	require.NoError(t, client.Shutdown())

	_, err := client.Execute(context.Background(), describeEchoOperation())
	require.Error(t, err)
	var lifecycleErr *awscore.LifecycleError
	require.ErrorAs(t, err, &lifecycleErr)
}

func TestClient_ExecuteMissingEndpointFails(t *testing.T) {
	cred := credentials.NewStaticProvider(awscore.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"})
	cfg := newRestJSONConfig("")
	client := New(cfg, cred)
	defer client.Shutdown()

	_, err := client.Execute(context.Background(), describeEchoOperation())
	require.Error(t, err)
	var cfgErr *awscore.ClientConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
