// Package awsclient implements the orchestrator (C10): the execute loop
// that ties together credential resolution, request building, signing,
// the middleware chain, transport, the retry controller, and response
// decoding for one service client instance.
package awsclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	awscore "github.com/prn-tf/awscore/aws"
	"github.com/prn-tf/awscore/aws/credentials"
	"github.com/prn-tf/awscore/aws/middleware"
	"github.com/prn-tf/awscore/aws/protocol"
	"github.com/prn-tf/awscore/aws/protocol/jsonrpc"
	"github.com/prn-tf/awscore/aws/protocol/query"
	"github.com/prn-tf/awscore/aws/protocol/restjson"
	"github.com/prn-tf/awscore/aws/protocol/restxml"
	"github.com/prn-tf/awscore/aws/retry"
	"github.com/prn-tf/awscore/aws/signer"
	"github.com/prn-tf/awscore/internal/eventloop"
	"github.com/prn-tf/awscore/internal/metrics"
)

// Transport is the minimal surface the orchestrator needs from an HTTP
// client, satisfied by *http.Client.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client at construction time, following the teacher's
// functional-options convention (see internal/repository/postgres.Config
// builders and internal/service constructors taking *zerolog.Logger).
type Option func(*Client)

// WithTransport injects an HTTP client; the orchestrator never closes an
// injected transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t; c.ownsTransport = false }
}

// WithEventLoopGroup injects an event-loop group for scheduling retries;
// the orchestrator never shuts down an injected group.
func WithEventLoopGroup(g *eventloop.Group) Option {
	return func(c *Client) { c.loopGroup = g; c.ownsLoopGroup = false }
}

// WithRetryPolicy overrides the default retry.JitterPolicy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retryPolicy = p }
}

// WithMiddlewares appends transformers to the chain, in the given order.
func WithMiddlewares(mw ...awscore.Middleware) Option {
	return func(c *Client) { c.middlewares = append(c.middlewares, mw...) }
}

// WithLogger overrides the client's zerolog.Logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics overrides where Prometheus metrics are registered.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client is one configured AWS service client instance: one ServiceConfig,
// one credential provider, one retry policy, one middleware chain.
type Client struct {
	config     awscore.ServiceConfig
	credential credentials.Provider

	transport     Transport
	ownsTransport bool

	loopGroup     *eventloop.Group
	ownsLoopGroup bool

	retryPolicy retry.Policy
	middlewares []awscore.Middleware
	logger      zerolog.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	shutdown bool
}

// New builds a Client for one service. cfg.Endpoint (or the resolved
// ServiceEndpoints/PartitionEndpoint) must already be set; New does no
// endpoint-resolution of its own.
func New(cfg awscore.ServiceConfig, credProvider credentials.Provider, opts ...Option) *Client {
	c := &Client{
		config:        cfg,
		credential:    credProvider,
		transport:     http.DefaultClient,
		ownsTransport: false,
		retryPolicy:   retry.NewJitterPolicy(4, time.Second, 16*time.Second),
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loopGroup == nil {
		c.loopGroup = eventloop.NewGroup(eventloop.DefaultGroupSize())
		c.ownsLoopGroup = true
	}
	c.logger = c.logger.With().Str("component", "aws.awsclient").Logger()
	return c
}

// Shutdown idempotently tears down resources the Client owns. A second call
// returns ErrAlreadyShutdown.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return &awscore.LifecycleError{Cause: awscore.ErrAlreadyShutdown}
	}
	c.shutdown = true
	if c.ownsLoopGroup {
		c.loopGroup.Shutdown()
	}
	return nil
}

// Execute runs the full orchestrator pipeline (spec.md §4.8) for one
// operation: credential resolution, request construction, middleware,
// signing, the retry loop, and response decoding. desc.EncodeBody and
// desc.Bindings already close over the typed input shape; Execute itself
// is input-agnostic.
func (c *Client) Execute(ctx context.Context, desc awscore.OperationDescriptor) (*awscore.WireResponse, error) {
	c.mu.Lock()
	shutdown := c.shutdown
	c.mu.Unlock()
	if shutdown {
		return nil, &awscore.LifecycleError{Cause: awscore.ErrAlreadyShutdown}
	}

	start := time.Now()

	rctx := &awscore.RequestContext{
		Fingerprint: awscore.RequestFingerprint{
			Service:   c.config.ServiceName,
			Operation: desc.Name,
			RequestID: awscore.NextRequestID(),
		},
		SigningDate: time.Now().UTC(),
	}

	resp, err := c.executeOnce(ctx, desc, rctx)

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordAttempt(c.config.ServiceName, desc.Name, duration)
		if err != nil {
			c.metrics.RecordError(c.config.ServiceName, desc.Name, errorKind(err))
		}
	}
	return resp, err
}

func (c *Client) executeOnce(ctx context.Context, desc awscore.OperationDescriptor, rctx *awscore.RequestContext) (*awscore.WireResponse, error) {
	cred, err := c.credential.Retrieve(ctx)
	if err != nil {
		return nil, err
	}

	endpoint, err := c.resolveEndpoint()
	if err != nil {
		return nil, err
	}

	chain := middleware.NewChain(append(append([]awscore.Middleware{}, c.config.Middlewares...), c.middlewares...)...)
	extractor := errorExtractorFor(c.config.Protocol)

	var lastErr error
	for attempt := 1; ; attempt++ {
		rctx.Attempt = attempt
		rctx.SigningDate = time.Now().UTC()

		req, err := protocol.BuildRequest(desc, c.config, endpoint)
		if err != nil {
			return nil, err
		}
		if err := chain.RunRequest(req, rctx); err != nil {
			return nil, err
		}

		httpReq, err := c.toHTTPRequest(ctx, req, cred, rctx)
		if err != nil {
			return nil, err
		}

		wireResp, transportErr := c.doRequest(httpReq)
		if transportErr != nil {
			lastErr = transportErr
			if c.retryPolicy.ShouldRetry(attempt, transportErr) {
				if err := c.wait(ctx, c.retryPolicy.Delay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if wireResp.StatusCode >= 300 {
			decodeErr := protocol.DecodeResponse(*wireResp, desc, c.config, extractor)
			if c.retryPolicy.ShouldRetry(attempt, decodeErr) {
				if err := c.wait(ctx, c.retryPolicy.Delay(attempt)); err != nil {
					return nil, err
				}
				lastErr = decodeErr
				continue
			}
			return nil, decodeErr
		}

		if err := chain.RunResponse(wireResp, rctx); err != nil {
			return nil, err
		}
		if err := protocol.DecodeResponse(*wireResp, desc, c.config, extractor); err != nil {
			return nil, err
		}
		return wireResp, nil
	}
}

// wait blocks the calling goroutine for delay, but honors cancellation —
// scheduling happens via the event-loop group so concurrent requests on the
// same Client never block each other's retries.
func (c *Client) wait(ctx context.Context, delay time.Duration) error {
	done := make(chan struct{})
	c.loopGroup.ScheduleAfter(delay, func() { close(done) })
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Client) resolveEndpoint() (string, error) {
	if c.config.Endpoint != "" {
		return c.config.Endpoint, nil
	}
	if ep, ok := c.config.ServiceEndpoints[c.config.Region]; ok {
		return ep, nil
	}
	if c.config.PartitionEndpoint != "" && c.config.DNSSuffix != "" {
		return fmt.Sprintf("https://%s.%s.%s", c.config.ServiceName, c.config.Region, c.config.DNSSuffix), nil
	}
	return "", &awscore.ClientConfigurationError{Message: "no endpoint configured", Cause: awscore.ErrInvalidEndpoint}
}

func (c *Client) toHTTPRequest(ctx context.Context, req *awscore.CanonicalRequest, cred awscore.ExpiringCredential, rctx *awscore.RequestContext) (*http.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &awscore.ClientConfigurationError{Message: "invalid endpoint url", Cause: err}
	}
	u.Path = req.Path
	values := url.Values{}
	for k, vs := range req.Query {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	u.RawQuery = values.Encode()

	body := req.Body.AsBytes()
	signed := signer.SignHeaders(signer.SignHeadersInput{
		Method:          req.Method,
		URL:             u,
		Headers:         req.Headers,
		Body:            body,
		Credential:      cred.Credential,
		Region:          c.config.Region,
		SigningName:     c.config.SigningNameOrDefault(),
		ServiceName:     c.config.ServiceName,
		DoubleURIEncode: c.config.ServiceName != "s3",
		SigningDate:     rctx.SigningDate,
	})

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytesReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range signed {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (c *Client) doRequest(req *http.Request) (*awscore.WireResponse, error) {
	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, &awscore.TransportError{Kind: classifyTransportError(err), Cause: err}
	}
	defer resp.Body.Close()

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	bodyBytes, err := readAll(resp.Body)
	if err != nil {
		return nil, &awscore.TransportError{Kind: awscore.TransportErrorTransient, Cause: err}
	}

	return &awscore.WireResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       awscore.FromByteBuffer(bodyBytes),
	}, nil
}

func errorExtractorFor(p awscore.Protocol) protocol.ErrorExtractor {
	switch p {
	case awscore.ProtocolJSON:
		return jsonrpc.ExtractError
	case awscore.ProtocolRestJSON:
		return restjson.ExtractError
	case awscore.ProtocolRestXML:
		return restxml.ExtractError
	case awscore.ProtocolQuery, awscore.ProtocolEC2:
		return query.ExtractError
	default:
		return restjson.ExtractError
	}
}

func errorKind(err error) string {
	switch err.(type) {
	case *awscore.AWSClientError:
		return "client"
	case *awscore.AWSServerError:
		return "server"
	case *awscore.TransportError:
		return "transport"
	case *awscore.ProtocolError:
		return "protocol"
	default:
		return "other"
	}
}
