// Package middleware implements the ordered request/response transformer
// chain (C8): transformers run in configuration order for requests and in
// reverse order for responses, and a transformer failure aborts the
// exchange with that error.
package middleware

import (
	"fmt"

	awscore "github.com/prn-tf/awscore/aws"
)

// Transformer is the concrete shape backing awscore.Middleware; declared
// here (rather than only the interface in the aws package) so callers can
// embed Func or Named without redeclaring the method set.
type Transformer = awscore.Middleware

// Func adapts a pair of plain functions to the Transformer interface,
// mirroring http.HandlerFunc's adapter idiom.
type Func struct {
	Name       string
	OnRequest  func(req *awscore.CanonicalRequest, ctx *awscore.RequestContext) error
	OnResponse func(resp *awscore.WireResponse, ctx *awscore.RequestContext) error
}

func (f Func) ChainRequest(req *awscore.CanonicalRequest, ctx *awscore.RequestContext) error {
	if f.OnRequest == nil {
		return nil
	}
	return f.OnRequest(req, ctx)
}

func (f Func) ChainResponse(resp *awscore.WireResponse, ctx *awscore.RequestContext) error {
	if f.OnResponse == nil {
		return nil
	}
	return f.OnResponse(resp, ctx)
}

// Chain runs an ordered list of transformers.
type Chain struct {
	Transformers []awscore.Middleware
}

// NewChain builds a Chain over the given transformers, in configuration
// order.
func NewChain(transformers ...awscore.Middleware) *Chain {
	return &Chain{Transformers: transformers}
}

// RunRequest applies every transformer's ChainRequest in order, stopping at
// the first error.
func (c *Chain) RunRequest(req *awscore.CanonicalRequest, ctx *awscore.RequestContext) error {
	for i, t := range c.Transformers {
		if err := t.ChainRequest(req, ctx); err != nil {
			return fmt.Errorf("request middleware %d: %w", i, err)
		}
	}
	return nil
}

// RunResponse applies every transformer's ChainResponse in reverse
// configuration order, stopping at the first error.
func (c *Chain) RunResponse(resp *awscore.WireResponse, ctx *awscore.RequestContext) error {
	for i := len(c.Transformers) - 1; i >= 0; i-- {
		if err := c.Transformers[i].ChainResponse(resp, ctx); err != nil {
			return fmt.Errorf("response middleware %d: %w", i, err)
		}
	}
	return nil
}
