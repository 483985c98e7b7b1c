package middleware

import (
	"github.com/rs/zerolog"

	awscore "github.com/prn-tf/awscore/aws"
)

// LoggingMiddleware logs each request/response pair at debug level using a
// component-scoped zerolog.Logger, matching the teacher's
// log.With().Str("component", ...).Logger() convention.
func LoggingMiddleware(logger zerolog.Logger) awscore.Middleware {
	scoped := logger.With().Str("component", "aws.middleware.logging").Logger()
	return Func{
		Name: "logging",
		OnRequest: func(req *awscore.CanonicalRequest, ctx *awscore.RequestContext) error {
			scoped.Debug().
				Uint64("request_id", ctx.Fingerprint.RequestID).
				Str("service", ctx.Fingerprint.Service).
				Str("operation", ctx.Fingerprint.Operation).
				Str("method", req.Method).
				Str("path", req.Path).
				Int("attempt", ctx.Attempt).
				Msg("sending request")
			return nil
		},
		OnResponse: func(resp *awscore.WireResponse, ctx *awscore.RequestContext) error {
			scoped.Debug().
				Uint64("request_id", ctx.Fingerprint.RequestID).
				Str("service", ctx.Fingerprint.Service).
				Str("operation", ctx.Fingerprint.Operation).
				Int("status_code", resp.StatusCode).
				Msg("received response")
			return nil
		},
	}
}
