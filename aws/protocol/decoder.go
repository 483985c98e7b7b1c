package protocol

import (
	"strings"

	awscore "github.com/prn-tf/awscore/aws"
)

// ErrorExtractor pulls a machine-readable code and human message out of a
// non-2xx response body, per-dialect. Implemented by the jsonrpc, restjson,
// restxml, and query subpackages.
type ErrorExtractor func(resp awscore.WireResponse) (code, message string, ok bool)

// DecodeResponse implements C7: on 2xx it decodes into the output shape via
// desc.DecodeInto and merges header-bound response members; on non-2xx it
// extracts code/message via extract and classifies the result through
// possibleErrorTypes, then the built-in 4xx/5xx taxonomy.
func DecodeResponse(resp awscore.WireResponse, desc awscore.OperationDescriptor, cfg awscore.ServiceConfig, extract ErrorExtractor) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if desc.DecodeInto == nil {
			return nil
		}
		if err := desc.DecodeInto(cfg.Protocol, resp.Body, resp.Headers); err != nil {
			return &awscore.ProtocolError{Cause: err}
		}
		return nil
	}

	code, message, ok := extract(resp)
	if !ok {
		return &awscore.AWSError{
			StatusCode: resp.StatusCode,
			Message:    "Unhandled Error",
			RawBody:    resp.Body.AsBytes(),
		}
	}
	code = strings.TrimSuffix(code, "Exception")

	for _, factory := range cfg.PossibleErrorTypes {
		if err, matched := factory(code, message); matched {
			return err
		}
	}
	for _, factory := range awscore.RegisteredErrorTypes(cfg.ServiceName) {
		if err, matched := factory(code, message); matched {
			return err
		}
	}

	base := awscore.ServiceError{Code: code, Message: message, StatusCode: resp.StatusCode}
	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &awscore.AWSClientError{ServiceError: base}
	case resp.StatusCode >= 500:
		return &awscore.AWSServerError{ServiceError: base}
	default:
		return &awscore.AWSResponseError{ServiceError: base}
	}
}
