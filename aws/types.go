// Package aws holds the core data model shared by the signer, credential
// providers, protocol codecs, and the client orchestrator: credentials,
// service configuration, operation descriptors, and the wire body type.
package aws

import (
	"sync/atomic"
	"time"
)

// Protocol identifies one of the four wire dialects a service can speak.
type Protocol string

const (
	ProtocolJSON     Protocol = "json"
	ProtocolRestJSON Protocol = "rest_json"
	ProtocolRestXML  Protocol = "rest_xml"
	ProtocolQuery    Protocol = "query"
	ProtocolEC2      Protocol = "ec2"
)

// Credential is an immutable AWS credential triple. A provider never returns
// a Credential whose Expiration is earlier than the instant of return.
type Credential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// IsAnonymous reports whether this is the zero-value (no credential).
func (c Credential) IsAnonymous() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// ExpiringCredential extends Credential with an expiration instant.
type ExpiringCredential struct {
	Credential
	Expiration time.Time
}

// IsExpiringWithin reports whether the credential's remaining lifetime is
// less than or equal to d.
func (c ExpiringCredential) IsExpiringWithin(d time.Duration) bool {
	return !c.Expiration.After(time.Now().Add(d))
}

// ServiceConfig describes how to reach and address one AWS service.
type ServiceConfig struct {
	Region      string
	Partition   string
	ServiceName string
	// SigningName defaults to ServiceName when empty; set it explicitly to
	// override, e.g. "execute-api" for API Gateway invoke endpoints.
	SigningName string
	Protocol    Protocol
	// APIVersion is required for the query/ec2 dialects (carried as the
	// "Version" form parameter) and optional otherwise.
	APIVersion string
	// JSONVersion selects the amz-json content-type suffix, e.g. "1.1".
	JSONVersion string
	// TargetPrefix is prepended to X-Amz-Target as "<prefix>.<operation>"
	// when AmzTarget is true.
	TargetPrefix string
	AmzTarget    bool

	Endpoint         string
	ServiceEndpoints map[string]string
	PartitionEndpoint string
	DNSSuffix        string

	Timeout     time.Duration
	Middlewares []Middleware

	// PossibleErrorTypes are tried, in order, before the registry
	// RegisterErrorType populates for ServiceName and before the built-in
	// 4xx/5xx taxonomy, when decoding a non-2xx response (see ErrorDecoder).
	PossibleErrorTypes []ErrorTypeFactory
}

// SigningNameOrDefault returns SigningName, falling back to ServiceName.
func (c ServiceConfig) SigningNameOrDefault() string {
	if c.SigningName != "" {
		return c.SigningName
	}
	return c.ServiceName
}

// ErrorTypeFactory attempts to build a typed error from a decoded code and
// message. It returns (nil, false) when the code is not one it recognizes.
type ErrorTypeFactory func(code, message string) (error, bool)

// Middleware is implemented by aws/middleware.Transformer; declared here to
// avoid an import cycle between aws and aws/middleware.
type Middleware interface {
	ChainRequest(req *CanonicalRequest, ctx *RequestContext) error
	ChainResponse(resp *WireResponse, ctx *RequestContext) error
}

// ParamLocation is where an operation field is placed on the wire.
type ParamLocation int

const (
	LocationHeader ParamLocation = iota
	LocationQuery
	LocationPath
)

// FieldBinding binds one shape field to a wire name and location. Per the
// design notes in spec.md §9, a code generator (or a hand-written binding)
// supplies a list of these instead of the source's runtime reflection.
type FieldBinding struct {
	WireName string
	Location ParamLocation
	// Get reads the field's string form for header/query/path encoding.
	// PathPlus indicates a "{name+}" template placeholder, whose value must
	// not have its slashes percent-encoded.
	Get      func() (string, bool)
	PathPlus bool
}

// OperationDescriptor is supplied by a generated (or hand-written) service
// binding; it is everything the request builder and response decoder need
// that isn't part of the typed input/output shape itself.
type OperationDescriptor struct {
	Name    string
	Path    string
	Method  string

	// Bindings lists the header/query/path field extractions for Input.
	Bindings []FieldBinding

	// PayloadMember, if non-empty, names the single shape member whose
	// value becomes the wire body (see spec.md §4.4).
	PayloadMember string
	// RawPayload marks PayloadMember (or, for rest_json/rest_xml with no
	// PayloadMember, the whole body) as an opaque byte stream rather than a
	// codec target.
	RawPayload bool

	// EncodeBody produces the request body bytes/Body for dialects that
	// JSON/XML/form-encode the whole shape (no PayloadMember).
	EncodeBody func(dialect Protocol) (Body, error)
	// DecodeInto decodes a successful response Body into the output shape.
	DecodeInto func(dialect Protocol, body Body, headers map[string]string) error
}

// RequestFingerprint identifies one attempt for logging/retry purposes.
type RequestFingerprint struct {
	Service   string
	Operation string
	RequestID uint64
}

var requestCounter uint64

// NextRequestID returns a process-monotone counter, starting at 1.
func NextRequestID() uint64 {
	return atomic.AddUint64(&requestCounter, 1)
}

// RequestContext threads fingerprint and timing metadata through the
// orchestrator, middleware chain, and logger calls for one attempt.
type RequestContext struct {
	Fingerprint RequestFingerprint
	Attempt     int
	SigningDate time.Time
}
