package aws

import "encoding/xml"

// BodyKind tags which wire representation a Body currently holds.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyText
	BodyBytes
	BodyJSON
	BodyXML
)

// Body is a tagged union over the handful of shapes a request or response
// payload can take. Exactly one of the typed fields is meaningful, selected
// by Kind; AsBytes flattens any of them to a single contiguous buffer for
// hashing and wire transmission.
type Body struct {
	Kind  BodyKind
	text  string
	bytes []byte
	xml   *xml.Name // placeholder root name; actual XML bytes live in `bytes`
}

// NewEmptyBody returns the empty body variant.
func NewEmptyBody() Body { return Body{Kind: BodyEmpty} }

// NewTextBody wraps a string as a text body.
func NewTextBody(s string) Body { return Body{Kind: BodyText, text: s} }

// NewBytesBody wraps a buffer as an opaque bytes body.
func NewBytesBody(b []byte) Body { return Body{Kind: BodyBytes, bytes: b} }

// NewJSONBody wraps already-encoded JSON bytes.
func NewJSONBody(b []byte) Body { return Body{Kind: BodyJSON, bytes: b} }

// NewXMLBody wraps already-encoded XML bytes.
func NewXMLBody(b []byte) Body { return Body{Kind: BodyXML, bytes: b} }

// AsBytes flattens the body to a single buffer, regardless of Kind.
func (b Body) AsBytes() []byte {
	switch b.Kind {
	case BodyEmpty:
		return nil
	case BodyText:
		return []byte(b.text)
	default:
		return b.bytes
	}
}

// FromByteBuffer reconstructs a BodyBytes variant from a buffer; together
// with AsBytes this round-trips the identity required by spec.md §8.
func FromByteBuffer(b []byte) Body { return NewBytesBody(b) }

// IsEmpty reports whether the body carries no bytes.
func (b Body) IsEmpty() bool {
	return b.Kind == BodyEmpty || len(b.AsBytes()) == 0
}

// CanonicalRequest is the mutable request-in-progress threaded through the
// request builder, middleware chain, and signer. Its lifetime is bounded by
// one signing attempt (spec.md §3).
type CanonicalRequest struct {
	Method  string
	URL     string // scheme://host/path, unsigned
	Path    string
	Query   map[string][]string
	Headers map[string]string
	Body    Body
}

// WireResponse is the decoded-enough-to-inspect HTTP response handed to
// middleware and the response decoder.
type WireResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       Body
}
