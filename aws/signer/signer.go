package signer

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	awscore "github.com/prn-tf/awscore/aws"
)

const (
	algorithm  = "AWS4-HMAC-SHA256"
	dateFormat = "20060102T150405Z"
	dayFormat  = "20060102"
	aws4Request = "aws4_request"
)

// pathUnreserved is the allowed set for canonical-URI percent-encoding:
// A-Za-z0-9-._~ (slashes are preserved by encoding path segments
// independently, never the "/" byte itself).
func isPathUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}

func percentEncode(s string, unreserved func(byte) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		const hex = "0123456789ABCDEF"
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xF])
	}
	return b.String()
}

// CanonicalURI percent-encodes an HTTP path per spec.md §4.2: the allowed
// set is A-Za-z0-9-._~/, slashes preserved, empty path becomes "/".
func CanonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = percentEncode(seg, isPathUnreserved)
	}
	return strings.Join(segments, "/")
}

// doubleEncodedURI runs CanonicalURI's percent-encoding pass twice, per
// segment, leaving "/" untouched. AWS requires this for every service
// except S3 (whose object keys already carry meaningful encoded bytes);
// the second pass turns the first pass's own "%" bytes into "%25" etc.
func doubleEncodedURI(path string) string {
	encoded := CanonicalURI(path)
	segments := strings.Split(encoded, "/")
	for i, seg := range segments {
		segments[i] = percentEncode(seg, isPathUnreserved)
	}
	return strings.Join(segments, "/")
}

func canonicalURIFor(path string, doubleURIEncode bool) string {
	if doubleURIEncode {
		return doubleEncodedURI(path)
	}
	return CanonicalURI(path)
}

// Credential is the minimal shape the signer needs; awscore.Credential
// satisfies it directly.
type Credential = awscore.Credential

// SignHeadersInput carries everything SignHeaders needs to augment a
// request's headers with a SigV4 Authorization header.
type SignHeadersInput struct {
	Method      string
	URL         *url.URL
	Headers     map[string]string
	Body        []byte
	// BodyHash overrides the computed payload hash when non-empty (e.g. a
	// caller that already knows the streaming payload hash).
	BodyHash    string
	Credential  Credential
	Region      string
	SigningName string
	ServiceName string
	// DoubleURIEncode, when true, percent-encodes the canonical path a
	// second time. AWS requires this for every service except S3.
	DoubleURIEncode bool
	// SigningDate defaults to time.Now().UTC() when zero.
	SigningDate time.Time
}

// SignHeaders signs an HTTP request by header, returning the augmented
// header set. It mutates nothing; the caller installs the returned map on
// the outgoing request.
func SignHeaders(in SignHeadersInput) map[string]string {
	now := in.SigningDate
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	headers := make(map[string]string, len(in.Headers)+4)
	for k, v := range in.Headers {
		headers[k] = v
	}

	headers["X-Amz-Date"] = now.Format(dateFormat)
	headers["host"] = in.URL.Host
	if in.Credential.SessionToken != "" {
		headers["x-amz-security-token"] = in.Credential.SessionToken
	}

	bodyHash := resolveBodyHash(in.ServiceName, in.BodyHash, in.Body)
	headers["x-amz-content-sha256"] = bodyHash

	signedHeaderNames, canonicalHeaders := canonicalizeHeaders(headers)
	canonicalRequest := buildCanonicalRequest(
		strings.ToUpper(in.Method),
		canonicalURIFor(in.URL.Path, in.DoubleURIEncode),
		in.URL.RawQuery, // spec.md §4.2: unchanged from input for header signing
		canonicalHeaders,
		signedHeaderNames,
		bodyHash,
	)

	scope := credentialScope(now, in.Region, in.SigningNameOrService())
	sts := stringToSign(now, scope, canonicalRequest)
	signingKey := signingKey(in.Credential.SecretAccessKey, now, in.Region, in.SigningNameOrService())
	signature := hexHMAC(signingKey, sts)

	headers["Authorization"] = algorithm + " Credential=" + in.Credential.AccessKeyID + "/" + scope +
		", SignedHeaders=" + strings.Join(signedHeaderNames, ";") +
		", Signature=" + signature

	return headers
}

// SigningNameOrService returns SigningName, falling back to ServiceName.
func (in SignHeadersInput) SigningNameOrService() string {
	if in.SigningName != "" {
		return in.SigningName
	}
	return in.ServiceName
}

func resolveBodyHash(serviceName, override string, body []byte) string {
	if override != "" {
		return override
	}
	if serviceName == "s3" {
		return UnsignedPayload
	}
	if len(body) == 0 {
		return EmptyBodySHA256
	}
	return Sha256Hex(body)
}

// canonicalizeHeaders lowercases names, trims values at both ends only
// (internal whitespace runs are preserved per spec.md §4.2), excludes
// Authorization case-insensitively, and returns the ascending sorted
// signed-header name list plus the canonical-headers block.
func canonicalizeHeaders(headers map[string]string) (signedNames []string, block string) {
	type kv struct{ k, v string }
	var pairs []kv
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			continue
		}
		pairs = append(pairs, kv{strings.ToLower(k), strings.Trim(v, " \t")})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	var b strings.Builder
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.k)
		b.WriteString(p.k)
		b.WriteByte(':')
		b.WriteString(p.v)
		b.WriteByte('\n')
	}
	return names, b.String()
}

func buildCanonicalRequest(method, uri, query, canonicalHeaders string, signedNames []string, bodyHash string) string {
	return method + "\n" +
		uri + "\n" +
		query + "\n" +
		canonicalHeaders + "\n" +
		strings.Join(signedNames, ";") + "\n" +
		bodyHash
}

func credentialScope(t time.Time, region, signingName string) string {
	return t.Format(dayFormat) + "/" + region + "/" + signingName + "/" + aws4Request
}

func stringToSign(t time.Time, scope, canonicalRequest string) string {
	return algorithm + "\n" +
		t.Format(dateFormat) + "\n" +
		scope + "\n" +
		Sha256Hex([]byte(canonicalRequest))
}

func signingKey(secret string, t time.Time, region, signingName string) []byte {
	kDate := HMACSHA256([]byte("AWS4"+secret), []byte(t.Format(dayFormat)))
	kRegion := HMACSHA256(kDate, []byte(region))
	kService := HMACSHA256(kRegion, []byte(signingName))
	return HMACSHA256(kService, []byte(aws4Request))
}

func hexHMAC(key []byte, data string) string {
	mac := HMACSHA256(key, []byte(data))
	const hex = "0123456789abcdef"
	out := make([]byte, len(mac)*2)
	for i, b := range mac {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0xF]
	}
	return string(out)
}

// presignedAllowed is the allowed set for the final percent-encoding pass
// over the assembled presigned query string: !-._~$&'()*+,;=:@/? plus
// alphanumerics. This intentionally matches AWS's own implementation, which
// encodes the whole already-built query string rather than each value
// individually — see the "Ambiguous behaviors" note in spec.md §9. Matching
// it byte-for-byte is required for compatibility with existing presigned
// URLs, even though it is not a fully general percent-encoding.
func isPresignedAllowed(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '-', '.', '_', '~', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '@', '/', '?':
		return true
	}
	return false
}

// SignURLInput carries everything SignURL needs to build a pre-signed URL.
type SignURLInput struct {
	Method      string
	URL         *url.URL
	Credential  Credential
	Region      string
	SigningName string
	ServiceName string
	// DoubleURIEncode, when true, percent-encodes the canonical path a
	// second time. AWS requires this for every service except S3.
	DoubleURIEncode bool
	Expires     time.Duration
	SignedHeaders []string // must include at least "host"; defaults to ["host"] if empty
	SigningDate time.Time
}

// SignURL produces a presigned URL string per spec.md §4.2's "Signed URL"
// subsection.
func SignURL(in SignURLInput) string {
	now := in.SigningDate
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	signedHeaders := in.SignedHeaders
	if len(signedHeaders) == 0 {
		signedHeaders = []string{"host"}
	}
	sortedSigned := append([]string(nil), signedHeaders...)
	sort.Strings(sortedSigned)
	for i, h := range sortedSigned {
		sortedSigned[i] = strings.ToLower(h)
	}

	scope := credentialScope(now, in.Region, in.SigningNameOrService())

	merged := in.URL.Query()
	merged.Set("X-Amz-Algorithm", algorithm)
	merged.Set("X-Amz-Credential", in.Credential.AccessKeyID+"/"+scope)
	merged.Set("X-Amz-Date", now.Format(dateFormat))
	merged.Set("X-Amz-Expires", strconv.FormatInt(int64(in.Expires.Seconds()), 10))
	merged.Set("X-Amz-SignedHeaders", strings.Join(sortedSigned, ";"))
	if in.Credential.SessionToken != "" {
		merged.Set("X-Amz-Security-Token", in.Credential.SessionToken)
	}

	assembled := assembleAndSortQuery(merged)
	encodedQuery := percentEncode(assembled, isPresignedAllowed)

	headerMap := map[string]string{"host": in.URL.Host}
	_, canonicalHeaders := canonicalizeHeaders(headerMap)

	bodyHash := resolveBodyHash(in.ServiceName, "", nil)
	canonicalRequest := buildCanonicalRequest(
		strings.ToUpper(in.Method),
		canonicalURIFor(in.URL.Path, in.DoubleURIEncode),
		encodedQuery,
		canonicalHeaders,
		sortedSigned,
		bodyHash,
	)

	sts := stringToSign(now, scope, canonicalRequest)
	key := signingKey(in.Credential.SecretAccessKey, now, in.Region, in.SigningNameOrService())
	signature := hexHMAC(key, sts)

	result := *in.URL
	result.RawQuery = encodedQuery + "&X-Amz-Signature=" + signature
	return result.String()
}

func (in SignURLInput) SigningNameOrService() string {
	if in.SigningName != "" {
		return in.SigningName
	}
	return in.ServiceName
}

// assembleAndSortQuery builds "k=v" pairs from already-percent-decoded
// values (as url.Values holds them), splits on "&", sorts lexicographically,
// and rejoins — matching spec.md §4.2's description of the presigned query
// assembly step, prior to the single whole-string percent-encoding pass.
func assembleAndSortQuery(values url.Values) string {
	var parts []string
	for k, vs := range values {
		for _, v := range vs {
			if v == "" {
				parts = append(parts, k+"=")
			} else {
				parts = append(parts, k+"="+v)
			}
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}
