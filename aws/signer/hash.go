// Package signer implements AWS Signature Version 4 request signing: the
// canonical request, string-to-sign, signing key chain, and the header- and
// query-string-based signing entry points used by the client orchestrator.
//
// The hashing and HMAC primitives use only crypto/sha256 and crypto/hmac —
// there is no ecosystem replacement for these in the corpus this module is
// grounded on; every SigV4 implementation surveyed (the teacher's
// internal/auth/signature_v4.go, blue-context-warp's bedrock signer) does
// the same.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// EmptyBodySHA256 is the precomputed hex digest of the empty string,
// required to match byte-for-byte per spec.md §4.1/§8.
const EmptyBodySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// UnsignedPayload is the literal body-hash placeholder used for S3 when no
// body hash is supplied (spec.md §4.2).
const UnsignedPayload = "UNSIGNED-PAYLOAD"

// StreamingPayload is the x-amz-content-sha256 value a producer sets on an
// aws-chunked streaming-signed upload; consumers (the C12 fixture server)
// recognize it alongside the aws-chunked Content-Encoding to decide whether
// a body needs chunk-framing removal before it reaches the request handler.
const StreamingPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 computes HMAC-SHA256(key, data).
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
