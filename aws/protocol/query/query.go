// Package query implements the error-extraction and form-encoding halves of
// the "query" dialect and its "ec2" flattening variant (e.g. EC2, SQS,
// CloudFormation, SNS).
package query

import (
	"encoding/xml"
	"net/url"
	"sort"
	"strconv"
	"strings"

	awscore "github.com/prn-tf/awscore/aws"
)

type xmlErrorResponse struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
}

// ExtractError implements spec.md §4.5 for the query dialect: the error
// document is "/ErrorResponse/Error/{Code,Message}".
func ExtractError(resp awscore.WireResponse) (code, message string, ok bool) {
	var parsed xmlErrorResponse
	if err := xml.Unmarshal(resp.Body.AsBytes(), &parsed); err != nil {
		return "", "", false
	}
	return parsed.Error.Code, parsed.Error.Message, parsed.Error.Code != ""
}

// MemberSuffix picks the array-element key suffix for the query dialect
// (".member.N", 1-based) versus the ec2 variant, which flattens arrays with
// no suffix at all beyond the bare index.
func MemberSuffix(protocol awscore.Protocol, index int) string {
	if protocol == awscore.ProtocolEC2 {
		return "." + strconv.Itoa(index+1)
	}
	return ".member." + strconv.Itoa(index+1)
}

// Encode builds the ASCII-lexicographically-sorted, URL-form-encoded body
// for a query or ec2 request from already-flattened key/value pairs (the
// caller's EncodeBody hook is responsible for producing list keys via
// MemberSuffix before calling this).
func Encode(values map[string][]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		for j, v := range values[k] {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
