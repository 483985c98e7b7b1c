// Package protocol implements request construction and response decoding for
// the four wire dialects a service can speak: json, rest_json, rest_xml, and
// query (including its ec2 flattening variant). The dialect-specific pieces
// — error extraction and query-string flattening — live in the jsonrpc,
// restjson, restxml, and query subpackages; this package holds the shared
// skeleton both C6 and C7 drive regardless of dialect.
package protocol

import (
	"fmt"
	"net/url"
	"strings"

	awscore "github.com/prn-tf/awscore/aws"
)

// BuildRequest assembles a CanonicalRequest for one operation invocation:
// path templating, header/query field binding, and dialect-appropriate body
// and content-type assignment. Host is left unset — the signer fills it in
// from the endpoint.
func BuildRequest(desc awscore.OperationDescriptor, cfg awscore.ServiceConfig, endpoint string) (*awscore.CanonicalRequest, error) {
	path, query, headers, err := bindFields(desc)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(desc, cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding body for %s: %w", desc.Name, err)
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	if cfg.AmzTarget {
		headers["X-Amz-Target"] = cfg.TargetPrefix + "." + desc.Name
	}

	switch cfg.Protocol {
	case awscore.ProtocolQuery, awscore.ProtocolEC2:
		query["Action"] = []string{desc.Name}
		query["Version"] = []string{cfg.APIVersion}
	}

	fullPath := path
	if fullPath == "" {
		fullPath = desc.Path
	}

	return &awscore.CanonicalRequest{
		Method:  strings.ToUpper(desc.Method),
		URL:     endpoint,
		Path:    fullPath,
		Query:   query,
		Headers: headers,
		Body:    body,
	}, nil
}

// bindFields applies desc.Bindings, substituting {name} and {name+} path
// placeholders and collecting header/query values. Path-plus placeholders
// keep their slashes unescaped; all other substitutions are percent-encoded
// per path segment.
func bindFields(desc awscore.OperationDescriptor) (path string, query map[string][]string, headers map[string]string, err error) {
	path = desc.Path
	query = make(map[string][]string)
	headers = make(map[string]string)

	for _, b := range desc.Bindings {
		value, ok := b.Get()
		if !ok {
			continue
		}
		switch b.Location {
		case awscore.LocationHeader:
			headers[b.WireName] = value
		case awscore.LocationQuery:
			query[b.WireName] = append(query[b.WireName], value)
		case awscore.LocationPath:
			placeholder := "{" + b.WireName + "}"
			encoded := url.PathEscape(value)
			if b.PathPlus {
				placeholder = "{" + b.WireName + "+}"
				encoded = value // slashes preserved per spec.md §4.4
			}
			if !strings.Contains(path, placeholder) {
				return "", nil, nil, fmt.Errorf("operation %s: no %s placeholder in path %q", desc.Name, placeholder, desc.Path)
			}
			path = strings.ReplaceAll(path, placeholder, encoded)
		}
	}
	return path, query, headers, nil
}

// encodeBody dispatches to the caller-supplied EncodeBody hook when the
// operation has one; rest_json/rest_xml operations with no payload member
// and no EncodeBody hook produce an empty body (e.g. GET/DELETE requests).
func encodeBody(desc awscore.OperationDescriptor, cfg awscore.ServiceConfig) (awscore.Body, string, error) {
	if desc.EncodeBody == nil {
		return awscore.NewEmptyBody(), "", nil
	}

	body, err := desc.EncodeBody(cfg.Protocol)
	if err != nil {
		return awscore.Body{}, "", err
	}

	return body, contentTypeFor(cfg, body), nil
}

func contentTypeFor(cfg awscore.ServiceConfig, body awscore.Body) string {
	switch cfg.Protocol {
	case awscore.ProtocolJSON, awscore.ProtocolRestJSON:
		version := cfg.JSONVersion
		if version == "" {
			version = "1.1"
		}
		if body.IsEmpty() {
			return ""
		}
		return "application/x-amz-json-" + version
	case awscore.ProtocolRestXML:
		if body.IsEmpty() {
			return ""
		}
		return "application/xml"
	case awscore.ProtocolQuery, awscore.ProtocolEC2:
		return "application/x-www-form-urlencoded; charset=utf-8"
	default:
		return ""
	}
}
