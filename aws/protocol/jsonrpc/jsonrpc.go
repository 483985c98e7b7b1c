// Package jsonrpc implements the error-extraction half of the "json"
// dialect (AWS's JSON 1.0/1.1 RPC protocols, e.g. DynamoDB, SQS-JSON).
package jsonrpc

import (
	"encoding/json"
	"strings"

	awscore "github.com/prn-tf/awscore/aws"
)

// ExtractError implements spec.md §4.5 for the json dialect: the error code
// comes from the body's "__type" field with any "namespace#" prefix
// stripped, and the message from a case-insensitive "message" field.
func ExtractError(resp awscore.WireResponse) (code, message string, ok bool) {
	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body.AsBytes(), &body); err != nil {
		return "", "", false
	}

	if t, found := body["__type"].(string); found {
		code = t
		if i := strings.LastIndex(code, "#"); i >= 0 {
			code = code[i+1:]
		}
	}
	for k, v := range body {
		if strings.EqualFold(k, "message") {
			if s, isStr := v.(string); isStr {
				message = s
			}
		}
	}

	return code, message, code != "" || message != ""
}
