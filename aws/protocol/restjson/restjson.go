// Package restjson implements the error-extraction half of the "rest_json"
// dialect (e.g. Lambda, API Gateway).
package restjson

import (
	"encoding/json"
	"strings"

	awscore "github.com/prn-tf/awscore/aws"
)

// ExtractError implements spec.md §4.5 for the rest_json dialect: the error
// code comes from the x-amzn-ErrorType response header (with any ":…"
// suffix stripped), and the message from a case-insensitive "message" body
// field.
func ExtractError(resp awscore.WireResponse) (code, message string, ok bool) {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, "x-amzn-ErrorType") {
			code = v
			if i := strings.Index(code, ":"); i >= 0 {
				code = code[:i]
			}
		}
	}

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body.AsBytes(), &body); err == nil {
		for k, v := range body {
			if strings.EqualFold(k, "message") {
				if s, isStr := v.(string); isStr {
					message = s
				}
			}
		}
	}

	return code, message, code != "" || message != ""
}
