// Package restxml implements the error-extraction half of the "rest_xml"
// dialect (e.g. S3, CloudFront).
package restxml

import (
	"encoding/xml"

	awscore "github.com/prn-tf/awscore/aws"
)

type xmlError struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// ExtractError implements spec.md §4.5 for the rest_xml dialect: the error
// document is "/Error/{Code,Message}".
func ExtractError(resp awscore.WireResponse) (code, message string, ok bool) {
	var parsed xmlError
	if err := xml.Unmarshal(resp.Body.AsBytes(), &parsed); err != nil {
		return "", "", false
	}
	return parsed.Code, parsed.Message, parsed.Code != ""
}
