package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	awscore "github.com/prn-tf/awscore/aws"
)

func TestExtractError(t *testing.T) {
	resp := awscore.WireResponse{
		Body: awscore.NewXMLBody([]byte(`<ErrorResponse><Error><Code>InvalidParameterValue</Code><Message>bad value</Message></Error></ErrorResponse>`)),
	}
	code, message, ok := ExtractError(resp)
	assert.True(t, ok)
	assert.Equal(t, "InvalidParameterValue", code)
	assert.Equal(t, "bad value", message)
}

func TestMemberSuffix(t *testing.T) {
	assert.Equal(t, ".member.1", MemberSuffix(awscore.ProtocolQuery, 0))
	assert.Equal(t, ".member.2", MemberSuffix(awscore.ProtocolQuery, 1))
	assert.Equal(t, ".1", MemberSuffix(awscore.ProtocolEC2, 0))
	assert.Equal(t, ".2", MemberSuffix(awscore.ProtocolEC2, 1))
}

func TestEncode_SortsKeysLexicographically(t *testing.T) {
	encoded := Encode(map[string][]string{
		"Version": {"2016-11-15"},
		"Action":  {"DescribeInstances"},
	})
	assert.Equal(t, "Action=DescribeInstances&Version=2016-11-15", encoded)
}

func TestEncode_MultiValueKey(t *testing.T) {
	encoded := Encode(map[string][]string{
		"InstanceId.1": {"i-abc"},
		"InstanceId.2": {"i-def"},
	})
	assert.Equal(t, "InstanceId.1=i-abc&InstanceId.2=i-def", encoded)
}
