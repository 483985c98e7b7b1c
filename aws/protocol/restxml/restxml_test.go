package restxml

import (
	"testing"

	"github.com/stretchr/testify/assert"

	awscore "github.com/prn-tf/awscore/aws"
)

func TestExtractError(t *testing.T) {
	resp := awscore.WireResponse{
		Body: awscore.NewXMLBody([]byte(`<Error><Code>NoSuchBucket</Code><Message>The bucket does not exist</Message></Error>`)),
	}
	code, message, ok := ExtractError(resp)
	assert.True(t, ok)
	assert.Equal(t, "NoSuchBucket", code)
	assert.Equal(t, "The bucket does not exist", message)
}

func TestExtractError_Malformed(t *testing.T) {
	resp := awscore.WireResponse{Body: awscore.NewBytesBody([]byte("<not-xml"))}
	_, _, ok := ExtractError(resp)
	assert.False(t, ok)
}
