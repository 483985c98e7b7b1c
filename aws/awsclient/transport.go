package awsclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/url"

	awscore "github.com/prn-tf/awscore/aws"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// classifyTransportError reports whether an error from the HTTP round trip
// is worth a retry: timeouts, connection refusals, and DNS lookup failures
// are transient; everything else (malformed URL, context cancellation) is
// terminal.
func classifyTransportError(err error) awscore.TransportErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return awscore.TransportErrorTerminal
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return awscore.TransportErrorTransient
		}
		err = urlErr.Err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return awscore.TransportErrorTransient
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return awscore.TransportErrorTransient
	}

	return awscore.TransportErrorTerminal
}
