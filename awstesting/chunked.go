package awstesting

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	awscore "github.com/prn-tf/awscore/aws"
)

// DecodeAWSChunked reads the aws-chunked request-body framing AWS services
// such as S3 use for streaming signed uploads: each chunk is prefixed
// "<hex-size>;chunk-signature=<64-hex>\r\n", followed by that many payload
// bytes and a trailing "\r\n", and a zero-size chunk terminates the stream.
// Chunk-signature values are read but not verified. Malformed framing
// returns ErrCorruptChunkedData.
func DecodeAWSChunked(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	var out bytes.Buffer

	for {
		line, err := readChunkLine(br)
		if err != nil {
			return nil, &wrapErr{awscore.ErrCorruptChunkedData, err}
		}

		size, err := parseChunkSizeLine(line)
		if err != nil {
			return nil, &wrapErr{awscore.ErrCorruptChunkedData, err}
		}

		if size == 0 {
			if err := expectCRLF(br); err != nil {
				return nil, &wrapErr{awscore.ErrCorruptChunkedData, err}
			}
			return out.Bytes(), nil
		}

		if _, err := io.CopyN(&out, br, int64(size)); err != nil {
			return nil, &wrapErr{awscore.ErrCorruptChunkedData, err}
		}
		if err := expectCRLF(br); err != nil {
			return nil, &wrapErr{awscore.ErrCorruptChunkedData, err}
		}
	}
}

func readChunkLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseChunkSizeLine(line string) (int, error) {
	hexPart := line
	if i := strings.IndexByte(line, ';'); i >= 0 {
		hexPart = line[:i]
	}
	size, err := strconv.ParseInt(hexPart, 16, 32)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, errNegativeChunkSize
	}
	return int(size), nil
}

func expectCRLF(br *bufio.Reader) error {
	b1, err := br.ReadByte()
	if err != nil {
		return err
	}
	b2, err := br.ReadByte()
	if err != nil {
		return err
	}
	if b1 != '\r' || b2 != '\n' {
		return errMissingCRLF
	}
	return nil
}

type wrapErr struct {
	sentinel error
	cause    error
}

func (e *wrapErr) Error() string { return e.sentinel.Error() + ": " + e.cause.Error() }
func (e *wrapErr) Unwrap() error { return e.sentinel }

var (
	errNegativeChunkSize = chunkFramingError("negative chunk size")
	errMissingCRLF        = chunkFramingError("missing trailing CRLF after chunk")
)

type chunkFramingError string

func (e chunkFramingError) Error() string { return string(e) }
