// Package awstesting implements the in-process HTTP/1.1 fixture server
// (C12) used by this module's own protocol and signer tests: it reads one
// request fully, including request bodies using aws-chunked framing, hands
// the caller a single request/response callback, and writes the response.
package awstesting

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/prn-tf/awscore/aws/signer"
)

// Handler produces a response for one received request. Returning an error
// causes the server to write a 500 with the error's message as the body.
type Handler func(req *http.Request) (*http.Response, error)

// Server is a single-listener, one-connection-at-a-time HTTP/1.1 peer.
// Unlike httptest.Server it decodes the aws-chunked content-encoding before
// the Handler ever sees the body, since that framing is specific to a few
// AWS services (S3 multipart, Kinesis) and net/http has no native support
// for it.
type Server struct {
	listener net.Listener

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewServer starts listening on an OS-assigned loopback port.
func NewServer() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return &Server{listener: ln, done: make(chan struct{})}, nil
}

// Addr returns "host:port" for clients to dial.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// URL returns "http://host:port".
func (s *Server) URL() string { return "http://" + s.Addr() }

// Serve accepts connections until Close is called, handling each one with
// handler. It blocks the calling goroutine; callers typically run it via
// `go server.Serve(handler)`.
func (s *Server) Serve(handler Handler) {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn, handler)
	}
}

// Close stops accepting new connections and waits for Serve to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.listener.Close()
	<-s.done
	return err
}

func (s *Server) handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	req, err := http.ReadRequest(reader)
	if err != nil {
		return
	}

	if needsChunkDecoding(req.Header) {
		decoded, derr := DecodeAWSChunked(req.Body)
		req.Body.Close()
		if derr != nil {
			writeErrorResponse(conn, derr)
			return
		}
		req.Body = io.NopCloser(bytes.NewReader(decoded))
		req.ContentLength = int64(len(decoded))
	}

	resp, err := handler(req)
	if err != nil {
		writeErrorResponse(conn, err)
		return
	}
	ensureRequestID(resp)
	resp.Write(conn)
}

// ensureRequestID fills in x-amzn-RequestId when the Handler's response
// didn't set one, the same synthetic-id fallback ControlAPI.Record uses
// for its own observations.
func ensureRequestID(resp *http.Response) {
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	if resp.Header.Get("X-Amzn-Requestid") == "" {
		resp.Header.Set("X-Amzn-Requestid", uuid.NewString())
	}
}

// needsChunkDecoding reports whether the request body uses aws-chunked
// framing and must be decoded before the Handler sees it: either the
// Content-Encoding names it directly, or x-amz-content-sha256 carries the
// streaming-signed-payload marker a producer sets instead of (or alongside)
// that header.
func needsChunkDecoding(h http.Header) bool {
	if h.Get("Content-Encoding") == "aws-chunked" {
		return true
	}
	return strings.HasPrefix(h.Get("X-Amz-Content-Sha256"), signer.StreamingPayload)
}

func writeErrorResponse(conn net.Conn, err error) {
	resp := &http.Response{
		StatusCode: http.StatusInternalServerError,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(err.Error())),
	}
	resp.Write(conn)
}
