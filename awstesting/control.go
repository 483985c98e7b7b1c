package awstesting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ControlAPI is a small chi-routed HTTP server run alongside a Server's raw
// listener. Raw AWS traffic (including aws-chunked bodies) has to go
// through Server's own bufio/net.Listener loop since chi's net/http
// plumbing can't intercept that framing, but the auxiliary arm/inspect
// surface tests use to drive a fixture has no such constraint, so it gets
// the teacher's ordinary chi.Router treatment (internal/handler's
// RegisterRoutes(r chi.Router) style).
type ControlAPI struct {
	router chi.Router
	srv    *httptest.Server

	mu           sync.Mutex
	observations []Observation
}

// Observation records one request the paired Server's Handler saw, for a
// test to assert against via the control API's /observations endpoint
// instead of threading a channel through the Handler closure itself.
type Observation struct {
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Headers      map[string]string `json:"headers"`
	RequestID    string            `json:"request_id"`
	BodyByteSize int               `json:"body_byte_size"`
}

// NewControlAPI builds and starts the control server. Callers pair it with
// a Server, recording an Observation per request from within their own
// Handler by calling Record.
func NewControlAPI() *ControlAPI {
	c := &ControlAPI{router: chi.NewRouter()}
	c.router.Get("/observations", c.handleListObservations)
	c.router.Delete("/observations", c.handleClearObservations)
	c.srv = httptest.NewServer(c.router)
	return c
}

// URL returns the control API's base URL.
func (c *ControlAPI) URL() string { return c.srv.URL }

// Close stops the control server.
func (c *ControlAPI) Close() { c.srv.Close() }

// Record appends one Observation, synthesizing a request ID via uuid when
// the Handler under test didn't already assign one through an
// x-amzn-RequestId response header — mirroring the real service's own
// behavior of always returning a request id even for requests a
// middleware chain never annotated.
func (c *ControlAPI) Record(obs Observation) {
	if obs.RequestID == "" {
		obs.RequestID = uuid.NewString()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observations = append(c.observations, obs)
}

func (c *ControlAPI) handleListObservations(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	out := make([]Observation, len(c.observations))
	copy(out, c.observations)
	c.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (c *ControlAPI) handleClearObservations(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.observations = nil
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
