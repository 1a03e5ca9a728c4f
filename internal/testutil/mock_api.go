// Package testutil provides testing utilities for the profile API client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock profile API server for testing.
//
// Responses are scripted per endpoint path and lookup key (the username or
// urn query parameter). A script is served in order; its last response
// repeats once the script is exhausted.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	scripts  map[string][]MockResponse
	served   map[string]int

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	inFlight          int
	maxInFlight       int
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		scripts:  make(map[string][]MockResponse),
		served:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.inFlight++
		if mock.inFlight > mock.maxInFlight {
			mock.maxInFlight = mock.inFlight
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

		if exists {
			handler(w, r)
			return
		}
		mock.scriptedHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters. Scripts restart from the beginning.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.maxInFlight = 0
	m.served = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponses scripts the responses for path and lookup key.
func (m *MockAPI) SetResponses(path, key string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[scriptKey(path, key)] = resps
}

// Requests returns how many requests were served for path and key.
func (m *MockAPI) Requests(path, key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.served[scriptKey(path, key)]
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (m *MockAPI) MaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

func scriptKey(path, key string) string {
	return path + "|" + key
}

func lookupKey(r *http.Request) string {
	q := r.URL.Query()
	if v := q.Get("username"); v != "" {
		return v
	}
	return q.Get("urn")
}

// scriptedHandler serves the next scripted response, or a 404 when the
// path and key have no script.
func (m *MockAPI) scriptedHandler(w http.ResponseWriter, r *http.Request) {
	key := scriptKey(r.URL.Path, lookupKey(r))

	m.mu.Lock()
	script := m.scripts[key]
	n := m.served[key]
	m.served[key] = n + 1
	m.mu.Unlock()

	resp := NewNotFoundResponse()
	if len(script) > 0 {
		if n >= len(script) {
			n = len(script) - 1
		}
		resp = script[n]
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	w.Header().Set("Content-Type", "application/json")
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewDataResponse creates a 200 OK response wrapping data in {"data": ...}.
func NewDataResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"success": true, "data": %s}`, data),
	}
}

// NewNotFoundResponse creates a 404 response carrying the status in the body.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status": 404, "message": "Not Found"}`,
	}
}

// NewFailureResponse creates a 200 response with success=false.
func NewFailureResponse(message string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"success": false, "message": %q}`, message),
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status": 429, "message": "Too Many Requests"}`,
		Headers: map[string]string{
			"Retry-After": "1",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}
