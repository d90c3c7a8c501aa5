// Package testutil holds shared test doubles: a mock Google OAuth/YouTube
// server and an in-memory reply recorder.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockGoogleServer creates a test server that mocks the Google OAuth token
// endpoint and YouTube Data API responses.
type MockGoogleServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockGoogleServer creates a new mock Google API server
func NewMockGoogleServer(t *testing.T) *MockGoogleServer {
	t.Helper()
	m := &MockGoogleServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockTokenResponse adds a handler for the OAuth token endpoint
func (m *MockGoogleServer) MockTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/token"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "Bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockTokenError makes the token endpoint fail with the given status
func (m *MockGoogleServer) MockTokenError(status int) {
	m.Handlers["/token"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"}) //nolint:errcheck // test mock response
	}
}

// MockVideosResponse adds a handler for the videos endpoint reporting the
// given live broadcast content and live chat id.
func (m *MockGoogleServer) MockVideosResponse(liveBroadcastContent, liveChatID string) {
	m.Handlers["/youtube/v3/videos"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"snippet": map[string]interface{}{
						"liveBroadcastContent": liveBroadcastContent,
					},
					"liveStreamingDetails": map[string]interface{}{
						"activeLiveChatId": liveChatID,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockInsertResponse adds a handler for the liveChat/messages insert endpoint
func (m *MockGoogleServer) MockInsertResponse(fn http.HandlerFunc) {
	m.Handlers["/youtube/v3/liveChat/messages"] = fn
}

// RewriteTransport redirects every request to the mock server's host,
// preserving the path. Install it on the http.Client handed to the code under
// test.
type RewriteTransport struct {
	URL  string
	Next http.RoundTripper
}

func (t *RewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target := t.URL + req.URL.Path
	if req.URL.RawQuery != "" {
		target += "?" + req.URL.RawQuery
	}
	clone := req.Clone(req.Context())
	u, err := clone.URL.Parse(target)
	if err != nil {
		return nil, err
	}
	clone.URL = u
	clone.Host = u.Host
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(clone)
}

// RecorderPoster collects posted replies for assertions.
type RecorderPoster struct {
	mu    sync.Mutex
	Posts []string
	Err   error
}

func (p *RecorderPoster) Post(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Posts = append(p.Posts, text)
	return nil
}

// All returns a copy of the recorded posts.
func (p *RecorderPoster) All() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Posts))
	copy(out, p.Posts)
	return out
}
