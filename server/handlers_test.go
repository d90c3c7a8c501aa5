package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sunniebot/studybot/announce"
	"github.com/sunniebot/studybot/config"
	"github.com/sunniebot/studybot/rowstore"
	"github.com/sunniebot/studybot/testutil"
)

// failingStore fails every operation; used to simulate a dead backend.
type failingStore struct{}

var errDown = errors.New("backend down")

func (failingStore) ListRows(context.Context, string) ([][]string, error) { return nil, errDown }
func (failingStore) AppendRow(context.Context, string, []string) error    { return errDown }
func (failingStore) UpdateCell(context.Context, string, int, int, string) error {
	return errDown
}
func (failingStore) Ping(context.Context) error { return errDown }

func readyConfig() *config.Config {
	return &config.Config{
		VideoID:         "vid123",
		RowStoreBackend: "memory",
		Credentials: []config.Credential{
			{Name: "a", ClientID: "i", ClientSecret: "s", RefreshToken: "r"},
		},
	}
}

func TestHealthzOK(t *testing.T) {
	h := NewHandlers(context.Background(), readyConfig(), rowstore.NewMemoryStore(), nil, nil, nil)
	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "Sunnie-BOT is running!" {
		t.Errorf("body = %q", got)
	}
}

func TestHealthzDegraded(t *testing.T) {
	h := NewHandlers(context.Background(), readyConfig(), failingStore{}, nil, nil, nil)
	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestReadyzReady(t *testing.T) {
	h := NewHandlers(context.Background(), readyConfig(), rowstore.NewMemoryStore(), nil, nil, nil)
	rec := httptest.NewRecorder()
	h.HandleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestReadyzFailedChecks(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(h *Handlers)
		failed string
	}{
		{"store down", func(h *Handlers) { h.store = failingStore{} }, "rowstore"},
		{"no creds", func(h *Handlers) { h.cfg.Credentials = nil }, "credentials"},
		{"no video", func(h *Handlers) { h.cfg.VideoID = "" }, "stream"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := NewHandlers(context.Background(), readyConfig(), rowstore.NewMemoryStore(), nil, nil, nil)
			c.mutate(h)
			rec := httptest.NewRecorder()
			h.HandleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want 503", rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["failed_check"] != c.failed {
				t.Errorf("failed_check = %q, want %q", body["failed_check"], c.failed)
			}
		})
	}
}

func TestStatusSnapshot(t *testing.T) {
	ann := announce.New(&testutil.RecorderPoster{}, nil)
	ann.BumpChat()
	ann.BumpChat()
	h := NewHandlers(context.Background(), readyConfig(), rowstore.NewMemoryStore(), nil, ann, nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.VideoID != "vid123" || body.CredentialPool != 1 || body.ChatLinesSince != 2 {
		t.Errorf("unexpected snapshot: %+v", body)
	}
	if body.StreamLive != nil {
		t.Errorf("live status should be omitted without a chat client")
	}
}

func TestAdminAnnounce(t *testing.T) {
	poster := &testutil.RecorderPoster{}
	ann := announce.New(poster, nil)
	h := NewHandlers(context.Background(), readyConfig(), rowstore.NewMemoryStore(), nil, ann, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/announce", strings.NewReader(`{"message":"stream starts soon"}`))
	h.HandleAdminAnnounce(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if posts := poster.All(); len(posts) != 1 || posts[0] != "stream starts soon" {
		t.Errorf("unexpected posts: %v", posts)
	}

	// Method and body validation.
	rec = httptest.NewRecorder()
	h.HandleAdminAnnounce(rec, httptest.NewRequest(http.MethodGet, "/admin/announce", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.HandleAdminAnnounce(rec, httptest.NewRequest(http.MethodPost, "/admin/announce", strings.NewReader(`{"message":"  "}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "sesame")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	cfg := loadAuthConfig()

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })
	handler := adminAuth(next, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/announce", nil))
	if rec.Code != http.StatusUnauthorized || reached {
		t.Errorf("missing token should be rejected, status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/announce", nil)
	req.Header.Set("X-Admin-Token", "sesame")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !reached {
		t.Errorf("valid token should pass, status %d", rec.Code)
	}
}
