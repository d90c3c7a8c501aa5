// Package ytchat talks to the YouTube live chat: it polls incoming messages,
// posts replies, and manages the pool of OAuth credentials the bot rotates
// through when a send hits an auth failure or a rate limit.
package ytchat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sunniebot/studybot/config"
)

// Pool holds an ordered list of credential sets and the cached access token of
// the active one. The token value is shared between the ingestion loop and
// every background worker, so all reads and writes go through the lock.
type Pool struct {
	creds      []config.Credential
	httpClient *http.Client    // test override, routed through oauth2.HTTPClient
	endpoint   oauth2.Endpoint // defaults to Google's token endpoint

	mu        sync.RWMutex
	idx       int
	token     string
	expiresAt time.Time
}

// NewPool builds a Pool from the configured credential list.
func NewPool(creds []config.Credential) (*Pool, error) {
	if len(creds) == 0 {
		return nil, errors.New("credential pool empty")
	}
	return &Pool{creds: creds, endpoint: google.Endpoint}, nil
}

// Size returns the number of credential sets in the pool.
func (p *Pool) Size() int { return len(p.creds) }

// Active returns the name of the credential currently in use.
func (p *Pool) Active() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.creds[p.idx].Name
}

// Token returns a valid access token for the active credential, refreshing it
// when the cached one is missing or within a minute of expiry.
func (p *Pool) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.token != "" && time.Until(p.expiresAt) > 60*time.Second { // 1 min buffer
		tok := p.token
		p.mu.RUnlock()
		return tok, nil
	}
	p.mu.RUnlock()
	return p.Refresh(ctx)
}

// Refresh forces a refresh-token grant for the active credential and caches
// the result.
func (p *Pool) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked(ctx)
}

// Rotate advances to the next credential in the pool (wrapping around),
// discards the cached token and refreshes under the new credential.
func (p *Pool) Rotate(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx = (p.idx + 1) % len(p.creds)
	p.token = ""
	p.expiresAt = time.Time{}
	slog.Info("credential pool rotated", slog.String("credential", p.creds[p.idx].Name))
	return p.refreshLocked(ctx)
}

func (p *Pool) refreshLocked(ctx context.Context) (string, error) {
	cred := p.creds[p.idx]
	oc := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     p.endpoint,
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	tok, err := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("refresh credential %q: %w", cred.Name, err)
	}
	p.token = tok.AccessToken
	p.expiresAt = tok.Expiry
	return p.token, nil
}
