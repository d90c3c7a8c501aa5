// Package server exposes the HTTP surface: health, readiness, status,
// metrics, and the admin announce endpoint. Permissive CORS in dev, with
// correlation IDs injected into request contexts for consistent logging.
package server

import (
	"context"

	"github.com/sunniebot/studybot/announce"
	"github.com/sunniebot/studybot/config"
	"github.com/sunniebot/studybot/pomo"
	"github.com/sunniebot/studybot/rowstore"
)

// LiveChecker reports whether the configured stream is currently live.
type LiveChecker interface {
	IsLive(ctx context.Context) (bool, error)
}

// Handlers holds dependencies for all HTTP handlers. Announcer, Pomos and
// Live may be nil when the bot loop isn't running (degraded mode); handlers
// must tolerate that.
type Handlers struct {
	ctx       context.Context
	cfg       *config.Config
	store     rowstore.Store
	live      LiveChecker
	announcer *announce.Announcer
	pomos     *pomo.Manager
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, cfg *config.Config, store rowstore.Store, live LiveChecker, ann *announce.Announcer, pomos *pomo.Manager) *Handlers {
	return &Handlers{
		ctx:       ctx,
		cfg:       cfg,
		store:     store,
		live:      live,
		announcer: ann,
		pomos:     pomos,
	}
}
