// Package announce posts canned messages on a schedule gated by chat volume.
// All rules share one chat-line counter: firing any rule resets it, so a
// quiet chat starves every rule until enough new lines arrive.
package announce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sunniebot/studybot/telemetry"
)

// Rule is one recurring announcement.
type Rule struct {
	Message      string
	Interval     time.Duration
	MinChatLines int
}

// DefaultRules mirrors the stream's standing announcements.
var DefaultRules = []Rule{
	{Message: "📋 Type !help to see all study commands!", Interval: 30 * time.Minute, MinChatLines: 10},
	{Message: "🔥 Don't forget to check in with !attend to keep your streak alive!", Interval: 45 * time.Minute, MinChatLines: 15},
	{Message: "🍅 Try a pomodoro: !pomo 25 4 5 — four 25-minute sessions with 5-minute breaks.", Interval: 60 * time.Minute, MinChatLines: 20},
	{Message: "👥 Find a study buddy with !buddy @name and keep each other accountable!", Interval: 90 * time.Minute, MinChatLines: 25},
}

// Poster posts a message to the live chat.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Announcer owns the rule list and the shared chat-line counter.
type Announcer struct {
	poster Poster

	mu        sync.Mutex
	rules     []Rule
	lastSent  []time.Time
	chatLines int

	now func() time.Time
}

func New(poster Poster, rules []Rule) *Announcer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Announcer{
		poster:   poster,
		rules:    rules,
		lastSent: make([]time.Time, len(rules)),
		now:      time.Now,
	}
}

// BumpChat records one observed chat line. Called by the ingestion loop for
// every event, command or not.
func (a *Announcer) BumpChat() {
	a.mu.Lock()
	a.chatLines++
	a.mu.Unlock()
}

// ChatLines returns the shared counter since the last firing or reset.
func (a *Announcer) ChatLines() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chatLines
}

// Run wakes every tick and fires due rules. Firing one rule zeroes the shared
// chat counter, which pushes every other rule's volume gate back.
func (a *Announcer) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	slog.Info("announcer started", slog.Int("rules", len(a.rules)), slog.Duration("tick", tick))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.fireDue(ctx)
		}
	}
}

func (a *Announcer) fireDue(ctx context.Context) {
	for i := range a.rules {
		a.mu.Lock()
		r := a.rules[i]
		due := a.chatLines >= r.MinChatLines &&
			(a.lastSent[i].IsZero() || a.now().Sub(a.lastSent[i]) >= r.Interval)
		if due {
			a.chatLines = 0
			a.lastSent[i] = a.now()
		}
		a.mu.Unlock()
		if !due {
			continue
		}
		if err := a.poster.Post(ctx, r.Message); err != nil {
			slog.Warn("announcement post failed", slog.Any("err", err))
			continue
		}
		if telemetry.AnnouncementsFired != nil {
			telemetry.AnnouncementsFired.Inc()
		}
	}
}

// Fire posts one rule's message immediately, bypassing the gates. Used by the
// admin endpoint.
func (a *Announcer) Fire(ctx context.Context, text string) error {
	if err := a.poster.Post(ctx, text); err != nil {
		return err
	}
	if telemetry.AnnouncementsFired != nil {
		telemetry.AnnouncementsFired.Inc()
	}
	return nil
}

// RunDailyReset zeroes the shared counter every interval regardless of
// activity, so stale lines from a busy day don't trip the volume gates
// overnight.
func (a *Announcer) RunDailyReset(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 24 * time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			a.chatLines = 0
			a.mu.Unlock()
			slog.Info("announcer chat counter reset")
		}
	}
}
