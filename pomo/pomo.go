// Package pomo runs in-memory pomodoro timers. A run is owned entirely by one
// worker goroutine; stopping a timer just deletes its registry entry, and the
// worker notices at its next phase boundary. Nothing here touches the row
// store except XP awards, so all timers die with the process.
package pomo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sunniebot/studybot/progress"
	"github.com/sunniebot/studybot/telemetry"
)

// Phase names reported by !pomo status.
const (
	PhasePreparing = "preparing"
	PhaseStudying  = "studying"
	PhaseBreak     = "break"
)

// Parameter bounds.
const (
	minSessionMinutes = 5
	maxSessionMinutes = 120
	minTotalSessions  = 1
	maxTotalSessions  = 12
	minBreakMinutes   = 1
	maxBreakMinutes   = 60
)

// Defaults applied when !pomo is given fewer than three numbers.
const (
	defaultTotalSessions = 4
	defaultBreakMinutes  = 5
)

// Poster posts a message to the live chat.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// timer is one user's live pomodoro run.
type timer struct {
	username       string
	sessionMinutes int
	totalSessions  int
	breakMinutes   int

	currentSession int
	phase          string
}

// Manager owns the registry of live timers.
type Manager struct {
	progress *progress.Service
	poster   Poster

	mu     sync.Mutex
	timers map[string]*timer

	// sleepFor converts phase minutes to the real sleep; tests shrink it.
	sleepFor func(minutes int) time.Duration
}

func New(prog *progress.Service, poster Poster) *Manager {
	return &Manager{
		progress: prog,
		poster:   poster,
		timers:   make(map[string]*timer),
		sleepFor: func(minutes int) time.Duration { return time.Duration(minutes) * time.Minute },
	}
}

// Handle dispatches a !pomo subcommand. arg is the text after "!pomo".
func (m *Manager) Handle(ctx context.Context, username, userID, arg string) (string, error) {
	sub := strings.TrimSpace(arg)
	switch {
	case strings.EqualFold(sub, "status"):
		return m.Status(username, userID), nil
	case strings.EqualFold(sub, "stop"):
		return m.Stop(username, userID), nil
	case sub == "":
		return fmt.Sprintf("@%s usage: !pomo <session min> [sessions] [break min] | status | stop", username), nil
	default:
		return m.Start(ctx, username, userID, sub), nil
	}
}

// Start validates the numbers and spawns the worker. Unlike the reminder
// parser, bare numbers are accepted as minutes here.
func (m *Manager) Start(ctx context.Context, username, userID, args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 3 {
		return fmt.Sprintf("@%s usage: !pomo <session min> [sessions] [break min]", username)
	}
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Sprintf("@%s %q isn't a number — usage: !pomo <session min> [sessions] [break min]", username, f)
		}
		nums[i] = n
	}
	sessionMinutes := nums[0]
	totalSessions := defaultTotalSessions
	breakMinutes := defaultBreakMinutes
	if len(nums) > 1 {
		totalSessions = nums[1]
	}
	if len(nums) > 2 {
		breakMinutes = nums[2]
	}
	if sessionMinutes < minSessionMinutes || sessionMinutes > maxSessionMinutes {
		return fmt.Sprintf("@%s session length must be %d-%d minutes", username, minSessionMinutes, maxSessionMinutes)
	}
	if totalSessions < minTotalSessions || totalSessions > maxTotalSessions {
		return fmt.Sprintf("@%s session count must be %d-%d", username, minTotalSessions, maxTotalSessions)
	}
	if breakMinutes < minBreakMinutes || breakMinutes > maxBreakMinutes {
		return fmt.Sprintf("@%s break length must be %d-%d minutes", username, minBreakMinutes, maxBreakMinutes)
	}

	m.mu.Lock()
	if _, exists := m.timers[userID]; exists {
		m.mu.Unlock()
		return fmt.Sprintf("@%s you already have a pomodoro running — !pomo status or !pomo stop", username)
	}
	t := &timer{
		username:       username,
		sessionMinutes: sessionMinutes,
		totalSessions:  totalSessions,
		breakMinutes:   breakMinutes,
		phase:          PhasePreparing,
	}
	m.timers[userID] = t
	m.mu.Unlock()
	if telemetry.ActivePomodoros != nil {
		telemetry.ActivePomodoros.Inc()
	}

	go m.run(ctx, userID, t)
	return fmt.Sprintf("@%s pomodoro started: %d × %d min with %d min breaks 🍅", username, totalSessions, sessionMinutes, breakMinutes)
}

// Status reports the run's current phase.
func (m *Manager) Status(username, userID string) string {
	m.mu.Lock()
	t, exists := m.timers[userID]
	var current, total int
	var phase string
	if exists {
		current, total, phase = t.currentSession, t.totalSessions, t.phase
	}
	m.mu.Unlock()
	if !exists {
		return fmt.Sprintf("@%s no active pomodoro timer", username)
	}
	return fmt.Sprintf("@%s pomodoro: session %d/%d (%s)", username, current, total, phase)
}

// Stop deletes the registry entry. The worker aborts at its next wake-up, so
// cancellation can lag by up to the remaining phase duration.
func (m *Manager) Stop(username, userID string) string {
	m.mu.Lock()
	_, exists := m.timers[userID]
	if exists {
		delete(m.timers, userID)
	}
	m.mu.Unlock()
	if !exists {
		return fmt.Sprintf("@%s no active pomodoro timer", username)
	}
	if telemetry.ActivePomodoros != nil {
		telemetry.ActivePomodoros.Dec()
	}
	return fmt.Sprintf("@%s pomodoro stopped — no more phase announcements", username)
}

// Active returns the number of live timers.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// alive reports whether t is still the registered run for the user; transition
// mutates the entry while it is. The identity comparison keeps a stopped
// worker from adopting a successor run registered under the same user id.
func (m *Manager) alive(userID string, t *timer, transition func(*timer)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.timers[userID]
	if !exists || cur != t {
		return false
	}
	if transition != nil {
		transition(cur)
	}
	return true
}

// run is the worker loop: study phases separated by breaks, no trailing break
// after the final session. Absence from the registry at any wake-up aborts
// silently; that is the cancellation mechanism.
func (m *Manager) run(ctx context.Context, userID string, t *timer) {
	username := t.username
	for n := 1; n <= t.totalSessions; n++ {
		if !m.alive(userID, t, func(t *timer) { t.currentSession = n; t.phase = PhaseStudying }) {
			return
		}
		m.post(ctx, fmt.Sprintf("@%s 🍅 session %d/%d started — %d minutes of focus!", username, n, t.totalSessions, t.sessionMinutes))
		if !m.sleep(ctx, t.sessionMinutes) {
			return
		}
		if !m.alive(userID, t, nil) {
			return
		}
		m.post(ctx, fmt.Sprintf("@%s ✅ session %d/%d complete!", username, n, t.totalSessions))
		if err := m.progress.Award(ctx, username, userID, t.sessionMinutes*2); err != nil {
			slog.Warn("pomodoro xp award failed", slog.String("user", username), slog.Any("err", err))
		}
		if telemetry.PomodoroCompleted != nil {
			telemetry.PomodoroCompleted.Inc()
		}
		if n < t.totalSessions {
			if !m.alive(userID, t, func(t *timer) { t.phase = PhaseBreak }) {
				return
			}
			m.post(ctx, fmt.Sprintf("@%s ☕ break time — %d minutes", username, t.breakMinutes))
			if !m.sleep(ctx, t.breakMinutes) {
				return
			}
			if !m.alive(userID, t, nil) {
				return
			}
			m.post(ctx, fmt.Sprintf("@%s break's over — back to it!", username))
		}
	}

	bonus := 10
	if t.totalSessions >= 4 {
		bonus = 20
	}
	if err := m.progress.Award(ctx, username, userID, bonus); err != nil {
		slog.Warn("pomodoro bonus award failed", slog.String("user", username), slog.Any("err", err))
	}
	m.post(ctx, fmt.Sprintf("@%s 🎉 pomodoro complete: %d session(s) done, +%d XP bonus!", username, t.totalSessions, bonus))

	m.mu.Lock()
	owned := m.timers[userID] == t
	if owned {
		delete(m.timers, userID)
	}
	m.mu.Unlock()
	if owned && telemetry.ActivePomodoros != nil {
		telemetry.ActivePomodoros.Dec()
	}
}

func (m *Manager) sleep(ctx context.Context, minutes int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(m.sleepFor(minutes)):
		return true
	}
}

func (m *Manager) post(ctx context.Context, text string) {
	if err := m.poster.Post(ctx, text); err != nil {
		slog.Warn("pomodoro announcement failed", slog.Any("err", err))
	}
}
