// Package remind schedules chat reminders: a persisted Active row plus an
// in-process timer per reminder. Reminders are independent fire-and-forget
// timers; cancellation happens by flipping the row's status externally and is
// detected when the timer wakes, not before.
package remind

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sunniebot/studybot/rowstore"
	"github.com/sunniebot/studybot/telemetry"
)

// Table is the Reminders sheet tab.
const Table = "Reminders"

// Reminder statuses.
const (
	StatusActive    = "Active"
	StatusSent      = "Sent"
	StatusFailed    = "Failed"
	StatusCancelled = "Cancelled"
)

// Reminders columns.
const (
	colUsername = 0
	colUserID   = 1
	colMessage  = 2
	colDelay    = 3
	colCreated  = 4
	colTrigger  = 5
	colStatus   = 6
	colSent     = 7
	colID       = 8
)

// maxDelayMinutes caps reminders at 24 hours.
const maxDelayMinutes = 1440

const timeLayout = time.RFC3339

// Poster posts a message to the live chat.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// durationPatterns are tried in order; the first pattern that matches anywhere
// in the text wins. Bare numbers are deliberately not accepted here.
var durationPatterns = []struct {
	re         *regexp.Regexp
	multiplier float64
}{
	{regexp.MustCompile(`(?i)(\d+)\s*(?:minutes|minute|mins|min)\b`), 1},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:hours|hour|hrs|hr)\b`), 60},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:seconds|second|secs|sec)\b`), 1.0 / 60},
}

// fillerWords may lead the message after the duration token is stripped.
var fillerWords = []string{"later", "about", "me", "for", "to"}

// ParseRequest extracts the delay in minutes and the optional message from the
// text after "!remind". ok is false when no duration token is present.
func ParseRequest(raw string) (minutes int, message string, ok bool) {
	for _, p := range durationPatterns {
		m := p.re.FindStringSubmatchIndex(raw)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(raw[m[2]:m[3]])
		if err != nil {
			continue
		}
		minutes = int(float64(n) * p.multiplier)
		// Strip the matched token once, then one leading filler word.
		message = strings.TrimSpace(raw[:m[0]] + raw[m[1]:])
		lower := strings.ToLower(message)
		for _, w := range fillerWords {
			if lower == w {
				message = ""
				break
			}
			if strings.HasPrefix(lower, w+" ") {
				message = strings.TrimSpace(message[len(w):])
				break
			}
		}
		return minutes, message, true
	}
	return 0, "", false
}

// Scheduler owns reminder persistence and the timer goroutines.
type Scheduler struct {
	store  rowstore.Store
	poster Poster
	now    func() time.Time

	// sleepFor converts a delay to the real timer duration; tests shrink it.
	sleepFor func(minutes int) time.Duration
}

func New(store rowstore.Store, poster Poster) *Scheduler {
	return &Scheduler{
		store:    store,
		poster:   poster,
		now:      time.Now,
		sleepFor: func(minutes int) time.Duration { return time.Duration(minutes) * time.Minute },
	}
}

// Schedule validates the request, persists an Active row and starts the timer.
// The returned string is the chat reply (validation errors included).
func (s *Scheduler) Schedule(ctx context.Context, username, userID, raw string) (string, error) {
	minutes, message, ok := ParseRequest(raw)
	if !ok {
		return fmt.Sprintf("@%s I couldn't find a duration — try !remind 30 min take a break", username), nil
	}
	if minutes < 1 {
		return fmt.Sprintf("@%s that's too soon — reminders start at 1 minute", username), nil
	}
	if minutes > maxDelayMinutes {
		return fmt.Sprintf("@%s that's too far out — reminders max out at 24 hours", username), nil
	}

	now := s.now()
	id := fmt.Sprintf("%s-%d", userID, now.Unix())
	trigger := now.Add(time.Duration(minutes) * time.Minute)
	row := []string{
		username, userID, message,
		strconv.Itoa(minutes),
		now.Format(timeLayout), trigger.Format(timeLayout),
		StatusActive, "", id,
	}
	if err := s.store.AppendRow(ctx, Table, row); err != nil {
		telemetry.CountRowStoreError()
		return "", err
	}
	if telemetry.PendingReminders != nil {
		telemetry.PendingReminders.Inc()
	}
	go s.fireAfter(ctx, username, userID, id, message, minutes)
	if message != "" {
		return fmt.Sprintf("@%s got it — I'll remind you in %d minute(s): %s", username, minutes, message), nil
	}
	return fmt.Sprintf("@%s got it — I'll remind you in %d minute(s)", username, minutes), nil
}

// fireAfter sleeps for the delay, re-checks the row is still Active (guards
// against external cancellation), posts the reminder and flips the status.
func (s *Scheduler) fireAfter(ctx context.Context, username, userID, id, message string, minutes int) {
	defer func() {
		if telemetry.PendingReminders != nil {
			telemetry.PendingReminders.Dec()
		}
	}()
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.sleepFor(minutes)):
	}

	idx, status, err := s.find(ctx, id)
	if err != nil {
		slog.Warn("reminder recheck failed", slog.String("id", id), slog.Any("err", err))
		return
	}
	if idx < 0 || status != StatusActive {
		slog.Info("reminder cancelled before firing", slog.String("id", id))
		return
	}

	text := fmt.Sprintf("@%s ⏰ reminder: %s", username, message)
	if message == "" {
		text = fmt.Sprintf("@%s ⏰ time's up!", username)
	}
	sheetRow := rowstore.DataRow(idx)
	if err := s.poster.Post(ctx, text); err != nil {
		slog.Warn("reminder post failed", slog.String("id", id), slog.Any("err", err))
		if telemetry.RemindersFailed != nil {
			telemetry.RemindersFailed.Inc()
		}
		if uerr := s.store.UpdateCell(ctx, Table, sheetRow, colStatus+1, StatusFailed); uerr != nil {
			telemetry.CountRowStoreError()
			slog.Warn("reminder status update failed", slog.String("id", id), slog.Any("err", uerr))
		}
		return
	}
	if err := s.store.UpdateCell(ctx, Table, sheetRow, colStatus+1, StatusSent); err != nil {
		telemetry.CountRowStoreError()
		slog.Warn("reminder status update failed", slog.String("id", id), slog.Any("err", err))
		return
	}
	if err := s.store.UpdateCell(ctx, Table, sheetRow, colSent+1, s.now().Format(timeLayout)); err != nil {
		telemetry.CountRowStoreError()
	}
	if telemetry.RemindersFired != nil {
		telemetry.RemindersFired.Inc()
	}
}

// find locates a reminder row by id; returns index -1 when absent.
func (s *Scheduler) find(ctx context.Context, id string) (int, string, error) {
	rows, err := s.store.ListRows(ctx, Table)
	if err != nil {
		telemetry.CountRowStoreError()
		return -1, "", err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if col(rows[i], colID) == id {
			return i, col(rows[i], colStatus), nil
		}
	}
	return -1, "", nil
}

func col(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
