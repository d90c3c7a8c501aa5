package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sunniebot/studybot/rowstore"
)

// StudySessions table columns.
const (
	sesColUsername = 0
	sesColUserID   = 1
	sesColStart    = 2
	sesColEnd      = 3
	sesColDuration = 4
	sesColStatus   = 5
)

// badgeTable maps single-session minute thresholds to badge names, highest
// first. Only the highest tier newly reached by this session is reported.
var badgeTable = []struct {
	minutes int
	name    string
}{
	{1000, "Transcendent Scholar"},
	{800, "Enlightened"},
	{600, "Sage"},
	{420, "Marathon Master"},
	{300, "Iron Will"},
	{240, "Deep Diver"},
	{180, "Focus Warrior"},
	{120, "Centurion"},
	{90, "Momentum Builder"},
	{60, "Hour Hero"},
	{30, "First Spark"},
}

// BadgeFor returns the badge earned by a single session of the given length,
// or "" when the session is below every threshold.
func BadgeFor(minutes int) string {
	for _, b := range badgeTable {
		if minutes >= b.minutes {
			return b.name
		}
	}
	return ""
}

// StartSession opens a study session for the user. Rejected when an Active
// session already exists.
func (s *Service) StartSession(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rows, err := s.list(ctx, TableSessions)
	if err != nil {
		return "", err
	}
	if i := s.findLatest(rows, sesColUserID, userID, sesColStatus, StatusActive); i >= 0 {
		return fmt.Sprintf("@%s you already have a study session running — finish it with !stop", username), nil
	}
	row := []string{username, userID, s.now().Format(timeLayout), "", "", StatusActive}
	if err := s.append(ctx, TableSessions, row); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s study session started! 📚 Stop it with !stop to earn XP", username), nil
}

// StopSession closes the user's Active session, computing its duration and
// awarding XP = minutes × 2. Badge thresholds apply to this session only.
func (s *Service) StopSession(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rows, err := s.list(ctx, TableSessions)
	if err != nil {
		return "", err
	}
	i := s.findLatest(rows, sesColUserID, userID, sesColStatus, StatusActive)
	if i < 0 {
		return fmt.Sprintf("@%s no study session running — start one with !start", username), nil
	}
	start, err := time.Parse(timeLayout, cell(rows[i], sesColStart))
	if err != nil {
		return "", fmt.Errorf("parse session start: %w", err)
	}
	now := s.now()
	minutes := int(now.Sub(start).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	sheetRow := rowstore.DataRow(i)
	if err := s.update(ctx, TableSessions, sheetRow, sesColEnd+1, now.Format(timeLayout)); err != nil {
		return "", err
	}
	if err := s.update(ctx, TableSessions, sheetRow, sesColDuration+1, strconv.Itoa(minutes)); err != nil {
		return "", err
	}
	if err := s.update(ctx, TableSessions, sheetRow, sesColStatus+1, StatusCompleted); err != nil {
		return "", err
	}
	xp := minutes * 2
	if err := s.awardLocked(ctx, username, userID, xp); err != nil {
		return "", err
	}
	reply := fmt.Sprintf("@%s session complete! ⏱️ %d minute(s), +%d XP", username, minutes, xp)
	if badge := BadgeFor(minutes); badge != "" {
		reply += fmt.Sprintf(" — badge unlocked: %s 🏅", badge)
	}
	return reply, nil
}

// LastCompletedSessionMinutes returns the duration of the user's most recent
// Completed session; ok is false when none exists.
func (s *Service) LastCompletedSessionMinutes(ctx context.Context, userID string) (minutes int, ok bool, err error) {
	rows, err := s.list(ctx, TableSessions)
	if err != nil {
		return 0, false, err
	}
	i := s.findLatest(rows, sesColUserID, userID, sesColStatus, StatusCompleted)
	if i < 0 {
		return 0, false, nil
	}
	m, _ := strconv.Atoi(cell(rows[i], sesColDuration))
	return m, true, nil
}

// TotalSessionMinutes sums the durations of the user's Completed sessions.
func (s *Service) TotalSessionMinutes(ctx context.Context, userID string) (int, error) {
	rows, err := s.list(ctx, TableSessions)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, row := range rows {
		if cell(row, sesColUserID) == userID && cell(row, sesColStatus) == StatusCompleted {
			m, _ := strconv.Atoi(cell(row, sesColDuration))
			total += m
		}
	}
	return total, nil
}

// findLatest scans most-recent-first for a row matching user id and status;
// returns the row index or -1.
func (s *Service) findLatest(rows [][]string, idCol int, userID string, statusCol int, status string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if cell(rows[i], idCol) == userID && cell(rows[i], statusCol) == status {
			return i
		}
	}
	return -1
}
