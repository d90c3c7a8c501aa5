package progress

import (
	"context"
	"fmt"
	"time"
)

// Attendance table columns.
const (
	attColUsername  = 0
	attColUserID    = 1
	attColTimestamp = 2
)

const streakScanCap = 365 // safety cap when walking back day by day

// CheckIn records today's attendance for the user. A second check-in on the
// same calendar day is rejected by scanning for an existing row with today's
// date.
func (s *Service) CheckIn(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rows, err := s.list(ctx, TableAttendance)
	if err != nil {
		return "", err
	}
	today := s.now().Format("2006-01-02")
	for _, row := range rows {
		if cell(row, attColUserID) != userID {
			continue
		}
		ts, err := time.Parse(timeLayout, cell(row, attColTimestamp))
		if err != nil {
			continue
		}
		if ts.Format("2006-01-02") == today {
			return fmt.Sprintf("@%s you already checked in today ✅", username), nil
		}
	}
	if err := s.append(ctx, TableAttendance, []string{username, userID, s.now().Format(timeLayout)}); err != nil {
		return "", err
	}
	streak, err := s.Streak(ctx, userID)
	if err != nil {
		// Check-in already persisted; report it without the streak.
		return fmt.Sprintf("@%s attendance recorded! 📋", username), nil
	}
	return fmt.Sprintf("@%s attendance recorded! 📋 Current streak: %d day(s)", username, streak), nil
}

// Streak counts consecutive attended calendar days walking backward from
// today. A missing day ends the walk; today itself missing means 0.
func (s *Service) Streak(ctx context.Context, userID string) (int, error) {
	rows, err := s.list(ctx, TableAttendance)
	if err != nil {
		return 0, err
	}
	attended := make(map[string]bool)
	for _, row := range rows {
		if cell(row, attColUserID) != userID {
			continue
		}
		ts, err := time.Parse(timeLayout, cell(row, attColTimestamp))
		if err != nil {
			continue
		}
		attended[ts.Format("2006-01-02")] = true
	}
	streak := 0
	day := s.now()
	for i := 0; i < streakScanCap; i++ {
		if !attended[day.Format("2006-01-02")] {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}
