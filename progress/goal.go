package progress

import (
	"context"
	"fmt"

	"github.com/sunniebot/studybot/rowstore"
)

// AddGoal creates a Pending goal; same shape as AddTask with the goal reward.
func (s *Service) AddGoal(ctx context.Context, username, userID, text string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if tooShort(text) {
		return fmt.Sprintf("@%s goal description is too short — give it at least %d characters", username, minItemChars), nil
	}
	rows, err := s.list(ctx, TableGoals)
	if err != nil {
		return "", err
	}
	if i := s.findLatest(rows, itemColUserID, userID, itemColStatus, StatusPending); i >= 0 {
		return fmt.Sprintf("@%s you already have a pending goal (%q) — finish it with !goaldone first", username, cell(rows[i], itemColName)), nil
	}
	row := []string{username, userID, text, s.now().Format(timeLayout), "", StatusPending}
	if err := s.append(ctx, TableGoals, row); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s goal set: %q — complete it with !goaldone for +%d XP", username, text, GoalXP), nil
}

// CompleteGoal flips the user's Pending goal to Completed and awards XP.
func (s *Service) CompleteGoal(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rows, err := s.list(ctx, TableGoals)
	if err != nil {
		return "", err
	}
	i := s.findLatest(rows, itemColUserID, userID, itemColStatus, StatusPending)
	if i < 0 {
		return fmt.Sprintf("@%s no active goal — set one with !goal <description>", username), nil
	}
	sheetRow := rowstore.DataRow(i)
	if err := s.update(ctx, TableGoals, sheetRow, itemColCompleted+1, s.now().Format(timeLayout)); err != nil {
		return "", err
	}
	if err := s.update(ctx, TableGoals, sheetRow, itemColStatus+1, StatusCompleted); err != nil {
		return "", err
	}
	if err := s.awardLocked(ctx, username, userID, GoalXP); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s goal %q achieved! 🎯 +%d XP", username, cell(rows[i], itemColName), GoalXP), nil
}

// SummaryReply reports the user's XP, rank, streak, and open items in one line.
func (s *Service) SummaryReply(ctx context.Context, username, userID string) (string, error) {
	total, err := s.TotalXP(ctx, userID)
	if err != nil {
		return "", err
	}
	streak, err := s.Streak(ctx, userID)
	if err != nil {
		return "", err
	}
	taskRows, err := s.list(ctx, TableTasks)
	if err != nil {
		return "", err
	}
	goalRows, err := s.list(ctx, TableGoals)
	if err != nil {
		return "", err
	}
	task := "none"
	if i := s.findLatest(taskRows, itemColUserID, userID, itemColStatus, StatusPending); i >= 0 {
		task = fmt.Sprintf("%q", cell(taskRows[i], itemColName))
	}
	goal := "none"
	if i := s.findLatest(goalRows, itemColUserID, userID, itemColStatus, StatusPending); i >= 0 {
		goal = fmt.Sprintf("%q", cell(goalRows[i], itemColName))
	}
	return fmt.Sprintf("@%s summary — XP: %d (%s), streak: %d day(s), task: %s, goal: %s",
		username, total, RankTitle(total), streak, task, goal), nil
}
