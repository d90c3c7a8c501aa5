package progress

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sunniebot/studybot/rowstore"
)

// Tasks/Goals table columns (both tables share the shape).
const (
	itemColUsername  = 0
	itemColUserID    = 1
	itemColName      = 2
	itemColCreated   = 3
	itemColCompleted = 4
	itemColStatus    = 5
)

// minItemChars is the minimum number of non-whitespace characters in a task
// or goal description.
const minItemChars = 3

func tooShort(text string) bool {
	n := 0
	for _, r := range text {
		if !strings.ContainsRune(" \t\n\r", r) {
			n++
		}
	}
	return n < minItemChars
}

// AddTask creates a Pending task. Rejected when the user already has one
// pending or the description is too short.
func (s *Service) AddTask(ctx context.Context, username, userID, text string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if tooShort(text) {
		return fmt.Sprintf("@%s task description is too short — give it at least %d characters", username, minItemChars), nil
	}
	rows, err := s.list(ctx, TableTasks)
	if err != nil {
		return "", err
	}
	if i := s.findLatest(rows, itemColUserID, userID, itemColStatus, StatusPending); i >= 0 {
		return fmt.Sprintf("@%s you already have a pending task (%q) — finish it with !done first", username, cell(rows[i], itemColName)), nil
	}
	row := []string{username, userID, text, s.now().Format(timeLayout), "", StatusPending}
	if err := s.append(ctx, TableTasks, row); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s task added: %q — complete it with !done for +%d XP", username, text, TaskXP), nil
}

// CompleteTask flips the user's Pending task to Completed and awards XP.
func (s *Service) CompleteTask(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rows, err := s.list(ctx, TableTasks)
	if err != nil {
		return "", err
	}
	i := s.findLatest(rows, itemColUserID, userID, itemColStatus, StatusPending)
	if i < 0 {
		return fmt.Sprintf("@%s no active task — add one with !task <description>", username), nil
	}
	sheetRow := rowstore.DataRow(i)
	if err := s.update(ctx, TableTasks, sheetRow, itemColCompleted+1, s.now().Format(timeLayout)); err != nil {
		return "", err
	}
	if err := s.update(ctx, TableTasks, sheetRow, itemColStatus+1, StatusCompleted); err != nil {
		return "", err
	}
	if err := s.awardLocked(ctx, username, userID, TaskXP); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s task %q completed! ✅ +%d XP", username, cell(rows[i], itemColName), TaskXP), nil
}

// PendingTask reports the user's current Pending task.
func (s *Service) PendingTask(ctx context.Context, username, userID string) (string, error) {
	rows, err := s.list(ctx, TableTasks)
	if err != nil {
		return "", err
	}
	i := s.findLatest(rows, itemColUserID, userID, itemColStatus, StatusPending)
	if i < 0 {
		return fmt.Sprintf("@%s no pending task", username), nil
	}
	return fmt.Sprintf("@%s pending task: %q", username, cell(rows[i], itemColName)), nil
}

// RemoveTask transitions the Pending task to Removed without awarding XP.
func (s *Service) RemoveTask(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rows, err := s.list(ctx, TableTasks)
	if err != nil {
		return "", err
	}
	i := s.findLatest(rows, itemColUserID, userID, itemColStatus, StatusPending)
	if i < 0 {
		return fmt.Sprintf("@%s no pending task to remove", username), nil
	}
	if err := s.update(ctx, TableTasks, rowstore.DataRow(i), itemColStatus+1, StatusRemoved); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s task %q removed", username, cell(rows[i], itemColName)), nil
}

// RecentTasks reports up to the 3 most recently completed tasks, most recent
// first, ordered by completion time.
func (s *Service) RecentTasks(ctx context.Context, username, userID string) (string, error) {
	rows, err := s.list(ctx, TableTasks)
	if err != nil {
		return "", err
	}
	type done struct {
		name string
		at   time.Time
	}
	var completed []done
	for _, row := range rows {
		if cell(row, itemColUserID) != userID || cell(row, itemColStatus) != StatusCompleted {
			continue
		}
		at, err := time.Parse(timeLayout, cell(row, itemColCompleted))
		if err != nil {
			continue
		}
		completed = append(completed, done{name: cell(row, itemColName), at: at})
	}
	if len(completed) == 0 {
		return fmt.Sprintf("@%s no completed tasks yet", username), nil
	}
	sort.SliceStable(completed, func(i, j int) bool { return completed[i].at.After(completed[j].at) })
	if len(completed) > 3 {
		completed = completed[:3]
	}
	names := make([]string, len(completed))
	for i, d := range completed {
		names[i] = fmt.Sprintf("%q", d.name)
	}
	return fmt.Sprintf("@%s recently completed: %s", username, strings.Join(names, ", ")), nil
}
