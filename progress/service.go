// Package progress implements the per-user study state machines: attendance
// check-ins, study sessions, tasks, goals, and the XP/rank/streak accounting
// they feed. All state lives in the row store; uniqueness rules are enforced
// by scanning for the most recent matching row, so every mutation for a user
// is serialized through the shared per-user lock registry.
package progress

import (
	"context"
	"time"

	"github.com/sunniebot/studybot/rowstore"
	"github.com/sunniebot/studybot/telemetry"
)

// Sheet tab names.
const (
	TableAttendance = "Attendance"
	TableSessions   = "StudySessions"
	TableTasks      = "Tasks"
	TableGoals      = "Goals"
	TableXP         = "XP"
)

// Status values shared by the lifecycle tables.
const (
	StatusActive    = "Active"
	StatusCompleted = "Completed"
	StatusPending   = "Pending"
	StatusRemoved   = "Removed"
)

// XP awards for fixed-value completions.
const (
	TaskXP = 15
	GoalXP = 25
)

const timeLayout = time.RFC3339

// Service exposes the progress command handlers. Handlers return the reply
// text for the chat; a non-nil error means the row store was unreachable and
// the caller should substitute its generic unavailable reply.
type Service struct {
	store rowstore.Store
	locks *UserLocks
	now   func() time.Time
}

// New builds a Service over the given store, sharing the lock registry with
// the other feature services that mutate the same user rows.
func New(store rowstore.Store, locks *UserLocks) *Service {
	return &Service{store: store, locks: locks, now: time.Now}
}

// Locks returns the shared per-user lock registry.
func (s *Service) Locks() *UserLocks { return s.locks }

func (s *Service) list(ctx context.Context, table string) ([][]string, error) {
	rows, err := s.store.ListRows(ctx, table)
	if err != nil {
		telemetry.CountRowStoreError()
	}
	return rows, err
}

func (s *Service) append(ctx context.Context, table string, values []string) error {
	err := s.store.AppendRow(ctx, table, values)
	if err != nil {
		telemetry.CountRowStoreError()
	}
	return err
}

func (s *Service) update(ctx context.Context, table string, row, col int, value string) error {
	err := s.store.UpdateCell(ctx, table, row, col, value)
	if err != nil {
		telemetry.CountRowStoreError()
	}
	return err
}

// cell returns the column value or "" when the row is ragged.
func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
