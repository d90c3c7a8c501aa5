// Package buddy implements the study-buddy pairing state machine: request,
// accept/decline, removal, and comparative stats between paired users. Both
// requests and pairings are persisted to the row store; a pairing is
// symmetric, so lookups check both identity slots.
package buddy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sunniebot/studybot/progress"
	"github.com/sunniebot/studybot/rowstore"
	"github.com/sunniebot/studybot/telemetry"
)

// Sheet tab names.
const (
	TableRequests = "BuddyRequests"
	TablePairings = "BuddyPairings"
)

// Request statuses.
const (
	StatusPending  = "Pending"
	StatusAccepted = "Accepted"
	StatusDeclined = "Declined"
	StatusExpired  = "Expired"
)

// Pairing statuses.
const (
	StatusActive  = "Active"
	StatusRemoved = "Removed"
)

// unknownID marks a request target whose id could not be resolved from
// historical rows at request time; it is replaced when the target accepts.
const unknownID = "unknown"

// BuddyRequests columns.
const (
	reqColRequesterName = 0
	reqColRequesterID   = 1
	reqColTargetName    = 2
	reqColTargetID      = 3
	reqColDate          = 4
	reqColStatus        = 5
)

// BuddyPairings columns.
const (
	pairColRequesterName = 0
	pairColRequesterID   = 1
	pairColTargetName    = 2
	pairColTargetID      = 3
	pairColStatus        = 4
	pairColRequestDate   = 5
	pairColPairedDate    = 6
	pairColType          = 7
)

const timeLayout = time.RFC3339

// Service handles the !buddy subcommands.
type Service struct {
	store    rowstore.Store
	progress *progress.Service
	locks    *progress.UserLocks
	now      func() time.Time
}

func New(store rowstore.Store, prog *progress.Service) *Service {
	return &Service{store: store, progress: prog, locks: prog.Locks(), now: time.Now}
}

// Handle dispatches a !buddy subcommand. arg is the text after "!buddy".
func (s *Service) Handle(ctx context.Context, username, userID, arg string) (string, error) {
	sub := strings.TrimSpace(arg)
	switch {
	case strings.HasPrefix(sub, "@"):
		return s.Request(ctx, username, userID, strings.TrimPrefix(sub, "@"))
	case strings.EqualFold(sub, "accept"):
		return s.Accept(ctx, username, userID)
	case strings.EqualFold(sub, "decline"):
		return s.Decline(ctx, username, userID)
	case strings.EqualFold(sub, "remove"):
		return s.Remove(ctx, username, userID)
	case strings.EqualFold(sub, "stats"):
		return s.Stats(ctx, username, userID)
	case strings.EqualFold(sub, "progress"):
		return s.Progress(ctx, username, userID)
	default:
		return fmt.Sprintf("@%s usage: !buddy @name | accept | decline | remove | stats | progress", username), nil
	}
}

// Request sends a pairing request to the named user.
func (s *Service) Request(ctx context.Context, username, userID, target string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Sprintf("@%s who do you want to pair with? Try !buddy @name", username), nil
	}
	if strings.EqualFold(target, username) {
		return fmt.Sprintf("@%s you can't buddy up with yourself", username), nil
	}
	pairings, err := s.listRows(ctx, TablePairings)
	if err != nil {
		return "", err
	}
	if s.activePairing(pairings, userID) >= 0 {
		return fmt.Sprintf("@%s you already have a buddy — !buddy remove first", username), nil
	}
	requests, err := s.listRows(ctx, TableRequests)
	if err != nil {
		return "", err
	}
	for i := len(requests) - 1; i >= 0; i-- {
		row := requests[i]
		if cell(row, reqColRequesterID) == userID &&
			strings.EqualFold(cell(row, reqColTargetName), target) &&
			cell(row, reqColStatus) == StatusPending {
			return fmt.Sprintf("@%s you already asked %s — waiting on their !buddy accept", username, target), nil
		}
	}
	targetID, found, err := s.progress.LookupUserID(ctx, target)
	if err != nil {
		return "", err
	}
	if !found {
		targetID = unknownID
	}
	row := []string{username, userID, target, targetID, s.now().Format(timeLayout), StatusPending}
	if err := s.appendRow(ctx, TableRequests, row); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s buddy request sent to %s! They can reply with !buddy accept", username, target), nil
}

// Accept pairs the acceptor with the most recent pending requester.
func (s *Service) Accept(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	requests, err := s.listRows(ctx, TableRequests)
	if err != nil {
		return "", err
	}
	reqIdx := -1
	for i := len(requests) - 1; i >= 0; i-- {
		row := requests[i]
		if strings.EqualFold(cell(row, reqColTargetName), username) && cell(row, reqColStatus) == StatusPending {
			reqIdx = i
			break
		}
	}
	if reqIdx < 0 {
		return fmt.Sprintf("@%s no pending buddy request for you", username), nil
	}
	pairings, err := s.listRows(ctx, TablePairings)
	if err != nil {
		return "", err
	}
	if s.activePairing(pairings, userID) >= 0 {
		return fmt.Sprintf("@%s you already have a buddy — !buddy remove first", username), nil
	}
	req := requests[reqIdx]
	requesterID := cell(req, reqColRequesterID)
	requesterName := cell(req, reqColRequesterName)
	if s.activePairing(pairings, requesterID) >= 0 {
		// Requester paired with someone else while this request sat pending.
		if err := s.updateCell(ctx, TableRequests, rowstore.DataRow(reqIdx), reqColStatus+1, StatusExpired); err != nil {
			return "", err
		}
		return fmt.Sprintf("@%s that request expired — %s already has a buddy", username, requesterName), nil
	}
	pairing := []string{
		requesterName, requesterID, username, userID,
		StatusActive, cell(req, reqColDate), s.now().Format(timeLayout), "study",
	}
	if err := s.appendRow(ctx, TablePairings, pairing); err != nil {
		return "", err
	}
	if err := s.updateCell(ctx, TableRequests, rowstore.DataRow(reqIdx), reqColStatus+1, StatusAccepted); err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s you are now study buddies with %s! 🤝 Compare with !buddy stats", username, requesterName), nil
}

// Decline marks the acceptor's pending request Declined.
func (s *Service) Decline(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	requests, err := s.listRows(ctx, TableRequests)
	if err != nil {
		return "", err
	}
	for i := len(requests) - 1; i >= 0; i-- {
		row := requests[i]
		if strings.EqualFold(cell(row, reqColTargetName), username) && cell(row, reqColStatus) == StatusPending {
			if err := s.updateCell(ctx, TableRequests, rowstore.DataRow(i), reqColStatus+1, StatusDeclined); err != nil {
				return "", err
			}
			return fmt.Sprintf("@%s request from %s declined", username, cell(row, reqColRequesterName)), nil
		}
	}
	return fmt.Sprintf("@%s no pending buddy request for you", username), nil
}

// Remove ends the user's active pairing for both members.
func (s *Service) Remove(ctx context.Context, username, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	pairings, err := s.listRows(ctx, TablePairings)
	if err != nil {
		return "", err
	}
	i := s.activePairing(pairings, userID)
	if i < 0 {
		return fmt.Sprintf("@%s you don't have a buddy right now", username), nil
	}
	if err := s.updateCell(ctx, TablePairings, rowstore.DataRow(i), pairColStatus+1, StatusRemoved); err != nil {
		return "", err
	}
	other, _ := s.otherSide(pairings[i], userID)
	return fmt.Sprintf("@%s buddy pairing with %s ended for both of you", username, other), nil
}

// Stats compares XP, streak and total study minutes between the paired users.
func (s *Service) Stats(ctx context.Context, username, userID string) (string, error) {
	pairings, err := s.listRows(ctx, TablePairings)
	if err != nil {
		return "", err
	}
	i := s.activePairing(pairings, userID)
	if i < 0 {
		return fmt.Sprintf("@%s you don't have a buddy — send a request with !buddy @name", username), nil
	}
	otherName, otherID := s.otherSide(pairings[i], userID)
	myXP, err := s.progress.TotalXP(ctx, userID)
	if err != nil {
		return "", err
	}
	theirXP, err := s.progress.TotalXP(ctx, otherID)
	if err != nil {
		return "", err
	}
	myStreak, err := s.progress.Streak(ctx, userID)
	if err != nil {
		return "", err
	}
	theirStreak, err := s.progress.Streak(ctx, otherID)
	if err != nil {
		return "", err
	}
	myMinutes, err := s.progress.TotalSessionMinutes(ctx, userID)
	if err != nil {
		return "", err
	}
	theirMinutes, err := s.progress.TotalSessionMinutes(ctx, otherID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s vs %s — XP: %d/%d, streak: %d/%d day(s), study time: %d/%d min",
		username, otherName, myXP, theirXP, myStreak, theirStreak, myMinutes, theirMinutes), nil
}

// Progress builds the competitive narrative comparing the pair's most recent
// completed sessions. Phrasing switches at the 60-minute boundary.
func (s *Service) Progress(ctx context.Context, username, userID string) (string, error) {
	pairings, err := s.listRows(ctx, TablePairings)
	if err != nil {
		return "", err
	}
	i := s.activePairing(pairings, userID)
	if i < 0 {
		return fmt.Sprintf("@%s you don't have a buddy — send a request with !buddy @name", username), nil
	}
	otherName, otherID := s.otherSide(pairings[i], userID)
	mine, myOK, err := s.progress.LastCompletedSessionMinutes(ctx, userID)
	if err != nil {
		return "", err
	}
	theirs, theirOK, err := s.progress.LastCompletedSessionMinutes(ctx, otherID)
	if err != nil {
		return "", err
	}
	switch {
	case !myOK && !theirOK:
		return fmt.Sprintf("@%s neither of you has finished a session yet — race %s with !start", username, otherName), nil
	case !myOK:
		return fmt.Sprintf("@%s %s %s while you haven't finished one yet — time to catch up!", username, otherName, sessionPhrase(theirs)), nil
	case !theirOK:
		return fmt.Sprintf("@%s you %s and %s hasn't finished one yet — you're in the lead! 🏁", username, sessionPhrase(mine), otherName), nil
	case mine >= theirs:
		return fmt.Sprintf("@%s you %s, edging out %s's %d minute(s) — keep the pressure on!", username, sessionPhrase(mine), otherName, theirs), nil
	default:
		return fmt.Sprintf("@%s %s %s, beating your %d minute(s) — your move!", username, otherName, sessionPhrase(theirs), mine), nil
	}
}

// sessionPhrase picks the narrative verb for a session length; the tier flips
// at 60 minutes.
func sessionPhrase(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("crushed a marathon %d-minute session", minutes)
	}
	return fmt.Sprintf("put in a solid %d-minute session", minutes)
}

// activePairing returns the index of the user's Active pairing, checking both
// identity slots, or -1.
func (s *Service) activePairing(pairings [][]string, userID string) int {
	for i := len(pairings) - 1; i >= 0; i-- {
		row := pairings[i]
		if cell(row, pairColStatus) != StatusActive {
			continue
		}
		if cell(row, pairColRequesterID) == userID || cell(row, pairColTargetID) == userID {
			return i
		}
	}
	return -1
}

// otherSide returns the name and id of the pairing member that is not userID.
func (s *Service) otherSide(row []string, userID string) (name, id string) {
	if cell(row, pairColRequesterID) == userID {
		return cell(row, pairColTargetName), cell(row, pairColTargetID)
	}
	return cell(row, pairColRequesterName), cell(row, pairColRequesterID)
}

func (s *Service) listRows(ctx context.Context, table string) ([][]string, error) {
	rows, err := s.store.ListRows(ctx, table)
	if err != nil {
		telemetry.CountRowStoreError()
	}
	return rows, err
}

func (s *Service) appendRow(ctx context.Context, table string, values []string) error {
	err := s.store.AppendRow(ctx, table, values)
	if err != nil {
		telemetry.CountRowStoreError()
	}
	return err
}

func (s *Service) updateCell(ctx context.Context, table string, row, col int, value string) error {
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
