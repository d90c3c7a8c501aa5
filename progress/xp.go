package progress

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sunniebot/studybot/rowstore"
)

// XP table columns.
const (
	xpColUsername = 0
	xpColUserID   = 1
	xpColTotal    = 2
	xpColUpdated  = 3
)

// rankTable maps XP thresholds to titles, highest first. Evaluation is
// top-down, first threshold met wins; the zero entry makes coverage
// exhaustive.
var rankTable = []struct {
	minXP int
	title string
}{
	{20000, "Legend"},
	{10000, "Grandmaster"},
	{5000, "Master"},
	{2500, "Expert"},
	{1000, "Scholar"},
	{500, "Achiever"},
	{250, "Apprentice"},
	{100, "Learner"},
	{30, "Novice"},
	{0, "Beginner"},
}

// RankTitle returns the title of the highest rank threshold at or below xp.
func RankTitle(xp int) string {
	for _, r := range rankTable {
		if xp >= r.minXP {
			return r.title
		}
	}
	return rankTable[len(rankTable)-1].title
}

// Award adds delta XP to the user, taking the user's lock around the
// read-modify-write. Background workers (pomodoro) call this directly.
func (s *Service) Award(ctx context.Context, username, userID string, delta int) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.awardLocked(ctx, username, userID, delta)
}

// awardLocked performs the XP read-modify-write; the caller must hold the
// user's lock.
func (s *Service) awardLocked(ctx context.Context, username, userID string, delta int) error {
	rows, err := s.list(ctx, TableXP)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if cell(row, xpColUserID) != userID {
			continue
		}
		total, _ := strconv.Atoi(cell(row, xpColTotal))
		total += delta
		sheetRow := rowstore.DataRow(i)
		if err := s.update(ctx, TableXP, sheetRow, xpColTotal+1, strconv.Itoa(total)); err != nil {
			return err
		}
		return s.update(ctx, TableXP, sheetRow, xpColUpdated+1, s.now().Format(timeLayout))
	}
	return s.append(ctx, TableXP, []string{username, userID, strconv.Itoa(delta), s.now().Format(timeLayout)})
}

// TotalXP returns the user's current XP total (0 if no row exists).
func (s *Service) TotalXP(ctx context.Context, userID string) (int, error) {
	rows, err := s.list(ctx, TableXP)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		if cell(row, xpColUserID) == userID {
			total, _ := strconv.Atoi(cell(row, xpColTotal))
			return total, nil
		}
	}
	return 0, nil
}

// LookupUserID resolves a username to a user id from historical XP and
// attendance rows, case-insensitively. ok is false when the user has never
// been seen.
func (s *Service) LookupUserID(ctx context.Context, username string) (string, bool, error) {
	lower := strings.ToLower(username)
	rows, err := s.list(ctx, TableXP)
	if err != nil {
		return "", false, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if strings.ToLower(cell(rows[i], xpColUsername)) == lower {
			return cell(rows[i], xpColUserID), true, nil
		}
	}
	rows, err = s.list(ctx, TableAttendance)
	if err != nil {
		return "", false, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if strings.ToLower(cell(rows[i], attColUsername)) == lower {
			return cell(rows[i], attColUserID), true, nil
		}
	}
	return "", false, nil
}

// RankReply reports the user's XP total and rank title.
func (s *Service) RankReply(ctx context.Context, username, userID string) (string, error) {
	total, err := s.TotalXP(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("@%s you have %d XP — rank: %s", username, total, RankTitle(total)), nil
}

// LeaderboardReply lists the top 5 users by XP, descending.
func (s *Service) LeaderboardReply(ctx context.Context) (string, error) {
	rows, err := s.list(ctx, TableXP)
	if err != nil {
		return "", err
	}
	type entry struct {
		name  string
		total int
	}
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		total, _ := strconv.Atoi(cell(row, xpColTotal))
		entries = append(entries, entry{name: cell(row, xpColUsername), total: total})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].total > entries[j].total })
	if len(entries) > 5 {
		entries = entries[:5]
	}
	if len(entries) == 0 {
		return "No XP earned yet — be the first with !start", nil
	}
	var b strings.Builder
	b.WriteString("🏆 Leaderboard:")
	for i, e := range entries {
		fmt.Fprintf(&b, " %d. %s (%d XP)", i+1, e.name, e.total)
	}
	return b.String(), nil
}
