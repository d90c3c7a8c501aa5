package pomo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sunniebot/studybot/progress"
	"github.com/sunniebot/studybot/rowstore"
	"github.com/sunniebot/studybot/testutil"
)

func newTestManager(t *testing.T) (*Manager, *progress.Service, *testutil.RecorderPoster) {
	t.Helper()
	prog := progress.New(rowstore.NewMemoryStore(), progress.NewUserLocks())
	poster := &testutil.RecorderPoster{}
	m := New(prog, poster)
	m.sleepFor = func(int) time.Duration { return time.Millisecond }
	return m, prog, poster
}

func TestStartValidation(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	cases := []struct {
		args string
		want string
	}{
		{"4", "session length must be"},
		{"121", "session length must be"},
		{"25 0", "session count must be"},
		{"25 13", "session count must be"},
		{"25 4 0", "break length must be"},
		{"25 4 61", "break length must be"},
		{"abc", "isn't a number"},
		{"25 4 5 9", "usage"},
	}
	for _, c := range cases {
		if got := m.Start(ctx, "alice", "u1", c.args); !strings.Contains(got, c.want) {
			t.Errorf("Start(%q) = %q, want substring %q", c.args, got, c.want)
		}
	}
	if m.Active() != 0 {
		t.Errorf("invalid starts must not register timers, have %d", m.Active())
	}
}

func TestStartDefaults(t *testing.T) {
	m, _, _ := newTestManager(t)
	// Defaults are visible in the confirmation before the worker runs.
	reply := m.Start(context.Background(), "alice", "u1", "25")
	if !strings.Contains(reply, "4 × 25 min with 5 min breaks") {
		t.Errorf("expected defaults 4 sessions / 5 min breaks, got %q", reply)
	}
	m.Stop("alice", "u1")
}

func TestRunCompletesAndAwardsXP(t *testing.T) {
	m, prog, poster := newTestManager(t)
	ctx := context.Background()

	reply := m.Start(ctx, "alice", "u1", "25 2 5")
	if !strings.Contains(reply, "pomodoro started") {
		t.Fatalf("unexpected start reply: %q", reply)
	}

	// 2 sessions: start, complete, break, break-over, start, complete, final = 7 posts.
	deadline := time.Now().Add(2 * time.Second)
	for len(poster.All()) < 7 {
		if time.Now().After(deadline) {
			t.Fatalf("worker never finished, posts: %v", poster.All())
		}
		time.Sleep(5 * time.Millisecond)
	}
	posts := poster.All()
	if !strings.Contains(posts[0], "session 1/2 started") {
		t.Errorf("first post = %q", posts[0])
	}
	if !strings.Contains(posts[len(posts)-1], "pomodoro complete") {
		t.Errorf("last post = %q", posts[len(posts)-1])
	}
	// No trailing break after the final session.
	if strings.Contains(posts[len(posts)-2], "break time") {
		t.Errorf("trailing break announced: %v", posts)
	}

	// XP: 2 × (25×2) + completion bonus 10 (fewer than 4 sessions).
	deadline = time.Now().Add(2 * time.Second)
	for {
		total, err := prog.TotalXP(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if total == 110 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("TotalXP = %d, want 110", total)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if m.Active() != 0 {
		t.Errorf("timer should deregister after completion")
	}
}

func TestCompletionBonusTiers(t *testing.T) {
	m, prog, _ := newTestManager(t)
	ctx := context.Background()

	m.Start(ctx, "alice", "u1", "5 4 1")
	deadline := time.Now().Add(2 * time.Second)
	for m.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// 4 × (5×2) + bonus 20 at four or more sessions.
	total, err := prog.TotalXP(ctx, "u1")
	if err != nil || total != 60 {
		t.Errorf("TotalXP = %d, %v; want 60", total, err)
	}
}

func TestStopAbortsSilently(t *testing.T) {
	m, _, poster := newTestManager(t)
	m.sleepFor = func(int) time.Duration { return 100 * time.Millisecond }
	ctx := context.Background()

	m.Start(ctx, "alice", "u1", "25 4 5")
	// Wait for the first announcement, then stop mid-sleep.
	deadline := time.Now().Add(2 * time.Second)
	for len(poster.All()) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("worker never announced")
		}
		time.Sleep(5 * time.Millisecond)
	}
	reply := m.Stop("alice", "u1")
	if !strings.Contains(reply, "stopped") {
		t.Errorf("unexpected stop reply: %q", reply)
	}

	time.Sleep(400 * time.Millisecond)
	if posts := poster.All(); len(posts) != 1 {
		t.Errorf("stopped worker must not announce further phases, got %v", posts)
	}
	if m.Active() != 0 {
		t.Errorf("registry entry should be gone")
	}
}

func TestStoppedRunNotRevivedByRestart(t *testing.T) {
	m, _, poster := newTestManager(t)
	m.sleepFor = func(int) time.Duration { return 100 * time.Millisecond }
	ctx := context.Background()

	m.Start(ctx, "alice", "u1", "25 2 5")
	deadline := time.Now().Add(2 * time.Second)
	for len(poster.All()) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("worker never announced")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Stop mid-sleep, then register a fresh run under the same user before the
	// old worker wakes. The old worker must not adopt the new registry entry.
	m.Stop("alice", "u1")
	reply := m.Start(ctx, "alice", "u1", "30 1 5")
	if !strings.Contains(reply, "pomodoro started") {
		t.Fatalf("restart rejected: %q", reply)
	}

	deadline = time.Now().Add(2 * time.Second)
	for m.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("new run never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond) // let a leaked old worker surface
	for _, p := range poster.All() {
		if strings.Contains(p, "/2 complete") || strings.Contains(p, "break time") {
			t.Errorf("stopped run announced after restart: %q", p)
		}
	}
	if posts := poster.All(); !strings.Contains(posts[len(posts)-1], "pomodoro complete: 1 session(s)") {
		t.Errorf("new run should own the completion announcement, got %v", posts)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.sleepFor = func(int) time.Duration { return time.Second }
	ctx := context.Background()

	m.Start(ctx, "alice", "u1", "25 4 5")
	reply := m.Start(ctx, "alice", "u1", "25 4 5")
	if !strings.Contains(reply, "already have a pomodoro") {
		t.Errorf("second start should be rejected: %q", reply)
	}
	m.Stop("alice", "u1")
}

func TestStatusAndStopWithoutTimer(t *testing.T) {
	m, _, _ := newTestManager(t)
	if got := m.Status("alice", "u1"); !strings.Contains(got, "no active pomodoro") {
		t.Errorf("Status = %q", got)
	}
	if got := m.Stop("alice", "u1"); !strings.Contains(got, "no active pomodoro") {
		t.Errorf("Stop = %q", got)
	}
}
