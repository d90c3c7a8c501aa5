package announce

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sunniebot/studybot/testutil"
)

func TestFireDueRequiresChatVolume(t *testing.T) {
	poster := &testutil.RecorderPoster{}
	a := New(poster, []Rule{{Message: "hi", Interval: time.Minute, MinChatLines: 5}})
	ctx := context.Background()

	a.fireDue(ctx)
	if posts := poster.All(); len(posts) != 0 {
		t.Fatalf("quiet chat must not fire, got %v", posts)
	}

	for i := 0; i < 5; i++ {
		a.BumpChat()
	}
	a.fireDue(ctx)
	if posts := poster.All(); len(posts) != 1 || posts[0] != "hi" {
		t.Fatalf("expected one firing, got %v", posts)
	}
	if a.ChatLines() != 0 {
		t.Errorf("firing must zero the shared counter, got %d", a.ChatLines())
	}
}

func TestFireDueRespectsInterval(t *testing.T) {
	poster := &testutil.RecorderPoster{}
	a := New(poster, []Rule{{Message: "hi", Interval: 30 * time.Minute, MinChatLines: 1}})
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }
	ctx := context.Background()

	a.BumpChat()
	a.fireDue(ctx)
	if len(poster.All()) != 1 {
		t.Fatalf("never-sent rule with volume should fire")
	}

	// Volume back but interval not elapsed.
	a.BumpChat()
	a.now = func() time.Time { return base.Add(10 * time.Minute) }
	a.fireDue(ctx)
	if len(poster.All()) != 1 {
		t.Fatalf("interval not elapsed, must not fire again")
	}

	a.now = func() time.Time { return base.Add(31 * time.Minute) }
	a.fireDue(ctx)
	if len(poster.All()) != 2 {
		t.Fatalf("interval elapsed with volume, should fire")
	}
}

func TestFiringOneRuleStarvesOthers(t *testing.T) {
	poster := &testutil.RecorderPoster{}
	a := New(poster, []Rule{
		{Message: "first", Interval: time.Minute, MinChatLines: 2},
		{Message: "second", Interval: time.Minute, MinChatLines: 3},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a.BumpChat()
	}
	a.fireDue(ctx)
	// First rule fires and zeroes the counter, so the second sees 0 < 3.
	posts := poster.All()
	if len(posts) != 1 || posts[0] != "first" {
		t.Fatalf("expected only the first rule to fire, got %v", posts)
	}
}

func TestDailyResetZeroesCounter(t *testing.T) {
	poster := &testutil.RecorderPoster{}
	a := New(poster, nil)
	for i := 0; i < 7; i++ {
		a.BumpChat()
	}
	ctx, cancel := context.WithCancel(context.Background())
	go a.RunDailyReset(ctx, 10*time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for a.ChatLines() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("counter never reset")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}

func TestFireBypassesGates(t *testing.T) {
	poster := &testutil.RecorderPoster{}
	a := New(poster, nil)
	if err := a.Fire(context.Background(), "manual ping"); err != nil {
		t.Fatal(err)
	}
	if posts := poster.All(); len(posts) != 1 || !strings.Contains(posts[0], "manual ping") {
		t.Fatalf("unexpected posts: %v", posts)
	}
}
