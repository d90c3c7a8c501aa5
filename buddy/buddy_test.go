package buddy

import (
	"context"
	"strings"
	"testing"

	"github.com/sunniebot/studybot/progress"
	"github.com/sunniebot/studybot/rowstore"
)

func newTestService(t *testing.T) (*Service, *progress.Service, *rowstore.MemoryStore) {
	t.Helper()
	store := rowstore.NewMemoryStore()
	prog := progress.New(store, progress.NewUserLocks())
	return New(store, prog), prog, store
}

func TestRequestAcceptRemoveLifecycle(t *testing.T) {
	s, _, store := newTestService(t)
	ctx := context.Background()

	reply, err := s.Handle(ctx, "bob", "u-bob", "@alice")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !strings.Contains(reply, "request sent to alice") {
		t.Errorf("unexpected request reply: %q", reply)
	}

	reply, err = s.Handle(ctx, "alice", "u-alice", "accept")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !strings.Contains(reply, "study buddies with bob") {
		t.Errorf("unexpected accept reply: %q", reply)
	}

	// Exactly one Active pairing, visible from both sides.
	pairings, _ := store.ListRows(ctx, TablePairings)
	if len(pairings) != 1 || pairings[0][pairColStatus] != StatusActive {
		t.Fatalf("expected 1 Active pairing, got %v", pairings)
	}
	if pairings[0][pairColTargetID] != "u-alice" {
		t.Errorf("acceptor's real id should replace the unresolved one, got %q", pairings[0][pairColTargetID])
	}
	for _, id := range []string{"u-bob", "u-alice"} {
		if s.activePairing(pairings, id) < 0 {
			t.Errorf("pairing not visible for %s", id)
		}
	}

	// Either member can remove; it ends for both.
	reply, err = s.Handle(ctx, "alice", "u-alice", "remove")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(reply, "ended for both") {
		t.Errorf("unexpected remove reply: %q", reply)
	}
	pairings, _ = store.ListRows(ctx, TablePairings)
	for _, id := range []string{"u-bob", "u-alice"} {
		if s.activePairing(pairings, id) >= 0 {
			t.Errorf("pairing should be gone for %s", id)
		}
	}
}

func TestRequestRejectsSelfAndDuplicates(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	reply, _ := s.Request(ctx, "bob", "u-bob", "Bob")
	if !strings.Contains(reply, "yourself") {
		t.Errorf("self-request should be rejected: %q", reply)
	}

	if _, err := s.Request(ctx, "bob", "u-bob", "alice"); err != nil {
		t.Fatal(err)
	}
	reply, _ = s.Request(ctx, "bob", "u-bob", "alice")
	if !strings.Contains(reply, "already asked") {
		t.Errorf("duplicate request should be rejected: %q", reply)
	}
}

func TestRequestRejectedWhenAlreadyPaired(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Request(ctx, "bob", "u-bob", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Accept(ctx, "alice", "u-alice"); err != nil {
		t.Fatal(err)
	}
	reply, _ := s.Request(ctx, "bob", "u-bob", "carol")
	if !strings.Contains(reply, "already have a buddy") {
		t.Errorf("paired user's new request should be rejected: %q", reply)
	}
}

func TestAcceptExpiresWhenRequesterPairedElsewhere(t *testing.T) {
	s, _, store := newTestService(t)
	ctx := context.Background()

	// Bob asks both alice and carol, then carol accepts first.
	if _, err := s.Request(ctx, "bob", "u-bob", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Request(ctx, "bob", "u-bob", "carol"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Accept(ctx, "carol", "u-carol"); err != nil {
		t.Fatal(err)
	}

	reply, err := s.Accept(ctx, "alice", "u-alice")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !strings.Contains(reply, "expired") {
		t.Errorf("stale request should expire: %q", reply)
	}

	requests, _ := store.ListRows(ctx, TableRequests)
	expired := false
	for _, row := range requests {
		if row[reqColTargetName] == "alice" && row[reqColStatus] == StatusExpired {
			expired = true
		}
	}
	if !expired {
		t.Errorf("alice's request row should be Expired: %v", requests)
	}
}

func TestDecline(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Request(ctx, "bob", "u-bob", "alice"); err != nil {
		t.Fatal(err)
	}
	reply, err := s.Decline(ctx, "alice", "u-alice")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if !strings.Contains(reply, "declined") {
		t.Errorf("unexpected decline reply: %q", reply)
	}
	// Nothing left to accept.
	reply, _ = s.Accept(ctx, "alice", "u-alice")
	if !strings.Contains(reply, "no pending") {
		t.Errorf("declined request should not be acceptable: %q", reply)
	}
}

func TestStatsComparison(t *testing.T) {
	s, prog, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Request(ctx, "bob", "u-bob", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Accept(ctx, "alice", "u-alice"); err != nil {
		t.Fatal(err)
	}
	if err := prog.Award(ctx, "bob", "u-bob", 120); err != nil {
		t.Fatal(err)
	}
	if err := prog.Award(ctx, "alice", "u-alice", 80); err != nil {
		t.Fatal(err)
	}

	reply, err := s.Stats(ctx, "bob", "u-bob")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(reply, "XP: 120/80") {
		t.Errorf("unexpected stats reply: %q", reply)
	}
}

func TestProgressNarrativeTiers(t *testing.T) {
	s, _, store := newTestService(t)
	ctx := context.Background()

	if _, err := s.Request(ctx, "bob", "u-bob", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Accept(ctx, "alice", "u-alice"); err != nil {
		t.Fatal(err)
	}

	// bob: 90-minute session (marathon tier); alice: 40 (solid tier).
	_ = store.AppendRow(ctx, progress.TableSessions, []string{"bob", "u-bob", "", "", "90", "Completed"})
	_ = store.AppendRow(ctx, progress.TableSessions, []string{"alice", "u-alice", "", "", "40", "Completed"})

	reply, err := s.Progress(ctx, "bob", "u-bob")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(reply, "crushed a marathon 90-minute session") {
		t.Errorf("expected marathon phrasing: %q", reply)
	}

	reply, err = s.Progress(ctx, "alice", "u-alice")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(reply, "crushed a marathon 90-minute session") || !strings.Contains(reply, "your 40 minute(s)") {
		t.Errorf("expected losing-side phrasing: %q", reply)
	}
}

func TestSessionPhraseBoundary(t *testing.T) {
	if got := sessionPhrase(59); !strings.Contains(got, "solid") {
		t.Errorf("59 min should be solid tier: %q", got)
	}
	if got := sessionPhrase(60); !strings.Contains(got, "marathon") {
		t.Errorf("60 min should be marathon tier: %q", got)
	}
}
