package progress

import "sync"

// UserLocks serializes row-store mutations per user id. The store has no
// transactions, so two concurrent handlers doing scan-then-update for the same
// user would race; every handler takes the user's lock around its full
// read-modify-write cycle. Locks are never removed; the map grows with the
// set of users seen during the process lifetime.
type UserLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{m: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for a user id and returns the unlock func.
func (l *UserLocks) Lock(userID string) func() {
	l.mu.Lock()
	mu, ok := l.m[userID]
	if !ok {
		mu = &sync.Mutex{}
		l.m[userID] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}
