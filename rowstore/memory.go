package rowstore

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and the
// ROWSTORE_BACKEND=memory development mode; state is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][][]string)}
}

func (s *MemoryStore) ListRows(_ context.Context, table string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.tables[table]
	out := make([][]string, len(src))
	for i, row := range src {
		cp := make([]string, len(row))
		copy(cp, row)
		out[i] = cp
	}
	return out, nil
}

func (s *MemoryStore) AppendRow(_ context.Context, table string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(values))
	copy(cp, values)
	s.tables[table] = append(s.tables[table], cp)
	return nil
}

func (s *MemoryStore) UpdateCell(_ context.Context, table string, row, col int, value string) error {
	if row < 2 || col < 1 {
		return ErrRowOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	i := row - 2
	if i < 0 || i >= len(rows) {
		return ErrRowOutOfRange
	}
	for len(rows[i]) < col {
		rows[i] = append(rows[i], "")
	}
	rows[i][col-1] = value
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
