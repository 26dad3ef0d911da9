package replay

import (
	"context"
	"sync"
)

// MemoryStore keeps frames in memory. It is the default history of a run.
type MemoryStore struct {
	mu     sync.RWMutex
	frames []Frame
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, f Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Frame
	for _, f := range s.frames {
		if q.full(len(res)) {
			break
		}
		if q.Match(f) {
			res = append(res, f)
		}
	}
	return res, nil
}

// Len returns the number of stored frames.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

func (s *MemoryStore) Close() error { return nil }
