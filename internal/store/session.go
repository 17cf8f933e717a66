package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Scratch is the session-scoped store: per-week manual rows and overrides,
// the timesheet page's projects/tasks caches, and the last-flushed log echo.
// It lives only as long as the process.
type Scratch struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func NewScratch() *Scratch {
	return &Scratch{data: make(map[string]json.RawMessage)}
}

func (s *Scratch) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Scratch) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

func (s *Scratch) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *Scratch) DeleteByPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
}
