package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used in tests and local development.
// It deliberately mirrors RedisStore semantics, including the "absent"
// second return value.
type MemoryStore struct {
	mu          sync.RWMutex
	lastActive  map[string]time.Time
	transcripts map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lastActive:  make(map[string]time.Time),
		transcripts: make(map[string][]byte),
	}
}

// SetLastActive records the session's last activity time
func (s *MemoryStore) SetLastActive(_ context.Context, sessionID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive[sessionID] = t
	return nil
}

// LastActive returns the session's last activity time
func (s *MemoryStore) LastActive(_ context.Context, sessionID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.lastActive[sessionID]
	return t, ok, nil
}

// SetTranscript replaces the session's serialized transcript
func (s *MemoryStore) SetTranscript(_ context.Context, sessionID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.transcripts[sessionID] = buf
	return nil
}

// Transcript returns the session's serialized transcript
func (s *MemoryStore) Transcript(_ context.Context, sessionID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.transcripts[sessionID]
	return data, ok, nil
}

// DeleteSession removes all keys for the session
func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastActive, sessionID)
	delete(s.transcripts, sessionID)
	return nil
}
