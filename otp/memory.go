package otp

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore keeps issued codes in process memory. Good enough for a
// single instance deployment and for tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ttl:     DefaultTTL,
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

// WithTTL overrides the code lifetime.
func (s *MemoryStore) WithTTL(ttl time.Duration) *MemoryStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// WithClock overrides the time source, used in tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) Issue(_ context.Context, mobile string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[mobile] = memoryEntry{
		code:      code,
		expiresAt: s.now().Add(s.ttl),
	}

	return code, nil
}

func (s *MemoryStore) Verify(_ context.Context, mobile, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[mobile]
	if !ok {
		return false, nil
	}

	// consume regardless of outcome
	delete(s.entries, mobile)

	if s.now().After(entry.expiresAt) {
		return false, nil
	}

	match := subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) == 1
	return match, nil
}

var _ Store = (*MemoryStore)(nil)
