package repository

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
)

type memoryEntry struct {
	record    domain.OTPRecord
	expiresAt time.Time
}

// MemoryOTPStore is a process-local OTPStore. Expired entries are dropped on read.
type MemoryOTPStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ OTPStore = (*MemoryOTPStore)(nil)

func NewMemoryOTPStore() *MemoryOTPStore {
	return NewMemoryOTPStoreWithClock(time.Now)
}

func NewMemoryOTPStoreWithClock(now func() time.Time) *MemoryOTPStore {
	return &MemoryOTPStore{entries: make(map[string]memoryEntry), now: now}
}

func (s *MemoryOTPStore) Get(_ context.Context, phone string) (*domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := OTPKey(phone)
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

func (s *MemoryOTPStore) Put(_ context.Context, phone string, record *domain.OTPRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[OTPKey(phone)] = memoryEntry{record: *record, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, OTPKey(phone))
	return nil
}

// Len reports live and not-yet-collected entries.
func (s *MemoryOTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
