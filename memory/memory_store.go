package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	entries map[string][]Entry
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryStore creates a new in-memory crew memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]Entry),
	}
}

// Append 追加一条记忆
func (s *MemoryStore) Append(ctx context.Context, crew string, entry Entry) error {
	if crew == "" || entry.Content == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	fillEntry(&entry)
	s.entries[crew] = append(s.entries[crew], entry)
	return nil
}

// Entries 返回某 Crew 的全部记忆（拷贝），按写入顺序
func (s *MemoryStore) Entries(ctx context.Context, crew string) ([]Entry, error) {
	if crew == "" {
		return nil, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	src := s.entries[crew]
	out := make([]Entry, len(src))
	copy(out, src)
	return out, nil
}

// Replace 整体替换某 Crew 的记忆
func (s *MemoryStore) Replace(ctx context.Context, crew string, entries []Entry) error {
	if crew == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	cp := make([]Entry, len(entries))
	copy(cp, entries)
	s.entries[crew] = cp
	return nil
}

// Crews 返回所有有记忆的 Crew，按字典序
func (s *MemoryStore) Crews(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	crews := make([]string, 0, len(s.entries))
	for crew := range s.entries {
		crews = append(crews, crew)
	}
	sort.Strings(crews)
	return crews, nil
}

// Ping checks if the store is healthy
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fillEntry 补齐缺失的 ID 与时间戳
func fillEntry(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

var _ Store = (*MemoryStore)(nil)
