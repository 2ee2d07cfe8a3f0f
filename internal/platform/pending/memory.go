package pending

import (
	"context"
	"sync"
	"time"
)

type memKey struct {
	session string
	kind    Kind
}

// MemoryStore keeps pending changes in process memory. Suitable for a
// single server instance; changes are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memKey]*Change
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[memKey]*Change),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, kind Kind, ch *Change) error {
	if err := checkPut(sessionID, kind, ch); err != nil {
		return err
	}
	cp := ch.Clone()
	cp.Kind = kind
	if cp.StagedAt.IsZero() {
		cp.StagedAt = s.now()
	}

	s.mu.Lock()
	s.entries[memKey{sessionID, kind}] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string, kind Kind) (*Change, error) {
	if err := checkKey(sessionID, kind); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{sessionID, kind}
	ch, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if expired(ch.StagedAt, s.now(), s.ttl) {
		delete(s.entries, key)
		return nil, ErrNotFound
	}
	return ch.Clone(), nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string, kind Kind) error {
	if err := checkKey(sessionID, kind); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, memKey{sessionID, kind})
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ClearSession(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.session == sessionID {
			delete(s.entries, k)
		}
	}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, sessionID string, kind Kind, token string) (*Change, error) {
	if err := checkKey(sessionID, kind); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{sessionID, kind}
	ch, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if expired(ch.StagedAt, s.now(), s.ttl) {
		delete(s.entries, key)
		return nil, ErrNotFound
	}
	if ch.Token != token {
		return nil, ErrTokenMismatch
	}
	delete(s.entries, key)
	return ch, nil
}

func (s *MemoryStore) Restore(_ context.Context, sessionID string, kind Kind, ch *Change) error {
	if err := checkPut(sessionID, kind, ch); err != nil {
		return err
	}
	cp := ch.Clone()
	cp.Kind = kind

	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{sessionID, kind}
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = cp
	}
	return nil
}

// PurgeExpired removes expired entries and returns how many were dropped.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for k, ch := range s.entries {
		if expired(ch.StagedAt, now, s.ttl) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of held entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
