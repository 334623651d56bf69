package session

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/studio"
)

// MemoryStore keeps sessions in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty store. ttl ≤ 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session.
func (s *MemoryStore) Create(_ context.Context, newStudio func() (*studio.Studio, error)) (*Session, error) {
	st, err := newStudio()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		ID:        NewID(),
		Studio:    st,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session and slides its deadline forward.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", sessionID)
	}
	now := s.now()
	if now.After(sess.ExpiresAt) {
		delete(s.sessions, sessionID)
		_ = sess.Studio.Close()
		return nil, errors.New(errors.ErrCodeSessionExpired, "session %s expired", sessionID)
	}
	sess.ExpiresAt = now.Add(s.ttl)
	return sess, nil
}

// Delete removes a session. Deleting an unknown session is an error.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return errors.New(errors.ErrCodeSessionNotFound, "session %s not found", sessionID)
	}
	return sess.Studio.Close()
}

// Cleanup removes expired sessions.
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	var expired []*Session
	now := s.now()
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		_ = sess.Studio.Close()
	}
	return nil
}

// Len returns the number of sessions, including expired ones not yet
// cleaned up.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Cleanup(ctx)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
