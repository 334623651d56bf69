// Package session keeps the sprite editing sessions of the HTTP API.
//
// Each session owns one [studio.Studio]. Sessions live only in memory (no
// project state survives a restart) and expire after a period of inactivity;
// every successful Get extends the deadline.
//
// # Usage
//
//	store := session.NewMemoryStore(session.DefaultTTL)
//	sess, err := store.Create(ctx, func() (*studio.Studio, error) {
//	    return studio.New(runner, opts)
//	})
//
//	sess, err = store.Get(ctx, id)
//	if errors.Is(err, errors.ErrCodeSessionExpired) {
//	    // Ask the client to start over
//	}
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/spritestack/pkg/studio"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 2 * time.Hour

// Session is one user's editing session.
type Session struct {
	ID        string         `json:"id"`
	Studio    *studio.Studio `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// NewID returns a random session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed session identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Create builds a studio with newStudio and registers it under a new ID.
	Create(ctx context.Context, newStudio func() (*studio.Studio, error)) (*Session, error)

	// Get retrieves a session by ID and extends its deadline.
	// Returns a SESSION_NOT_FOUND or SESSION_EXPIRED coded error on failure.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session and closes its studio.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error

	// Len returns the number of live sessions.
	Len() int
}
