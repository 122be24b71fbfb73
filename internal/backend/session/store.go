package session

import (
	"context"
	"time"
)

// Session ties a browser cookie to a logged in username
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time // zero means the session lives until logout or restart
}

// Expired reports whether the session is past its expiry at the given time
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Store interface {
	// Create starts a new session for username and returns it with a fresh ID.
	Create(ctx context.Context, username string) (*Session, error)
	// Get returns nil without error when the session does not exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func newSession(username string, ttl time.Duration, now time.Time) (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        id,
		Username:  username,
		CreatedAt: now,
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s, nil
}
