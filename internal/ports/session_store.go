package ports

import (
	"context"

	"foodshare-service/internal/domain"
)

// Port: persisted login sessions, so tokens can be revoked server-side.
type SessionStore interface {
	// CreateSession persists a new session row.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession returns the session or domain.ErrSessionInvalid.
	GetSession(ctx context.Context, sid string) (*domain.Session, error)

	// DeleteSession removes one session. Deleting an absent session is a
	// no-op.
	DeleteSession(ctx context.Context, sid string) error

	// DeleteSessionsForUser removes every session belonging to a user.
	DeleteSessionsForUser(ctx context.Context, uid int) error
}
