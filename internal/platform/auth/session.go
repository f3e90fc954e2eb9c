package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"foodshare-service/internal/domain"
	"foodshare-service/internal/ports"
)

// SessionManager issues and validates login sessions. A session is a
// persisted row referenced by a signed JWT, so logout revokes the token
// server-side even though its signature would still verify.
type SessionManager struct {
	secret   []byte
	ttl      time.Duration
	sessions ports.SessionStore
	users    ports.UserStore

	now func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, sessions ports.SessionStore, users ports.UserStore) *SessionManager {
	return &SessionManager{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		users:    users,
		now:      time.Now,
	}
}

type sessionClaims struct {
	SID string `json:"sid"`
	UID int    `json:"uid"`
	jwt.RegisteredClaims
}

// Login verifies credentials, persists a session, and returns the signed
// token. Unknown users and wrong passwords both yield ErrBadCredentials.
func (m *SessionManager) Login(ctx context.Context, username, password string) (string, error) {
	user, err := m.users.GetUserByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrBadCredentials
	}
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return "", domain.ErrBadCredentials
	}

	now := m.now().UTC()
	session := &domain.Session{
		SID:     uuid.NewString(),
		UID:     user.UID,
		Created: now,
		Expires: now.Add(m.ttl),
	}
	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("login: persist session: %w", err)
	}

	claims := sessionClaims{
		SID: session.SID,
		UID: user.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.Expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("login: sign token: %w", err)
	}
	return token, nil
}

// Authenticate validates a token against its signature and its persisted
// session, then resolves the subject's role. Returns the subject plus the
// session id so handlers can log out the current session.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (domain.Subject, string, error) {
	var claims sessionClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return domain.Subject{}, "", domain.ErrSessionInvalid
	}

	session, err := m.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		return domain.Subject{}, "", domain.ErrSessionInvalid
	}
	if session.UID != claims.UID || !session.Expires.After(m.now()) {
		return domain.Subject{}, "", domain.ErrSessionInvalid
	}

	subject, err := m.users.ResolveSubject(ctx, session.UID)
	if err != nil {
		return domain.Subject{}, "", fmt.Errorf("authenticate: resolve subject: %w", err)
	}
	return subject, session.SID, nil
}

// Logout revokes a single session.
func (m *SessionManager) Logout(ctx context.Context, sid string) error {
	if err := m.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// LogoutAll revokes every session belonging to the user.
func (m *SessionManager) LogoutAll(ctx context.Context, uid int) error {
	if err := m.sessions.DeleteSessionsForUser(ctx, uid); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	return nil
}
