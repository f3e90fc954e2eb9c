package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"foodshare-service/internal/domain"
)

type ctxKey string

const (
	subjectKey ctxKey = "subject"
	sessionKey ctxKey = "session_id"
)

// WithSubject stores the authenticated subject and its session id on the
// context. Set by the session middleware.
func WithSubject(ctx context.Context, subject domain.Subject, sid string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	return context.WithValue(ctx, sessionKey, sid)
}

// SubjectFrom returns the authenticated subject, if any.
func SubjectFrom(ctx context.Context) (domain.Subject, bool) {
	subject, ok := ctx.Value(subjectKey).(domain.Subject)
	return subject, ok
}

// SessionIDFrom returns the current session id, if any.
func SessionIDFrom(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionKey).(string)
	return sid, ok
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

// WriteError reports a failed operation as a reason string.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// writeDomainError maps a failed operation to a status code plus the
// sentinel's reason string. Anything outside the taxonomy is an internal
// error and the wrapped detail stays in the log.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrNotClaimer),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrWrongUserType):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrBadCredentials),
		errors.Is(err, domain.ErrSessionInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotClaimed),
		errors.Is(err, domain.ErrAlreadyReceived),
		errors.Is(err, domain.ErrTerminal),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrNotDeletable):
		status = http.StatusBadRequest
	default:
		log.Printf("internal error: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	for unwrapped := err; unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		err = unwrapped
	}
	WriteError(w, r, status, err.Error())
}
