package domain

import "errors"

// Package state machine failures. Handlers map these to reason strings;
// services wrap them with operation context.
var (
	ErrNotFound        = errors.New("no such package")
	ErrNotEligible     = errors.New("client holds no active notice for this package")
	ErrAlreadyClaimed  = errors.New("package is already claimed")
	ErrNotClaimer      = errors.New("client is not the current claimer")
	ErrNotClaimed      = errors.New("package has no current claimer")
	ErrNotOwner        = errors.New("package is not owned by this business")
	ErrAlreadyReceived = errors.New("package was already marked received")
	ErrTerminal        = errors.New("package was received and is closed")
	ErrExpired         = errors.New("package has expired")
	ErrNotDeletable    = errors.New("package cannot be deleted while claimed or received")
)

// Identity and session failures.
var (
	ErrUserNotFound   = errors.New("no such user")
	ErrUsernameTaken  = errors.New("username is already in use")
	ErrBadCredentials = errors.New("incorrect username or password")
	ErrSessionInvalid = errors.New("session is invalid or expired")
	ErrWrongUserType  = errors.New("operation does not support this user type")
)
