package domain

import "time"

// Role tags a resolved identity as either a client or a business.
// The core never inspects identity records beyond this tag plus an id.
type Role string

const (
	RoleClient   Role = "client"
	RoleBusiness Role = "business"
)

// Subject is an authenticated identity as handed to request handlers:
// the user row id plus the subtype id the role refers to (cid or bid).
type Subject struct {
	UID     int
	Role    Role
	ActorID int
}

// User is the shared identity record behind both clients and businesses.
type User struct {
	UID          int
	Username     string
	PasswordHash string
	Email        string
	Address      string
	Zip          string
}

// Client is the consumer subtype of a user.
type Client struct {
	CID       int
	UID       int
	FirstName string
	LastName  string
	CellPhone string
	Paying    bool
}

// Business is the provider subtype of a user.
type Business struct {
	BID          int
	UID          int
	Name         string
	WorkPhone    string
	Instructions string
}

// Session is a persisted login session; tokens reference it by id so a
// logout revokes the token server-side before its signature expires.
type Session struct {
	SID     string
	UID     int
	Created time.Time
	Expires time.Time
}
