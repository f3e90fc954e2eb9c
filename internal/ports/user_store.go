package ports

import (
	"context"

	"foodshare-service/internal/domain"
)

// Port: identity records. Users are shared rows; each user has exactly one
// subtype row (client or business) determining its role.
type UserStore interface {
	// CreateClientUser persists the user row and its client subtype row,
	// assigning UID and CID. Fails with domain.ErrUsernameTaken.
	CreateClientUser(ctx context.Context, user *domain.User, client *domain.Client) error

	// CreateBusinessUser persists the user row and its business subtype
	// row, assigning UID and BID. Fails with domain.ErrUsernameTaken.
	CreateBusinessUser(ctx context.Context, user *domain.User, business *domain.Business) error

	// GetUserByUsername returns the user row or domain.ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetUser returns the user row or domain.ErrUserNotFound.
	GetUser(ctx context.Context, uid int) (*domain.User, error)

	// ResolveSubject returns the role tag and subtype id for a user.
	// Fails with domain.ErrWrongUserType when no subtype row exists.
	ResolveSubject(ctx context.Context, uid int) (domain.Subject, error)

	// GetClientByUID / GetBusinessByUID return the subtype row or
	// domain.ErrWrongUserType when the user is not of that subtype.
	GetClientByUID(ctx context.Context, uid int) (*domain.Client, error)
	GetBusinessByUID(ctx context.Context, uid int) (*domain.Business, error)

	// BusinessProfile returns the display name and pickup address for a
	// business, as handed to the notice transport and package listings.
	BusinessProfile(ctx context.Context, bid int) (name, address string, err error)

	// UpdateUser replaces the mutable user fields (username, email,
	// address, zip) and, per role, the subtype profile fields.
	UpdateClientUser(ctx context.Context, user *domain.User, client *domain.Client) error
	UpdateBusinessUser(ctx context.Context, user *domain.User, business *domain.Business) error

	// SetPassword replaces the stored password hash.
	SetPassword(ctx context.Context, uid int, passwordHash string) error

	// DeleteClientUser removes a client account (subtype row plus user
	// row). Fails with domain.ErrWrongUserType for business users.
	DeleteClientUser(ctx context.Context, uid int) error

	// ClientsWithoutNotice returns every client that holds no notice for
	// the package, ordered by ascending client id. The eligibility
	// resolver applies policy filtering and batch truncation on top.
	ClientsWithoutNotice(ctx context.Context, pid int) ([]domain.Client, error)
}
