package ports

import (
	"context"
	"time"

	"foodshare-service/internal/domain"
)

// Port: durable storage for Package rows.
//
// The claim-affecting mutations are conditional updates: each one compares
// the row's current claimer/received state inside the store and fails with
// the matching domain error when the condition no longer holds. This makes
// the store the sole arbiter of claim races; callers never read-then-write.
type PackageStore interface {
	// CreatePackage persists a new package and assigns its PackageID.
	CreatePackage(ctx context.Context, pkg *domain.Package) error

	// GetPackage returns the package or domain.ErrNotFound.
	GetPackage(ctx context.Context, pid int) (*domain.Package, error)

	// ListByOwner returns all packages owned by a business, oldest first.
	// With onlyUnreceived set, received packages are filtered out.
	ListByOwner(ctx context.Context, bid int, onlyUnreceived bool) ([]*domain.Package, error)

	// ListForClient returns packages the client holds an active notice for
	// (still unclaimed) plus packages the client has claimed, oldest first.
	// With onlyUnreceived set, received claimed packages are filtered out.
	ListForClient(ctx context.Context, cid int, onlyUnreceived bool) ([]*domain.Package, error)

	// ListOpen returns every package that is unclaimed, unreceived, and not
	// expired as of now. Used to resume dispatch loops on startup.
	ListOpen(ctx context.Context, now time.Time) ([]*domain.Package, error)

	// ClaimPackage sets claimer and claimed time iff the package is still
	// open and unexpired, and atomically deletes every notice for it.
	// Fails with ErrNotFound, ErrTerminal, ErrAlreadyClaimed, or ErrExpired.
	ClaimPackage(ctx context.Context, pid, cid int, at time.Time) error

	// UnclaimPackage clears claimer and claimed time iff cid is the current
	// claimer and the package is unreceived. Fails with ErrNotFound,
	// ErrTerminal, ErrNotClaimed, or ErrNotClaimer.
	UnclaimPackage(ctx context.Context, pid, cid int) error

	// UnassignPackage clears claimer and claimed time iff bid owns the
	// package, it is claimed, and unreceived. Fails with ErrNotFound,
	// ErrNotOwner, ErrTerminal, or ErrNotClaimed.
	UnassignPackage(ctx context.Context, pid, bid int) error

	// MarkReceived sets the received time iff bid owns the package, it is
	// claimed, and not yet received. Fails with ErrNotFound, ErrNotOwner,
	// ErrNotClaimed, or ErrAlreadyReceived.
	MarkReceived(ctx context.Context, pid, bid int, at time.Time) error

	// DeletePackage removes the package and its notices iff bid owns it and
	// it is open. Fails with ErrNotFound, ErrNotOwner, or ErrNotDeletable.
	DeletePackage(ctx context.Context, pid, bid int) error
}
