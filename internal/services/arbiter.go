package services

import (
	"context"
	"fmt"
	"time"

	"foodshare-service/internal/domain"
	"foodshare-service/internal/platform/obs"
	"foodshare-service/internal/ports"
)

// Scheduler is the slice of the dispatcher the arbiter drives: loops start
// on create, stop on claim and delete, and restart on unclaim.
type Scheduler interface {
	Start(pid int)
	Stop(pid int)
	Restart(pid int)
}

// ClaimArbiter is the package state machine: Open -> Claimed -> Received,
// with Claimed -> Open via unclaim. All claim-affecting writes go through
// the store's conditional updates, so concurrent requests on the same
// package cannot both succeed; the arbiter layers the notice-eligibility
// check and scheduler control on top.
type ClaimArbiter struct {
	store     ports.PackageStore
	ledger    ports.NoticeLedger
	scheduler Scheduler

	now func() time.Time
}

func NewClaimArbiter(store ports.PackageStore, ledger ports.NoticeLedger, scheduler Scheduler) *ClaimArbiter {
	return &ClaimArbiter{
		store:     store,
		ledger:    ledger,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// CreatePackage persists a new open package and starts its notification
// loop.
func (a *ClaimArbiter) CreatePackage(ctx context.Context, pkg *domain.Package) error {
	pkg.Created = a.now().UTC()
	pkg.ClaimerCID = nil
	pkg.Claimed = nil
	pkg.Received = nil

	if err := a.store.CreatePackage(ctx, pkg); err != nil {
		return fmt.Errorf("create package: %w", err)
	}

	a.scheduler.Start(pkg.PackageID)
	return nil
}

// Claim commits a client's claim on a package. The client must hold an
// active notice; the store's conditional update decides claim races, so of
// two concurrent claims exactly one succeeds and the other observes
// domain.ErrAlreadyClaimed. A successful claim purges every notice for the
// package and stops its notification loop.
//
// The notice check runs before the package is touched, so claiming a
// missing package reports domain.ErrNotEligible rather than ErrNotFound:
// no notice can exist for an absent package, and eligibility is the first
// gate a claimer fails.
func (a *ClaimArbiter) Claim(ctx context.Context, pid, cid int) (err error) {
	defer obs.Time(ctx, "claim")(&err)

	has, err := a.ledger.HasNotice(ctx, pid, cid)
	if err != nil {
		return fmt.Errorf("claim package %d: check notice: %w", pid, err)
	}
	if !has {
		return fmt.Errorf("claim package %d: %w", pid, domain.ErrNotEligible)
	}

	if err := a.store.ClaimPackage(ctx, pid, cid, a.now().UTC()); err != nil {
		return fmt.Errorf("claim package %d: %w", pid, err)
	}

	a.scheduler.Stop(pid)
	return nil
}

// Unclaim relinquishes the caller's claim, returning the package to Open
// and restarting its notification loop from a fresh eligibility pass.
//
// Notices purged at claim time are not restored: previously-notified
// clients become eligible again only if they still qualify. This matches
// the original system's behavior and is a known, possibly unintended,
// policy; a later revision may snapshot and restore notices instead.
func (a *ClaimArbiter) Unclaim(ctx context.Context, pid, cid int) (err error) {
	defer obs.Time(ctx, "unclaim")(&err)

	if err := a.store.UnclaimPackage(ctx, pid, cid); err != nil {
		return fmt.Errorf("unclaim package %d: %w", pid, err)
	}

	a.scheduler.Restart(pid)
	return nil
}

// BusinessUnassign is the owner-initiated equivalent of Unclaim: the
// business removes the current claimer from its own claimed, unreceived
// package.
func (a *ClaimArbiter) BusinessUnassign(ctx context.Context, pid, bid int) error {
	if err := a.store.UnassignPackage(ctx, pid, bid); err != nil {
		return fmt.Errorf("unassign package %d: %w", pid, err)
	}

	a.scheduler.Restart(pid)
	return nil
}

// MarkReceived transitions a claimed package to its terminal state.
func (a *ClaimArbiter) MarkReceived(ctx context.Context, pid, bid int) error {
	if err := a.store.MarkReceived(ctx, pid, bid, a.now().UTC()); err != nil {
		return fmt.Errorf("mark received package %d: %w", pid, err)
	}
	return nil
}

// Delete removes an open package, its residual notices, and its loop.
// Claimed and received packages are never deletable by the owner.
func (a *ClaimArbiter) Delete(ctx context.Context, pid, bid int) error {
	if err := a.store.DeletePackage(ctx, pid, bid); err != nil {
		return fmt.Errorf("delete package %d: %w", pid, err)
	}

	a.scheduler.Stop(pid)
	return nil
}
