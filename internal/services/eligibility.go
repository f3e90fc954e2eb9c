package services

import (
	"context"
	"fmt"

	"foodshare-service/internal/domain"
	"foodshare-service/internal/ports"
)

// ClientFilter is a pluggable business-level eligibility predicate applied
// on top of the structural rules (no existing notice, not the claimer).
type ClientFilter func(domain.Client) bool

// PayingOnly admits only clients on the paying tier.
func PayingOnly(c domain.Client) bool {
	return c.Paying
}

// EligibilityResolver selects the next batch of clients to notify about a
// package. Selection order is ascending client id, so batches are
// reproducible; the store excludes already-notified clients and the
// resolver excludes the current claimer and anyone rejected by the filter.
type EligibilityResolver struct {
	Users  ports.UserStore
	Filter ClientFilter
}

func NewEligibilityResolver(users ports.UserStore, filter ClientFilter) *EligibilityResolver {
	return &EligibilityResolver{Users: users, Filter: filter}
}

// NextBatch returns up to batchSize eligible client ids for the package.
// An empty result means the package is exhausted: no client remains who
// could receive a new notice.
func (r *EligibilityResolver) NextBatch(ctx context.Context, pkg *domain.Package, batchSize int) ([]int, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("next batch: batch size must be positive, got %d", batchSize)
	}

	candidates, err := r.Users.ClientsWithoutNotice(ctx, pkg.PackageID)
	if err != nil {
		return nil, fmt.Errorf("next batch: list candidates for package %d: %w", pkg.PackageID, err)
	}

	batch := make([]int, 0, batchSize)
	for _, c := range candidates {
		if pkg.ClaimedBy(c.CID) {
			continue
		}
		if r.Filter != nil && !r.Filter(c) {
			continue
		}

		batch = append(batch, c.CID)
		if len(batch) == batchSize {
			break
		}
	}

	return batch, nil
}
