package domain

import "time"

// Package represents a single surplus-food offer posted by a business.
// Exactly one client may claim it; once the business marks it received
// the package is terminal and no further activity is permitted.
type Package struct {
	PackageID   int
	OwnerBID    int
	Name        string
	Description string
	Quantity    string
	Price       float64
	Created     time.Time
	Expires     *time.Time
	ClaimerCID  *int
	Claimed     *time.Time
	Received    *time.Time
}

// IsOpen reports whether the package has no claimer and has not been
// received. Only open packages accept claims, deletions, and new notices.
func (p *Package) IsOpen() bool {
	return p.ClaimerCID == nil && p.Received == nil
}

// IsReceived reports whether the package has reached its terminal state.
func (p *Package) IsReceived() bool {
	return p.Received != nil
}

// IsExpired reports whether the package's expiration, if any, has passed.
func (p *Package) IsExpired(now time.Time) bool {
	return p.Expires != nil && !p.Expires.After(now)
}

// ClaimedBy reports whether cid is the current claimer.
func (p *Package) ClaimedBy(cid int) bool {
	return p.ClaimerCID != nil && *p.ClaimerCID == cid
}
