package dto

import "time"

type PackageInfo struct {
	PID             int        `json:"pid"`
	OwnerBID        int        `json:"owner_bid"`
	ClaimerCID      *int       `json:"claimer_cid"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Quantity        string     `json:"quantity"`
	Price           float64    `json:"price"`
	Created         time.Time  `json:"created"`
	Expires         *time.Time `json:"expires"`
	Claimed         *time.Time `json:"claimed"`
	Received        *time.Time `json:"received"`
	BusinessName    string     `json:"business_name"`
	BusinessAddress string     `json:"business_address"`
}

type ListPackagesRequest struct {
	OnlyEligible bool `json:"only_eligible"`
}

type ListPackagesResponse struct {
	Packages []PackageInfo `json:"packages"`
}

type CreatePackageRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Quantity    string     `json:"quantity"`
	Price       float64    `json:"price"`
	Expires     *time.Time `json:"expires"`
}

type PackageIDRequest struct {
	PID int `json:"pid"`
}

type ClaimRequest struct {
	PID int `json:"pid"`
	// Claim selects the client operation: true claims, false unclaims.
	// Businesses omit it; their only claim operation is unassigning.
	Claim *bool `json:"claim"`
}
