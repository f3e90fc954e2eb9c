package domain

// Notice records that a specific client has been offered a specific
// package and may claim it. A client holds at most one active notice per
// package; the full set for a package is purged the instant it is claimed.
type Notice struct {
	CID int
	PID int
}
