package ports

import "context"

// Port: tracks which clients currently hold an active notice per package.
// For any package the ledger is empty exactly while the package is claimed,
// received, or deleted.
type NoticeLedger interface {
	// Grant inserts one notice per client. Granting to a client that
	// already holds a notice for the package is a no-op, not an error.
	Grant(ctx context.Context, pid int, cids []int) error

	// PurgeForPackage deletes all notices for the package.
	PurgeForPackage(ctx context.Context, pid int) error

	// HasNotice reports whether the client holds an active notice.
	HasNotice(ctx context.Context, pid, cid int) (bool, error)
}
