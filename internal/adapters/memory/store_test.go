package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodshare-service/internal/domain"
)

func seed(t *testing.T) (*Store, int, []int) {
	t.Helper()
	s := NewStore()
	ctx := context.Background()

	bu := &domain.User{Username: "biz", PasswordHash: "x", Address: "addr"}
	b := &domain.Business{Name: "Biz"}
	if err := s.CreateBusinessUser(ctx, bu, b); err != nil {
		t.Fatalf("create business: %v", err)
	}

	cids := make([]int, 0, 2)
	for _, name := range []string{"c1", "c2"} {
		u := &domain.User{Username: name, PasswordHash: "x"}
		c := &domain.Client{}
		if err := s.CreateClientUser(ctx, u, c); err != nil {
			t.Fatalf("create client: %v", err)
		}
		cids = append(cids, c.CID)
	}

	return s, b.BID, cids
}

func TestClaimConditionalUpdate(t *testing.T) {
	s, bid, cids := seed(t)
	ctx := context.Background()

	pkg := &domain.Package{OwnerBID: bid, Name: "p", Created: time.Now()}
	if err := s.CreatePackage(ctx, pkg); err != nil {
		t.Fatalf("create package: %v", err)
	}
	if err := s.Grant(ctx, pkg.PackageID, cids); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := s.ClaimPackage(ctx, pkg.PackageID, cids[0], time.Now()); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Claim purged the ledger atomically.
	if n := s.NoticeCount(pkg.PackageID); n != 0 {
		t.Fatalf("notices = %d, want 0", n)
	}

	err := s.ClaimPackage(ctx, pkg.PackageID, cids[1], time.Now())
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("second claim err = %v, want ErrAlreadyClaimed", err)
	}
}

func TestGrantIsIdempotentAndGuarded(t *testing.T) {
	s, bid, cids := seed(t)
	ctx := context.Background()

	pkg := &domain.Package{OwnerBID: bid, Name: "p", Created: time.Now()}
	if err := s.CreatePackage(ctx, pkg); err != nil {
		t.Fatalf("create package: %v", err)
	}

	if err := s.Grant(ctx, pkg.PackageID, []int{cids[0]}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := s.Grant(ctx, pkg.PackageID, []int{cids[0]}); err != nil {
		t.Fatalf("re-grant: %v", err)
	}
	if n := s.NoticeCount(pkg.PackageID); n != 1 {
		t.Fatalf("notices = %d, want 1 (idempotent grant)", n)
	}

	if err := s.ClaimPackage(ctx, pkg.PackageID, cids[0], time.Now()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Grant(ctx, pkg.PackageID, []int{cids[1]}); err != nil {
		t.Fatalf("guarded grant: %v", err)
	}
	if n := s.NoticeCount(pkg.PackageID); n != 0 {
		t.Fatalf("notices = %d, want 0 (grant against claimed package)", n)
	}
}

func TestListForClient(t *testing.T) {
	s, bid, cids := seed(t)
	ctx := context.Background()

	noticed := &domain.Package{OwnerBID: bid, Name: "noticed", Created: time.Now()}
	claimed := &domain.Package{OwnerBID: bid, Name: "claimed", Created: time.Now()}
	other := &domain.Package{OwnerBID: bid, Name: "other", Created: time.Now()}
	for _, p := range []*domain.Package{noticed, claimed, other} {
		if err := s.CreatePackage(ctx, p); err != nil {
			t.Fatalf("create package: %v", err)
		}
	}

	if err := s.Grant(ctx, noticed.PackageID, []int{cids[0]}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := s.Grant(ctx, claimed.PackageID, []int{cids[0]}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := s.ClaimPackage(ctx, claimed.PackageID, cids[0], time.Now()); err != nil {
		t.Fatalf("claim: %v", err)
	}

	got, err := s.ListForClient(ctx, cids[0], false)
	if err != nil {
		t.Fatalf("list for client: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d packages, want 2", len(got))
	}
	if got[0].PackageID != noticed.PackageID || got[1].PackageID != claimed.PackageID {
		t.Fatalf("listed %d,%d want %d,%d", got[0].PackageID, got[1].PackageID, noticed.PackageID, claimed.PackageID)
	}

	// The other client sees nothing.
	got, err = s.ListForClient(ctx, cids[1], false)
	if err != nil {
		t.Fatalf("list for client: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("listed %d packages for un-noticed client, want 0", len(got))
	}
}

func TestListOpenSkipsExpired(t *testing.T) {
	s, bid, _ := seed(t)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Hour)
	fresh := &domain.Package{OwnerBID: bid, Name: "fresh", Created: now}
	stale := &domain.Package{OwnerBID: bid, Name: "stale", Created: now, Expires: &past}
	for _, p := range []*domain.Package{fresh, stale} {
		if err := s.CreatePackage(ctx, p); err != nil {
			t.Fatalf("create package: %v", err)
		}
	}

	open, err := s.ListOpen(ctx, now)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0].PackageID != fresh.PackageID {
		t.Fatalf("open = %v, want only the fresh package", open)
	}
}

func TestUsernameUniqueness(t *testing.T) {
	s, _, _ := seed(t)
	ctx := context.Background()

	err := s.CreateClientUser(ctx, &domain.User{Username: "biz", PasswordHash: "x"}, &domain.Client{})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
}
