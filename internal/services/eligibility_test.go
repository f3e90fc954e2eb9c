package services

import (
	"context"
	"testing"

	"foodshare-service/internal/adapters/memory"
	"foodshare-service/internal/domain"
)

func seedClients(t *testing.T, store *memory.Store, paying []bool) []int {
	t.Helper()
	ctx := context.Background()

	cids := make([]int, 0, len(paying))
	for i, p := range paying {
		u := &domain.User{Username: "c" + string(rune('a'+i)), PasswordHash: "x"}
		c := &domain.Client{Paying: p}
		if err := store.CreateClientUser(ctx, u, c); err != nil {
			t.Fatalf("create client: %v", err)
		}
		cids = append(cids, c.CID)
	}
	return cids
}

func TestNextBatchDeterministicOrderAndSize(t *testing.T) {
	store := memory.NewStore()
	cids := seedClients(t, store, []bool{true, true, true, true, true})
	resolver := NewEligibilityResolver(store, nil)
	pkg := &domain.Package{PackageID: 1}

	batch, err := resolver.NextBatch(context.Background(), pkg, 3)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}

	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	for i, cid := range batch {
		if cid != cids[i] {
			t.Fatalf("batch[%d] = %d, want %d (ascending client id)", i, cid, cids[i])
		}
	}
}

func TestNextBatchExcludesNotifiedClients(t *testing.T) {
	store := memory.NewStore()
	cids := seedClients(t, store, []bool{true, true, true})
	resolver := NewEligibilityResolver(store, nil)
	pkg := &domain.Package{PackageID: 1}
	ctx := context.Background()

	// The package must exist for grants to stick.
	if err := store.CreatePackage(ctx, &domain.Package{OwnerBID: 1, Name: "p"}); err != nil {
		t.Fatalf("create package: %v", err)
	}
	if err := store.Grant(ctx, pkg.PackageID, []int{cids[0], cids[1]}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	batch, err := resolver.NextBatch(ctx, pkg, 10)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}

	if len(batch) != 1 || batch[0] != cids[2] {
		t.Fatalf("batch = %v, want [%d]", batch, cids[2])
	}
}

func TestNextBatchExcludesClaimer(t *testing.T) {
	store := memory.NewStore()
	cids := seedClients(t, store, []bool{true, true})
	resolver := NewEligibilityResolver(store, nil)

	claimer := cids[0]
	pkg := &domain.Package{PackageID: 1, ClaimerCID: &claimer}

	batch, err := resolver.NextBatch(context.Background(), pkg, 10)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}

	for _, cid := range batch {
		if cid == claimer {
			t.Fatalf("batch %v contains the claimer %d", batch, claimer)
		}
	}
	if len(batch) != 1 || batch[0] != cids[1] {
		t.Fatalf("batch = %v, want [%d]", batch, cids[1])
	}
}

func TestNextBatchPayingFilter(t *testing.T) {
	store := memory.NewStore()
	cids := seedClients(t, store, []bool{false, true, false, true})
	resolver := NewEligibilityResolver(store, PayingOnly)
	pkg := &domain.Package{PackageID: 1}

	batch, err := resolver.NextBatch(context.Background(), pkg, 10)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}

	want := []int{cids[1], cids[3]}
	if len(batch) != len(want) {
		t.Fatalf("batch = %v, want %v", batch, want)
	}
	for i := range want {
		if batch[i] != want[i] {
			t.Fatalf("batch = %v, want %v", batch, want)
		}
	}
}

func TestNextBatchEmptyMeansExhausted(t *testing.T) {
	store := memory.NewStore()
	resolver := NewEligibilityResolver(store, nil)
	pkg := &domain.Package{PackageID: 1}

	batch, err := resolver.NextBatch(context.Background(), pkg, 5)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("batch = %v, want empty", batch)
	}
}

func TestNextBatchRejectsBadSize(t *testing.T) {
	store := memory.NewStore()
	resolver := NewEligibilityResolver(store, nil)

	if _, err := resolver.NextBatch(context.Background(), &domain.Package{PackageID: 1}, 0); err == nil {
		t.Fatal("expected error for zero batch size")
	}
}
