package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodshare-service/internal/adapters/memory"
	"foodshare-service/internal/domain"
	"foodshare-service/internal/ports"
)

type captureTransport struct {
	mu  sync.Mutex
	got []ports.NoticeDelivery
}

func (c *captureTransport) Deliver(_ context.Context, notices []ports.NoticeDelivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, notices...)
	return nil
}

func (c *captureTransport) deliveries() []ports.NoticeDelivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.NoticeDelivery, len(c.got))
	copy(out, c.got)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

type dispatchFixture struct {
	store      *memory.Store
	dispatcher *Dispatcher
	arbiter    *ClaimArbiter
	transport  *captureTransport
	bid        int
	cids       []int
}

func newDispatchFixture(t *testing.T, clients, batchSize int) *dispatchFixture {
	t.Helper()
	store := memory.NewStore()
	bid, cids := seedBusinessAndClients(t, store, clients)

	transport := &captureTransport{}
	cfg := DispatchConfig{Interval: 5 * time.Millisecond, BatchSize: batchSize}
	dispatcher := NewDispatcher(cfg, store, store, store, NewEligibilityResolver(store, nil), transport)
	t.Cleanup(dispatcher.StopAll)

	return &dispatchFixture{
		store:      store,
		dispatcher: dispatcher,
		arbiter:    NewClaimArbiter(store, store, dispatcher),
		transport:  transport,
		bid:        bid,
		cids:       cids,
	}
}

func TestDispatchFirstTickGrantsBatch(t *testing.T) {
	f := newDispatchFixture(t, 4, 2)
	pkg := createOpenPackage(t, f.arbiter, f.bid)
	ctx := context.Background()

	waitFor(t, time.Second, func() bool {
		return f.store.NoticeCount(pkg.PackageID) >= 2
	}, "first batch never granted")

	// Deterministic order: the two lowest client ids go first.
	for _, cid := range f.cids[:2] {
		has, err := f.store.HasNotice(ctx, pkg.PackageID, cid)
		if err != nil {
			t.Fatalf("has notice: %v", err)
		}
		if !has {
			t.Fatalf("cid=%d missing from first batch", cid)
		}
	}

	waitFor(t, time.Second, func() bool {
		return len(f.transport.deliveries()) >= 2
	}, "deliveries never handed to transport")

	for _, d := range f.transport.deliveries() {
		if d.PID != pkg.PackageID {
			t.Fatalf("delivery pid = %d, want %d", d.PID, pkg.PackageID)
		}
		if d.BusinessName != "Biz" || d.BusinessAddress != "1 Main St" {
			t.Fatalf("delivery profile = %q %q", d.BusinessName, d.BusinessAddress)
		}
	}
}

func TestDispatchExhaustionStopsLoop(t *testing.T) {
	f := newDispatchFixture(t, 3, 2)
	pkg := createOpenPackage(t, f.arbiter, f.bid)

	waitFor(t, time.Second, func() bool {
		return f.store.NoticeCount(pkg.PackageID) == 3
	}, "not all clients notified")

	waitFor(t, time.Second, func() bool {
		return !f.dispatcher.Running(pkg.PackageID)
	}, "loop kept running after exhaustion")
}

func TestDispatchStopsOnClaim(t *testing.T) {
	f := newDispatchFixture(t, 2, 1)
	pkg := createOpenPackage(t, f.arbiter, f.bid)
	ctx := context.Background()

	waitFor(t, time.Second, func() bool {
		has, _ := f.store.HasNotice(ctx, pkg.PackageID, f.cids[0])
		return has
	}, "first client never notified")

	if err := f.arbiter.Claim(ctx, pkg.PackageID, f.cids[0]); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if f.dispatcher.Running(pkg.PackageID) {
		t.Fatal("loop still registered after claim")
	}
	if f.store.NoticeCount(pkg.PackageID) != 0 {
		t.Fatal("notices survived the claim")
	}

	// No late tick may re-grant against the claimed package.
	time.Sleep(25 * time.Millisecond)
	if f.store.NoticeCount(pkg.PackageID) != 0 {
		t.Fatal("tick granted notices after claim")
	}
}

func TestDispatchRestartAfterUnclaim(t *testing.T) {
	f := newDispatchFixture(t, 2, 5)
	pkg := createOpenPackage(t, f.arbiter, f.bid)
	ctx := context.Background()

	// Loop notifies everyone in one batch and then exhausts.
	waitFor(t, time.Second, func() bool {
		return f.store.NoticeCount(pkg.PackageID) == 2
	}, "initial batch never granted")
	waitFor(t, time.Second, func() bool {
		return !f.dispatcher.Running(pkg.PackageID)
	}, "loop kept running after exhaustion")

	if err := f.arbiter.Claim(ctx, pkg.PackageID, f.cids[0]); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := f.arbiter.Unclaim(ctx, pkg.PackageID, f.cids[0]); err != nil {
		t.Fatalf("unclaim: %v", err)
	}

	// Fresh pass: prior notices were purged on claim, so every client,
	// including the former claimer, is eligible again.
	waitFor(t, time.Second, func() bool {
		return f.store.NoticeCount(pkg.PackageID) == 2
	}, "no fresh batch after unclaim")

	has, err := f.store.HasNotice(ctx, pkg.PackageID, f.cids[0])
	if err != nil {
		t.Fatalf("has notice: %v", err)
	}
	if !has {
		t.Fatal("former claimer not re-notified")
	}
}

func TestDispatchIgnoresNonOpenPackage(t *testing.T) {
	f := newDispatchFixture(t, 2, 1)
	ctx := context.Background()

	pkg := &domain.Package{OwnerBID: f.bid, Name: "p", Created: time.Now()}
	if err := f.store.CreatePackage(ctx, pkg); err != nil {
		t.Fatalf("create package: %v", err)
	}
	if err := f.store.Grant(ctx, pkg.PackageID, []int{f.cids[0]}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := f.store.ClaimPackage(ctx, pkg.PackageID, f.cids[0], time.Now()); err != nil {
		t.Fatalf("claim: %v", err)
	}

	f.dispatcher.Start(pkg.PackageID)

	waitFor(t, time.Second, func() bool {
		return !f.dispatcher.Running(pkg.PackageID)
	}, "loop kept running for a claimed package")

	if f.store.NoticeCount(pkg.PackageID) != 0 {
		t.Fatal("notices granted against a claimed package")
	}
}

func TestDispatchStartIsIdempotent(t *testing.T) {
	// A large interval keeps the loop parked after its first tick so the
	// second Start must observe it as already running.
	f := newDispatchFixture(t, 5, 1)
	f.dispatcher.cfg.Interval = time.Hour

	pkg := createOpenPackage(t, f.arbiter, f.bid)
	f.dispatcher.Start(pkg.PackageID)
	f.dispatcher.Start(pkg.PackageID)

	waitFor(t, time.Second, func() bool {
		return f.store.NoticeCount(pkg.PackageID) >= 1
	}, "first tick never ran")

	// One loop, one first tick, one notice.
	time.Sleep(20 * time.Millisecond)
	if n := f.store.NoticeCount(pkg.PackageID); n != 1 {
		t.Fatalf("notices = %d, want 1 (duplicate loops?)", n)
	}

	f.dispatcher.Stop(pkg.PackageID)
	if f.dispatcher.Running(pkg.PackageID) {
		t.Fatal("loop still registered after stop")
	}
}

// flakyUserStore fails a configured number of candidate lookups before
// delegating to the real store.
type flakyUserStore struct {
	*memory.Store

	mu       sync.Mutex
	failures int
}

func (f *flakyUserStore) ClientsWithoutNotice(ctx context.Context, pid int) ([]domain.Client, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("store temporarily unavailable")
	}
	f.mu.Unlock()
	return f.Store.ClientsWithoutNotice(ctx, pid)
}

func (f *flakyUserStore) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

func TestDispatchRetriesAfterTransientStoreError(t *testing.T) {
	store := memory.NewStore()
	bid, cids := seedBusinessAndClients(t, store, 2)
	flaky := &flakyUserStore{Store: store, failures: 1}

	transport := &captureTransport{}
	cfg := DispatchConfig{Interval: 5 * time.Millisecond, BatchSize: 5}
	dispatcher := NewDispatcher(cfg, store, store, flaky, NewEligibilityResolver(flaky, nil), transport)
	t.Cleanup(dispatcher.StopAll)

	arbiter := NewClaimArbiter(store, store, dispatcher)
	pkg := createOpenPackage(t, arbiter, bid)

	// The first tick fails; the loop must survive it and grant the full
	// batch on a later tick.
	waitFor(t, time.Second, func() bool {
		return store.NoticeCount(pkg.PackageID) == len(cids)
	}, "batch never granted after transient store failure")

	if flaky.remaining() != 0 {
		t.Fatal("injected failure never consumed")
	}
}

func TestDispatchExpiredPackagePurgesNotices(t *testing.T) {
	f := newDispatchFixture(t, 2, 1)
	ctx := context.Background()

	expires := time.Now().Add(-time.Minute)
	pkg := &domain.Package{OwnerBID: f.bid, Name: "stale", Created: time.Now(), Expires: &expires}
	if err := f.store.CreatePackage(ctx, pkg); err != nil {
		t.Fatalf("create package: %v", err)
	}
	if err := f.store.Grant(ctx, pkg.PackageID, []int{f.cids[0]}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	f.dispatcher.Start(pkg.PackageID)

	waitFor(t, time.Second, func() bool {
		return !f.dispatcher.Running(pkg.PackageID)
	}, "loop kept running for an expired package")

	if f.store.NoticeCount(pkg.PackageID) != 0 {
		t.Fatal("stale notices not purged for expired package")
	}
}
