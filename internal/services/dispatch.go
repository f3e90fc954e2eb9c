package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"foodshare-service/internal/domain"
	"foodshare-service/internal/ports"
)

// DispatchConfig parameterizes the per-package notification loops.
type DispatchConfig struct {
	// Interval is the time between notification ticks for one package.
	Interval time.Duration
	// BatchSize is the number of clients notified per tick.
	BatchSize int
}

// Dispatcher runs one notification loop per open package. Each loop ticks
// immediately on start and then every Interval: it re-reads the package,
// asks the eligibility resolver for the next batch, records notices in the
// ledger, and hands the batch to the transport without awaiting delivery.
//
// A loop stops itself when the package is claimed, received, expired,
// deleted, or exhausted of eligible clients. Claim and delete also stop the
// loop explicitly through Stop, and unclaim restarts it through Restart.
// At most one loop runs per package at any time.
type Dispatcher struct {
	cfg       DispatchConfig
	store     ports.PackageStore
	ledger    ports.NoticeLedger
	users     ports.UserStore
	resolver  *EligibilityResolver
	transport ports.NoticeTransport

	now func() time.Time

	mu    sync.Mutex
	loops map[int]*loop
}

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(
	cfg DispatchConfig,
	store ports.PackageStore,
	ledger ports.NoticeLedger,
	users ports.UserStore,
	resolver *EligibilityResolver,
	transport ports.NoticeTransport,
) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		store:     store,
		ledger:    ledger,
		users:     users,
		resolver:  resolver,
		transport: transport,
		now:       time.Now,
		loops:     make(map[int]*loop),
	}
}

// Start launches the notification loop for a package. Starting a package
// whose loop is already running is a no-op, so concurrent starts cannot
// produce duplicate loops.
func (d *Dispatcher) Start(pid int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, running := d.loops[pid]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{cancel: cancel, done: make(chan struct{})}
	d.loops[pid] = l

	go d.run(ctx, pid, l)
}

// Stop cancels the package's loop, if any, and waits for it to exit.
// An in-flight tick that observes a non-open package aborts without
// granting notices.
func (d *Dispatcher) Stop(pid int) {
	d.mu.Lock()
	l, running := d.loops[pid]
	if running {
		delete(d.loops, pid)
	}
	d.mu.Unlock()

	if running {
		l.cancel()
		<-l.done
	}
}

// Restart stops any current loop and starts a fresh one, discarding prior
// exhaustion state. Used after unclaim so currently-eligible clients get a
// new batch sequence from tick zero.
func (d *Dispatcher) Restart(pid int) {
	d.Stop(pid)
	d.Start(pid)
}

// StopAll cancels every loop and waits for them to exit. Used on shutdown.
func (d *Dispatcher) StopAll() {
	d.mu.Lock()
	loops := d.loops
	d.loops = make(map[int]*loop)
	d.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}
	for _, l := range loops {
		<-l.done
	}
}

// Running reports whether a loop is currently registered for the package.
func (d *Dispatcher) Running(pid int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, running := d.loops[pid]
	return running
}

func (d *Dispatcher) run(ctx context.Context, pid int, l *loop) {
	defer func() {
		// Deregister unless Stop already replaced or removed this handle.
		d.mu.Lock()
		if cur, ok := d.loops[pid]; ok && cur == l {
			delete(d.loops, pid)
		}
		d.mu.Unlock()
		close(l.done)
	}()

	for {
		proceed, err := d.tick(ctx, pid)
		if err != nil {
			// Transient failures must not kill the loop; retry next tick.
			log.Printf("dispatch: pid=%d tick failed (will retry): %v", pid, err)
		} else if !proceed {
			return
		}

		timer := time.NewTimer(d.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// tick performs one notification pass. It returns false when the loop
// should stop (package gone, no longer open, expired, or exhausted) and an
// error only for transient failures worth retrying.
func (d *Dispatcher) tick(ctx context.Context, pid int) (bool, error) {
	pkg, err := d.store.GetPackage(ctx, pid)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return true, fmt.Errorf("get package: %w", err)
	}

	now := d.now()

	if !pkg.IsOpen() {
		return false, nil
	}
	if pkg.IsExpired(now) {
		// Outstanding notices are stale once the package expires.
		if err := d.ledger.PurgeForPackage(ctx, pid); err != nil {
			log.Printf("dispatch: pid=%d purge stale notices failed: %v", pid, err)
		}
		return false, nil
	}

	batch, err := d.resolver.NextBatch(ctx, pkg, d.cfg.BatchSize)
	if err != nil {
		return true, fmt.Errorf("next batch: %w", err)
	}
	if len(batch) == 0 {
		// Exhausted: nobody left to notify. Unclaim or an explicit
		// restart revives the loop later.
		log.Printf("dispatch: pid=%d exhausted eligible clients, stopping loop", pid)
		return false, nil
	}

	if err := d.ledger.Grant(ctx, pid, batch); err != nil {
		return true, fmt.Errorf("grant notices: %w", err)
	}

	d.deliver(pkg.OwnerBID, pid, batch)
	return true, nil
}

// deliver hands the granted batch to the transport. Fire-and-forget: the
// loop never waits on, or retries, outbound delivery.
func (d *Dispatcher) deliver(bid, pid int, cids []int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	name, address, err := d.users.BusinessProfile(ctx, bid)
	if err != nil {
		cancel()
		log.Printf("dispatch: pid=%d lookup business %d failed, skipping delivery: %v", pid, bid, err)
		return
	}

	notices := make([]ports.NoticeDelivery, 0, len(cids))
	for _, cid := range cids {
		notices = append(notices, ports.NoticeDelivery{
			CID:             cid,
			PID:             pid,
			BusinessName:    name,
			BusinessAddress: address,
		})
	}

	go func() {
		defer cancel()
		if err := d.transport.Deliver(ctx, notices); err != nil {
			log.Printf("dispatch: pid=%d deliver %d notices failed: %v", pid, len(notices), err)
		}
	}()
}
