package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"foodshare-service/internal/domain"
)

// Store is an in-memory implementation of the persistence ports, guarded
// by a single mutex so the conditional claim updates behave like the SQL
// store's transactions. Used by service tests and local experimentation.
type Store struct {
	mu sync.RWMutex

	nextUID int
	nextCID int
	nextBID int
	nextPID int

	users      map[int]*domain.User
	clients    map[int]*domain.Client  // by CID
	businesses map[int]*domain.Business // by BID
	packages   map[int]*domain.Package
	notices    map[int]map[int]struct{} // pid -> set of cids
	sessions   map[string]*domain.Session
}

func NewStore() *Store {
	return &Store{
		users:      make(map[int]*domain.User),
		clients:    make(map[int]*domain.Client),
		businesses: make(map[int]*domain.Business),
		packages:   make(map[int]*domain.Package),
		notices:    make(map[int]map[int]struct{}),
		sessions:   make(map[string]*domain.Session),
	}
}

func clonePackage(p *domain.Package) *domain.Package {
	cp := *p
	if p.Expires != nil {
		t := *p.Expires
		cp.Expires = &t
	}
	if p.ClaimerCID != nil {
		v := *p.ClaimerCID
		cp.ClaimerCID = &v
	}
	if p.Claimed != nil {
		t := *p.Claimed
		cp.Claimed = &t
	}
	if p.Received != nil {
		t := *p.Received
		cp.Received = &t
	}
	return &cp
}

// --- PackageStore ---

func (s *Store) CreatePackage(_ context.Context, pkg *domain.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPID++
	pkg.PackageID = s.nextPID
	s.packages[pkg.PackageID] = clonePackage(pkg)
	return nil
}

func (s *Store) GetPackage(_ context.Context, pid int) (*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packages[pid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePackage(p), nil
}

func (s *Store) ListByOwner(_ context.Context, bid int, onlyUnreceived bool) ([]*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Package, 0)
	for _, p := range s.packages {
		if p.OwnerBID != bid {
			continue
		}
		if onlyUnreceived && p.Received != nil {
			continue
		}
		out = append(out, clonePackage(p))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PackageID < out[j].PackageID })
	return out, nil
}

func (s *Store) ListForClient(_ context.Context, cid int, onlyUnreceived bool) ([]*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Package, 0)
	for pid, p := range s.packages {
		noticed := false
		if set, ok := s.notices[pid]; ok {
			_, noticed = set[cid]
		}

		switch {
		case noticed && p.ClaimerCID == nil:
			out = append(out, clonePackage(p))
		case p.ClaimedBy(cid):
			if onlyUnreceived && p.Received != nil {
				continue
			}
			out = append(out, clonePackage(p))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PackageID < out[j].PackageID })
	return out, nil
}

func (s *Store) ListOpen(_ context.Context, now time.Time) ([]*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Package, 0)
	for _, p := range s.packages {
		if p.IsOpen() && !p.IsExpired(now) {
			out = append(out, clonePackage(p))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PackageID < out[j].PackageID })
	return out, nil
}

func (s *Store) ClaimPackage(_ context.Context, pid, cid int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[pid]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Received != nil {
		return domain.ErrTerminal
	}
	if p.ClaimerCID != nil {
		return domain.ErrAlreadyClaimed
	}
	if p.IsExpired(at) {
		return domain.ErrExpired
	}

	claimer := cid
	claimed := at
	p.ClaimerCID = &claimer
	p.Claimed = &claimed
	delete(s.notices, pid)
	return nil
}

func (s *Store) UnclaimPackage(_ context.Context, pid, cid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[pid]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Received != nil {
		return domain.ErrTerminal
	}
	if p.ClaimerCID == nil {
		return domain.ErrNotClaimed
	}
	if *p.ClaimerCID != cid {
		return domain.ErrNotClaimer
	}

	p.ClaimerCID = nil
	p.Claimed = nil
	return nil
}

func (s *Store) UnassignPackage(_ context.Context, pid, bid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[pid]
	if !ok {
		return domain.ErrNotFound
	}
	if p.OwnerBID != bid {
		return domain.ErrNotOwner
	}
	if p.Received != nil {
		return domain.ErrTerminal
	}
	if p.ClaimerCID == nil {
		return domain.ErrNotClaimed
	}

	p.ClaimerCID = nil
	p.Claimed = nil
	return nil
}

func (s *Store) MarkReceived(_ context.Context, pid, bid int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[pid]
	if !ok {
		return domain.ErrNotFound
	}
	if p.OwnerBID != bid {
		return domain.ErrNotOwner
	}
	if p.Received != nil {
		return domain.ErrAlreadyReceived
	}
	if p.ClaimerCID == nil {
		return domain.ErrNotClaimed
	}

	received := at
	p.Received = &received
	return nil
}

func (s *Store) DeletePackage(_ context.Context, pid, bid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[pid]
	if !ok {
		return domain.ErrNotFound
	}
	if p.OwnerBID != bid {
		return domain.ErrNotOwner
	}
	if p.ClaimerCID != nil || p.Received != nil {
		return domain.ErrNotDeletable
	}

	delete(s.packages, pid)
	delete(s.notices, pid)
	return nil
}

// --- NoticeLedger ---

func (s *Store) Grant(_ context.Context, pid int, cids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Granting against a package that is no longer open is a no-op; this
	// keeps the ledger empty for claimed and received packages even when a
	// tick races a claim.
	p, ok := s.packages[pid]
	if !ok || !p.IsOpen() {
		return nil
	}

	set, ok := s.notices[pid]
	if !ok {
		set = make(map[int]struct{})
		s.notices[pid] = set
	}
	for _, cid := range cids {
		set[cid] = struct{}{}
	}
	return nil
}

func (s *Store) PurgeForPackage(_ context.Context, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.notices, pid)
	return nil
}

func (s *Store) HasNotice(_ context.Context, pid, cid int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.notices[pid]
	if !ok {
		return false, nil
	}
	_, has := set[cid]
	return has, nil
}

// NoticeCount reports the number of active notices for a package. Test
// helper; not part of the ledger port.
func (s *Store) NoticeCount(pid int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notices[pid])
}
