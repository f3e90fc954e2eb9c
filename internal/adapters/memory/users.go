package memory

import (
	"context"
	"sort"

	"foodshare-service/internal/domain"
)

// UserStore and SessionStore implementations on the shared in-memory Store.

func (s *Store) CreateClientUser(_ context.Context, user *domain.User, client *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTaken(user.Username) {
		return domain.ErrUsernameTaken
	}

	s.nextUID++
	user.UID = s.nextUID
	u := *user
	s.users[user.UID] = &u

	s.nextCID++
	client.CID = s.nextCID
	client.UID = user.UID
	c := *client
	s.clients[client.CID] = &c
	return nil
}

func (s *Store) CreateBusinessUser(_ context.Context, user *domain.User, business *domain.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTaken(user.Username) {
		return domain.ErrUsernameTaken
	}

	s.nextUID++
	user.UID = s.nextUID
	u := *user
	s.users[user.UID] = &u

	s.nextBID++
	business.BID = s.nextBID
	business.UID = user.UID
	b := *business
	s.businesses[business.BID] = &b
	return nil
}

func (s *Store) usernameTaken(username string) bool {
	for _, u := range s.users {
		if u.Username == username {
			return true
		}
	}
	return false
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) GetUser(_ context.Context, uid int) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) ResolveSubject(_ context.Context, uid int) (domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.UID == uid {
			return domain.Subject{UID: uid, Role: domain.RoleClient, ActorID: c.CID}, nil
		}
	}
	for _, b := range s.businesses {
		if b.UID == uid {
			return domain.Subject{UID: uid, Role: domain.RoleBusiness, ActorID: b.BID}, nil
		}
	}
	return domain.Subject{}, domain.ErrWrongUserType
}

func (s *Store) GetClientByUID(_ context.Context, uid int) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.UID == uid {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrWrongUserType
}

func (s *Store) GetBusinessByUID(_ context.Context, uid int) (*domain.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.businesses {
		if b.UID == uid {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrWrongUserType
}

func (s *Store) BusinessProfile(_ context.Context, bid int) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.businesses[bid]
	if !ok {
		return "", "", domain.ErrUserNotFound
	}
	u, ok := s.users[b.UID]
	if !ok {
		return "", "", domain.ErrUserNotFound
	}
	return b.Name, u.Address, nil
}

func (s *Store) UpdateClientUser(_ context.Context, user *domain.User, client *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.UID]
	if !ok {
		return domain.ErrUserNotFound
	}
	c, ok := s.clients[client.CID]
	if !ok || c.UID != user.UID {
		return domain.ErrWrongUserType
	}
	if u.Username != user.Username && s.usernameTaken(user.Username) {
		return domain.ErrUsernameTaken
	}

	u.Username = user.Username
	u.Email = user.Email
	u.Address = user.Address
	u.Zip = user.Zip
	c.FirstName = client.FirstName
	c.LastName = client.LastName
	c.CellPhone = client.CellPhone
	return nil
}

func (s *Store) UpdateBusinessUser(_ context.Context, user *domain.User, business *domain.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.UID]
	if !ok {
		return domain.ErrUserNotFound
	}
	b, ok := s.businesses[business.BID]
	if !ok || b.UID != user.UID {
		return domain.ErrWrongUserType
	}
	if u.Username != user.Username && s.usernameTaken(user.Username) {
		return domain.ErrUsernameTaken
	}

	u.Username = user.Username
	u.Email = user.Email
	u.Address = user.Address
	u.Zip = user.Zip
	b.Name = business.Name
	b.WorkPhone = business.WorkPhone
	b.Instructions = business.Instructions
	return nil
}

func (s *Store) SetPassword(_ context.Context, uid int, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *Store) DeleteClientUser(_ context.Context, uid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[uid]; !ok {
		return domain.ErrUserNotFound
	}

	var cid int
	found := false
	for _, c := range s.clients {
		if c.UID == uid {
			cid = c.CID
			found = true
			break
		}
	}
	if !found {
		return domain.ErrWrongUserType
	}

	delete(s.clients, cid)
	delete(s.users, uid)
	return nil
}

func (s *Store) ClientsWithoutNotice(_ context.Context, pid int) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	noticed := s.notices[pid]

	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if _, has := noticed[c.CID]; has {
			continue
		}
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CID < out[j].CID })
	return out, nil
}

// --- SessionStore ---

func (s *Store) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.sessions[session.SID] = &cp
	return nil
}

func (s *Store) GetSession(_ context.Context, sid string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sid]
	if !ok {
		return nil, domain.ErrSessionInvalid
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) DeleteSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sid)
	return nil
}

func (s *Store) DeleteSessionsForUser(_ context.Context, uid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sid, sess := range s.sessions {
		if sess.UID == uid {
			delete(s.sessions, sid)
		}
	}
	return nil
}
