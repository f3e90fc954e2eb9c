package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodshare-service/internal/domain"
)

// UserStore and SessionStore implementations on the shared SQL Store.

func (s *Store) createUser(ctx context.Context, tx *sql.Tx, user *domain.User) error {
	var existing int
	err := tx.QueryRowContext(ctx, `SELECT uid FROM users WHERE username = ?;`, user.Username).Scan(&existing)
	if err == nil {
		return domain.ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("look up username %q: %w", user.Username, err)
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO users (username, password_hash, email, address, zip)
	VALUES (?, ?, ?, ?, ?);
	`, user.Username, user.PasswordHash, user.Email, user.Address, user.Zip)
	if err != nil {
		return fmt.Errorf("insert user %q: %w", user.Username, err)
	}

	uid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user %q id: %w", user.Username, err)
	}
	user.UID = int(uid)
	return nil
}

func (s *Store) CreateClientUser(ctx context.Context, user *domain.User, client *domain.Client) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create client user: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.createUser(ctx, tx, user); err != nil {
		return fmt.Errorf("create client user: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO clients (uid, first_name, last_name, cell_phone, paying)
	VALUES (?, ?, ?, ?, ?);
	`, user.UID, client.FirstName, client.LastName, client.CellPhone, client.Paying)
	if err != nil {
		return fmt.Errorf("create client user: insert client: %w", err)
	}

	cid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create client user: client id: %w", err)
	}
	client.CID = int(cid)
	client.UID = user.UID

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create client user: commit tx: %w", err)
	}
	return nil
}

func (s *Store) CreateBusinessUser(ctx context.Context, user *domain.User, business *domain.Business) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create business user: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.createUser(ctx, tx, user); err != nil {
		return fmt.Errorf("create business user: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO businesses (uid, name, work_phone, instructions)
	VALUES (?, ?, ?, ?);
	`, user.UID, business.Name, business.WorkPhone, business.Instructions)
	if err != nil {
		return fmt.Errorf("create business user: insert business: %w", err)
	}

	bid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create business user: business id: %w", err)
	}
	business.BID = int(bid)
	business.UID = user.UID

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create business user: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.DB.QueryRowContext(ctx, `
	SELECT uid, username, password_hash, email, address, zip FROM users WHERE username = ?;
	`, username).Scan(&u.UID, &u.Username, &u.PasswordHash, &u.Email, &u.Address, &u.Zip)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username %q: %w", username, err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, uid int) (*domain.User, error) {
	var u domain.User
	err := s.DB.QueryRowContext(ctx, `
	SELECT uid, username, password_hash, email, address, zip FROM users WHERE uid = ?;
	`, uid).Scan(&u.UID, &u.Username, &u.PasswordHash, &u.Email, &u.Address, &u.Zip)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", uid, err)
	}
	return &u, nil
}

func (s *Store) ResolveSubject(ctx context.Context, uid int) (domain.Subject, error) {
	var cid int
	err := s.DB.QueryRowContext(ctx, `SELECT cid FROM clients WHERE uid = ?;`, uid).Scan(&cid)
	if err == nil {
		return domain.Subject{UID: uid, Role: domain.RoleClient, ActorID: cid}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Subject{}, fmt.Errorf("resolve subject %d: client lookup: %w", uid, err)
	}

	var bid int
	err = s.DB.QueryRowContext(ctx, `SELECT bid FROM businesses WHERE uid = ?;`, uid).Scan(&bid)
	if err == nil {
		return domain.Subject{UID: uid, Role: domain.RoleBusiness, ActorID: bid}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Subject{}, fmt.Errorf("resolve subject %d: business lookup: %w", uid, err)
	}

	return domain.Subject{}, domain.ErrWrongUserType
}

func (s *Store) GetClientByUID(ctx context.Context, uid int) (*domain.Client, error) {
	var c domain.Client
	var paying int
	err := s.DB.QueryRowContext(ctx, `
	SELECT cid, uid, first_name, last_name, cell_phone, paying FROM clients WHERE uid = ?;
	`, uid).Scan(&c.CID, &c.UID, &c.FirstName, &c.LastName, &c.CellPhone, &paying)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWrongUserType
	}
	if err != nil {
		return nil, fmt.Errorf("get client by uid %d: %w", uid, err)
	}
	c.Paying = paying != 0
	return &c, nil
}

func (s *Store) GetBusinessByUID(ctx context.Context, uid int) (*domain.Business, error) {
	var b domain.Business
	err := s.DB.QueryRowContext(ctx, `
	SELECT bid, uid, name, work_phone, instructions FROM businesses WHERE uid = ?;
	`, uid).Scan(&b.BID, &b.UID, &b.Name, &b.WorkPhone, &b.Instructions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWrongUserType
	}
	if err != nil {
		return nil, fmt.Errorf("get business by uid %d: %w", uid, err)
	}
	return &b, nil
}

func (s *Store) BusinessProfile(ctx context.Context, bid int) (string, string, error) {
	var name, address string
	err := s.DB.QueryRowContext(ctx, `
	SELECT b.name, u.address FROM businesses b
	JOIN users u ON u.uid = b.uid
	WHERE b.bid = ?;
	`, bid).Scan(&name, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("business profile %d: %w", bid, err)
	}
	return name, address, nil
}

func (s *Store) UpdateClientUser(ctx context.Context, user *domain.User, client *domain.Client) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update client user: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	UPDATE users SET username = ?, email = ?, address = ?, zip = ? WHERE uid = ?;
	`, user.Username, user.Email, user.Address, user.Zip, user.UID); err != nil {
		return fmt.Errorf("update client user: users row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
	UPDATE clients SET first_name = ?, last_name = ?, cell_phone = ? WHERE uid = ?;
	`, client.FirstName, client.LastName, client.CellPhone, user.UID); err != nil {
		return fmt.Errorf("update client user: clients row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update client user: commit tx: %w", err)
	}
	return nil
}

func (s *Store) UpdateBusinessUser(ctx context.Context, user *domain.User, business *domain.Business) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update business user: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	UPDATE users SET username = ?, email = ?, address = ?, zip = ? WHERE uid = ?;
	`, user.Username, user.Email, user.Address, user.Zip, user.UID); err != nil {
		return fmt.Errorf("update business user: users row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
	UPDATE businesses SET name = ?, work_phone = ?, instructions = ? WHERE uid = ?;
	`, business.Name, business.WorkPhone, business.Instructions, user.UID); err != nil {
		return fmt.Errorf("update business user: businesses row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update business user: commit tx: %w", err)
	}
	return nil
}

func (s *Store) SetPassword(ctx context.Context, uid int, passwordHash string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE uid = ?;`, passwordHash, uid)
	if err != nil {
		return fmt.Errorf("set password for user %d: %w", uid, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set password for user %d: rows affected: %w", uid, err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteClientUser(ctx context.Context, uid int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete client user: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE uid = ?;`, uid)
	if err != nil {
		return fmt.Errorf("delete client user: clients row: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete client user: rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrWrongUserType
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE uid = ?;`, uid); err != nil {
		return fmt.Errorf("delete client user: sessions: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE uid = ?;`, uid); err != nil {
		return fmt.Errorf("delete client user: users row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete client user: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ClientsWithoutNotice(ctx context.Context, pid int) ([]domain.Client, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT c.cid, c.uid, c.first_name, c.last_name, c.cell_phone, c.paying
	FROM clients c
	WHERE NOT EXISTS (SELECT 1 FROM notices n WHERE n.cid = c.cid AND n.pid = ?)
	ORDER BY c.cid;
	`, pid)
	if err != nil {
		return nil, fmt.Errorf("clients without notice for package %d: %w", pid, err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, 16)
	for rows.Next() {
		var c domain.Client
		var paying int
		if err := rows.Scan(&c.CID, &c.UID, &c.FirstName, &c.LastName, &c.CellPhone, &paying); err != nil {
			return nil, fmt.Errorf("clients without notice: scan row: %w", err)
		}
		c.Paying = paying != 0
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clients without notice: row iteration: %w", err)
	}
	return clients, nil
}

// --- SessionStore ---

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO sessions (sid, uid, created, expires) VALUES (?, ?, ?, ?);
	`, session.SID, session.UID, session.Created, session.Expires)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sid string) (*domain.Session, error) {
	var sess domain.Session
	err := s.DB.QueryRowContext(ctx, `
	SELECT sid, uid, created, expires FROM sessions WHERE sid = ?;
	`, sid).Scan(&sess.SID, &sess.UID, &sess.Created, &sess.Expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, sid string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?;`, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSessionsForUser(ctx context.Context, uid int) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE uid = ?;`, uid); err != nil {
		return fmt.Errorf("delete sessions for user %d: %w", uid, err)
	}
	return nil
}
