package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodshare-service/internal/domain"
)

// SQL-backed implementation of the PackageStore and NoticeLedger ports.
//
// Claim-affecting mutations are conditional UPDATE/DELETE statements: the
// WHERE clause re-checks the claimer/received state so a lost race shows up
// as zero affected rows, which is then mapped to the precise domain error
// by re-reading the row inside the same transaction.
type Store struct{ DB *sql.DB }

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

const packageColumns = `pid, owner_bid, name, description, quantity, price, created, expires, claimer_cid, claimed, received`

func scanPackage(row interface{ Scan(...any) error }) (*domain.Package, error) {
	var (
		p       domain.Package
		expires sql.NullTime
		claimer sql.NullInt64
		claimed sql.NullTime
		recvd   sql.NullTime
	)

	err := row.Scan(
		&p.PackageID, &p.OwnerBID, &p.Name, &p.Description, &p.Quantity,
		&p.Price, &p.Created, &expires, &claimer, &claimed, &recvd,
	)
	if err != nil {
		return nil, err
	}

	if expires.Valid {
		t := expires.Time
		p.Expires = &t
	}
	if claimer.Valid {
		v := int(claimer.Int64)
		p.ClaimerCID = &v
	}
	if claimed.Valid {
		t := claimed.Time
		p.Claimed = &t
	}
	if recvd.Valid {
		t := recvd.Time
		p.Received = &t
	}

	return &p, nil
}

func (s *Store) CreatePackage(ctx context.Context, pkg *domain.Package) error {
	res, err := s.DB.ExecContext(ctx, `
	INSERT INTO packages (owner_bid, name, description, quantity, price, created, expires)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`, pkg.OwnerBID, pkg.Name, pkg.Description, pkg.Quantity, pkg.Price, pkg.Created, pkg.Expires)
	if err != nil {
		return fmt.Errorf("create package: insert: %w", err)
	}

	pid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create package: last insert id: %w", err)
	}

	pkg.PackageID = int(pid)
	return nil
}

func (s *Store) GetPackage(ctx context.Context, pid int) (*domain.Package, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE pid = ?;`, pid)

	pkg, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get package %d: %w", pid, err)
	}
	return pkg, nil
}

func (s *Store) listPackages(ctx context.Context, query string, args ...any) ([]*domain.Package, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	packages := make([]*domain.Package, 0, 16)
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package row: %w", err)
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("package row iteration: %w", err)
	}
	return packages, nil
}

func (s *Store) ListByOwner(ctx context.Context, bid int, onlyUnreceived bool) ([]*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE owner_bid = ?`
	if onlyUnreceived {
		query += ` AND received IS NULL`
	}
	query += ` ORDER BY pid;`

	pkgs, err := s.listPackages(ctx, query, bid)
	if err != nil {
		return nil, fmt.Errorf("list by owner %d: %w", bid, err)
	}
	return pkgs, nil
}

func (s *Store) ListForClient(ctx context.Context, cid int, onlyUnreceived bool) ([]*domain.Package, error) {
	// A client sees packages it was noticed about (still unclaimed) plus
	// packages it has claimed, optionally filtered to unreceived ones.
	query := `
	SELECT ` + packageColumns + ` FROM packages p
	WHERE (p.claimer_cid IS NULL AND EXISTS (
			SELECT 1 FROM notices n WHERE n.pid = p.pid AND n.cid = ?
		))
		OR (p.claimer_cid = ?`
	if onlyUnreceived {
		query += ` AND p.received IS NULL`
	}
	query += `)
	ORDER BY p.pid;
	`

	pkgs, err := s.listPackages(ctx, query, cid, cid)
	if err != nil {
		return nil, fmt.Errorf("list for client %d: %w", cid, err)
	}
	return pkgs, nil
}

func (s *Store) ListOpen(ctx context.Context, now time.Time) ([]*domain.Package, error) {
	query := `
	SELECT ` + packageColumns + ` FROM packages
	WHERE claimer_cid IS NULL AND received IS NULL
		AND (expires IS NULL OR expires > ?)
	ORDER BY pid;
	`

	pkgs, err := s.listPackages(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list open: %w", err)
	}
	return pkgs, nil
}

// classify re-reads a package inside the transaction to turn a failed
// conditional update into the precise domain error.
func classify(ctx context.Context, tx *sql.Tx, pid int) (*domain.Package, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE pid = ?;`, pid)

	pkg, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("re-read package %d: %w", pid, err)
	}
	return pkg, nil
}

func (s *Store) ClaimPackage(ctx context.Context, pid, cid int, at time.Time) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("claim: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	UPDATE packages SET claimer_cid = ?, claimed = ?
	WHERE pid = ? AND claimer_cid IS NULL AND received IS NULL
		AND (expires IS NULL OR expires > ?);
	`, cid, at, pid, at)
	if err != nil {
		return fmt.Errorf("claim: conditional update: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim: rows affected: %w", err)
	}
	if n == 0 {
		pkg, cerr := classify(ctx, tx, pid)
		if cerr != nil {
			return cerr
		}
		switch {
		case pkg.Received != nil:
			return domain.ErrTerminal
		case pkg.ClaimerCID != nil:
			return domain.ErrAlreadyClaimed
		case pkg.IsExpired(at):
			return domain.ErrExpired
		default:
			return domain.ErrAlreadyClaimed
		}
	}

	// The claimer needs no notice and everyone else just lost their offer.
	if _, err := tx.ExecContext(ctx, `DELETE FROM notices WHERE pid = ?;`, pid); err != nil {
		return fmt.Errorf("claim: purge notices: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("claim: commit tx: %w", err)
	}
	return nil
}

func (s *Store) UnclaimPackage(ctx context.Context, pid, cid int) error {
	res, err := s.DB.ExecContext(ctx, `
	UPDATE packages SET claimer_cid = NULL, claimed = NULL
	WHERE pid = ? AND claimer_cid = ? AND received IS NULL;
	`, pid, cid)
	if err != nil {
		return fmt.Errorf("unclaim: conditional update: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unclaim: rows affected: %w", err)
	}
	if n == 0 {
		pkg, err := s.GetPackage(ctx, pid)
		if err != nil {
			return err
		}
		switch {
		case pkg.Received != nil:
			return domain.ErrTerminal
		case pkg.ClaimerCID == nil:
			return domain.ErrNotClaimed
		default:
			return domain.ErrNotClaimer
		}
	}
	return nil
}

func (s *Store) UnassignPackage(ctx context.Context, pid, bid int) error {
	res, err := s.DB.ExecContext(ctx, `
	UPDATE packages SET claimer_cid = NULL, claimed = NULL
	WHERE pid = ? AND owner_bid = ? AND claimer_cid IS NOT NULL AND received IS NULL;
	`, pid, bid)
	if err != nil {
		return fmt.Errorf("unassign: conditional update: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unassign: rows affected: %w", err)
	}
	if n == 0 {
		pkg, err := s.GetPackage(ctx, pid)
		if err != nil {
			return err
		}
		switch {
		case pkg.OwnerBID != bid:
			return domain.ErrNotOwner
		case pkg.Received != nil:
			return domain.ErrTerminal
		default:
			return domain.ErrNotClaimed
		}
	}
	return nil
}

func (s *Store) MarkReceived(ctx context.Context, pid, bid int, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
	UPDATE packages SET received = ?
	WHERE pid = ? AND owner_bid = ? AND claimer_cid IS NOT NULL AND received IS NULL;
	`, at, pid, bid)
	if err != nil {
		return fmt.Errorf("mark received: conditional update: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark received: rows affected: %w", err)
	}
	if n == 0 {
		pkg, err := s.GetPackage(ctx, pid)
		if err != nil {
			return err
		}
		switch {
		case pkg.OwnerBID != bid:
			return domain.ErrNotOwner
		case pkg.Received != nil:
			return domain.ErrAlreadyReceived
		default:
			return domain.ErrNotClaimed
		}
	}
	return nil
}

func (s *Store) DeletePackage(ctx context.Context, pid, bid int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete package: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	DELETE FROM packages
	WHERE pid = ? AND owner_bid = ? AND claimer_cid IS NULL AND received IS NULL;
	`, pid, bid)
	if err != nil {
		return fmt.Errorf("delete package: conditional delete: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete package: rows affected: %w", err)
	}
	if n == 0 {
		pkg, cerr := classify(ctx, tx, pid)
		if cerr != nil {
			return cerr
		}
		if pkg.OwnerBID != bid {
			return domain.ErrNotOwner
		}
		return domain.ErrNotDeletable
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM notices WHERE pid = ?;`, pid); err != nil {
		return fmt.Errorf("delete package: purge notices: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete package: commit tx: %w", err)
	}
	return nil
}

// --- NoticeLedger ---

func (s *Store) Grant(ctx context.Context, pid int, cids []int) error {
	if len(cids) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("grant notices: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The guarded insert makes granting a no-op both for clients already
	// holding a notice and for packages that stopped being open between
	// the tick's state check and this write.
	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO notices (cid, pid)
	SELECT ?, ? WHERE EXISTS (
		SELECT 1 FROM packages
		WHERE pid = ? AND claimer_cid IS NULL AND received IS NULL
	);
	`)
	if err != nil {
		return fmt.Errorf("grant notices: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, cid := range cids {
		if _, err := stmt.ExecContext(ctx, cid, pid, pid); err != nil {
			return fmt.Errorf("grant notices: insert cid=%d pid=%d: %w", cid, pid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grant notices: commit tx: %w", err)
	}
	return nil
}

func (s *Store) PurgeForPackage(ctx context.Context, pid int) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM notices WHERE pid = ?;`, pid); err != nil {
		return fmt.Errorf("purge notices for package %d: %w", pid, err)
	}
	return nil
}

func (s *Store) HasNotice(ctx context.Context, pid, cid int) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM notices WHERE pid = ? AND cid = ?;`, pid, cid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has notice pid=%d cid=%d: %w", pid, cid, err)
	}
	return true, nil
}
