package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Initialize the database schema. SQLite is the primary store; the DDL
// sticks to a portable subset.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createUsersQuery := `
	CREATE TABLE IF NOT EXISTS users (
		uid INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		zip TEXT NOT NULL DEFAULT ''
	);
	`

	createClientsQuery := `
	CREATE TABLE IF NOT EXISTS clients (
		cid INTEGER PRIMARY KEY,
		uid INTEGER NOT NULL UNIQUE REFERENCES users(uid),
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		cell_phone TEXT NOT NULL DEFAULT '',
		paying INTEGER NOT NULL DEFAULT 0
	);
	`

	createBusinessesQuery := `
	CREATE TABLE IF NOT EXISTS businesses (
		bid INTEGER PRIMARY KEY,
		uid INTEGER NOT NULL UNIQUE REFERENCES users(uid),
		name TEXT NOT NULL DEFAULT '',
		work_phone TEXT NOT NULL DEFAULT '',
		instructions TEXT NOT NULL DEFAULT ''
	);
	`

	createSessionsQuery := `
	CREATE TABLE IF NOT EXISTS sessions (
		sid TEXT PRIMARY KEY,
		uid INTEGER NOT NULL,
		created TIMESTAMP NOT NULL,
		expires TIMESTAMP NOT NULL
	);
	`

	createPackagesQuery := `
	CREATE TABLE IF NOT EXISTS packages (
		pid INTEGER PRIMARY KEY,
		owner_bid INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		created TIMESTAMP NOT NULL,
		expires TIMESTAMP,
		claimer_cid INTEGER,
		claimed TIMESTAMP,
		received TIMESTAMP
	);
	`

	createNoticesQuery := `
	CREATE TABLE IF NOT EXISTS notices (
		cid INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		PRIMARY KEY (cid, pid)
	);
	`

	createNoticeIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_notices_pid ON notices(pid);
	`

	createPackageOwnerIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_packages_owner_bid ON packages(owner_bid);
	`

	statements := []string{
		createUsersQuery,
		createClientsQuery,
		createBusinessesQuery,
		createSessionsQuery,
		createPackagesQuery,
		createNoticesQuery,
		createNoticeIndexQuery,
		createPackageOwnerIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type UserSeed struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	Zip          string `json:"zip"`
	UserType     string `json:"user_type"`

	// Client
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CellPhone string `json:"cell_phone"`
	Paying    bool   `json:"paying"`

	// Business
	Name         string `json:"name"`
	WorkPhone    string `json:"work_phone"`
	Instructions string `json:"instructions"`
}

type PackageSeed struct {
	OwnerUsername string     `json:"owner_username"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Quantity      string     `json:"quantity"`
	Price         float64    `json:"price"`
	Expires       *time.Time `json:"expires"`
}

type SeedFile struct {
	Users    []UserSeed    `json:"users"`
	Packages []PackageSeed `json:"packages"`
}

// Populate the database with demo users and packages from a JSON file.
// Password hashes are precomputed in the seed file; seeding never hashes.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	businessByUsername := make(map[string]int)

	for i, u := range data.Users {
		username := strings.TrimSpace(u.Username)
		if username == "" {
			return fmt.Errorf("seed: user at index %d: username cannot be empty", i)
		}

		var existing int
		err := tx.QueryRow(`SELECT uid FROM users WHERE username = ?;`, username).Scan(&existing)
		if err == nil {
			// Already seeded; resolve the bid for package ownership below.
			if strings.EqualFold(u.UserType, "business") {
				var bid int
				if err := tx.QueryRow(`SELECT bid FROM businesses WHERE uid = ?;`, existing).Scan(&bid); err != nil {
					return fmt.Errorf("seed: resolve business for %q: %w", username, err)
				}
				businessByUsername[username] = bid
			}
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("seed: look up user %q: %w", username, err)
		}

		res, err := tx.Exec(
			`INSERT INTO users (username, password_hash, email, address, zip) VALUES (?, ?, ?, ?, ?);`,
			username, u.PasswordHash, u.Email, u.Address, u.Zip,
		)
		if err != nil {
			return fmt.Errorf("seed: insert user %q: %w", username, err)
		}
		uid64, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("seed: user %q id: %w", username, err)
		}
		uid := int(uid64)

		switch strings.ToLower(u.UserType) {
		case "client":
			_, err = tx.Exec(
				`INSERT INTO clients (uid, first_name, last_name, cell_phone, paying) VALUES (?, ?, ?, ?, ?);`,
				uid, u.FirstName, u.LastName, u.CellPhone, u.Paying,
			)
			if err != nil {
				return fmt.Errorf("seed: insert client %q: %w", username, err)
			}
		case "business":
			res, err := tx.Exec(
				`INSERT INTO businesses (uid, name, work_phone, instructions) VALUES (?, ?, ?, ?);`,
				uid, u.Name, u.WorkPhone, u.Instructions,
			)
			if err != nil {
				return fmt.Errorf("seed: insert business %q: %w", username, err)
			}
			bid64, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("seed: business %q id: %w", username, err)
			}
			businessByUsername[username] = int(bid64)
		default:
			return fmt.Errorf("seed: user %q: invalid user_type %q", username, u.UserType)
		}
	}

	for i, p := range data.Packages {
		bid, ok := businessByUsername[p.OwnerUsername]
		if !ok {
			return fmt.Errorf("seed: package at index %d: unknown owner %q", i, p.OwnerUsername)
		}

		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("seed: package at index %d: name cannot be empty", i)
		}

		_, err := tx.Exec(
			`INSERT INTO packages (owner_bid, name, description, quantity, price, created, expires) VALUES (?, ?, ?, ?, ?, ?, ?);`,
			bid, p.Name, p.Description, p.Quantity, p.Price, time.Now().UTC(), p.Expires,
		)
		if err != nil {
			return fmt.Errorf("seed: insert package %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
