// internal/users/store.go
//
// Read and insert helpers for the `users` table.
//
// Context
// -------
// The network manager never authenticates against this table; it only
// needs to know whether a user exists, what their login is (for the
// site_admins list), and their email (for admin_email).  `wpmn install`
// and the tests insert the first accounts.
//
// Notes
// -----
//   - Logins are unique by convention, not by constraint; ByLogin returns
//     the lowest id.
//   - Oxford commas, two spaces after periods.
package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/stuttter/wp-multi-network-sub000/internal/database"
)

// ErrNotFound is returned when no user matches.
var ErrNotFound = errors.New("users: not found")

// User mirrors one row in the `users` table.
type User struct {
	ID          int64              `db:"ID"              json:"id"`
	Login       string             `db:"user_login"      json:"login"`
	Email       string             `db:"user_email"      json:"email"`
	DisplayName string             `db:"display_name"    json:"display_name"`
	Registered  database.Timestamp `db:"user_registered" json:"registered"`
}

// Store reads and writes users.
type Store struct {
	db     sqlx.ExtContext
	prefix string
}

// NewStore returns a Store over db with the given table prefix.
func NewStore(db sqlx.ExtContext, prefix string) *Store {
	return &Store{db: db, prefix: prefix}
}

const columns = `ID, user_login, user_email, display_name, user_registered`

// ByID fetches one user.
func (s *Store) ByID(ctx context.Context, id int64) (*User, error) {
	q := `SELECT ` + columns + ` FROM ` + s.prefix + `users WHERE ID = ? LIMIT 1`
	var u User
	if err := sqlx.GetContext(ctx, s.db, &u, q, id); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ByLogin fetches one user by login name.
func (s *Store) ByLogin(ctx context.Context, login string) (*User, error) {
	q := `SELECT ` + columns + ` FROM ` + s.prefix + `users WHERE user_login = ? ORDER BY ID LIMIT 1`
	var u User
	if err := sqlx.GetContext(ctx, s.db, &u, q, login); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Exists reports whether user id is present.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, s.db, &n, `SELECT COUNT(*) FROM `+s.prefix+`users WHERE ID = ?`, id)
	return n > 0, err
}

// LoginExists reports whether any user has login.
func (s *Store) LoginExists(ctx context.Context, login string) (bool, error) {
	_, err := s.ByLogin(ctx, login)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, err
}

// Create inserts u and sets its ID.
func (s *Store) Create(ctx context.Context, u *User) error {
	if u.Registered.IsZero() {
		u.Registered = database.Now()
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Login
	}
	q := `INSERT INTO ` + s.prefix + `users (user_login, user_email, display_name, user_registered)
	      VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, u.Login, u.Email, u.DisplayName, u.Registered)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
