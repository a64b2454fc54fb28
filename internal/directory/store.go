// internal/directory/store.go
//
// Network and site persistence.
//
// Context
// -------
// Store is the only code that touches the network tables.  Every method
// runs one or two parameterised statements against whatever sqlx handle
// the Store wraps, which is either the pool or a transaction opened by
// Tx.  Queries use `?` placeholders and portable syntax so the same text
// runs on MySQL and SQLite.
//
// Workflow
// --------
//  1. main.go (or a test) builds one Store over the shared pool.
//  2. Read paths call it directly, or through the Cache.
//  3. Multi-row mutations call Tx and use the Store handed to the
//     callback; it is bound to the open transaction.
//
// Notes
// -----
//   - Lookups that find nothing return ErrNotFound, never sql.ErrNoRows.
//   - Results are fully read before the next statement runs.  SQLite
//     pools are capped at one connection, so a live *sql.Rows would
//     otherwise block its own follow-up query.
//   - Oxford commas, two spaces after periods.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/stuttter/wp-multi-network-sub000/internal/database"
)

// ErrNotFound is returned when a network, site, or meta row is absent.
var ErrNotFound = errors.New("directory: not found")

// Store wraps a pool or a transaction plus the table prefix.
type Store struct {
	q       sqlx.ExtContext
	db      *sqlx.DB // nil when q is a transaction
	dialect database.Dialect
	prefix  string
}

// NewStore returns a Store over db.
func NewStore(db *sqlx.DB, d database.Dialect, prefix string) *Store {
	return &Store{q: db, db: db, dialect: d, prefix: prefix}
}

// Dialect reports the SQL engine in use.
func (s *Store) Dialect() database.Dialect { return s.dialect }

// Prefix reports the table prefix.
func (s *Store) Prefix() string { return s.prefix }

// Tx runs fn inside one transaction.  fn receives a Store bound to the
// transaction; returning an error rolls everything back.  Calling Tx on a
// Store that is already transactional simply runs fn on it.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("directory: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&Store{q: tx, dialect: s.dialect, prefix: s.prefix}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("directory: commit: %w", err)
	}
	return nil
}

func (s *Store) table(name string) string { return s.prefix + name }

//
// Networks
//

// Network fetches one network row by id.
func (s *Store) Network(ctx context.Context, id int64) (*Network, error) {
	q := `SELECT id, domain, path FROM ` + s.table("site") + ` WHERE id = ? LIMIT 1`
	var n Network
	if err := sqlx.GetContext(ctx, s.q, &n, q, id); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// NetworkByAddress fetches the lowest-id network at domain+path.
func (s *Store) NetworkByAddress(ctx context.Context, domain, path string) (*Network, error) {
	q := `SELECT id, domain, path FROM ` + s.table("site") +
		` WHERE domain = ? AND path = ? ORDER BY id LIMIT 1`
	var n Network
	if err := sqlx.GetContext(ctx, s.q, &n, q, domain, path); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// InsertNetwork stores a new network row and returns its id.
func (s *Store) InsertNetwork(ctx context.Context, domain, path string) (int64, error) {
	q := `INSERT INTO ` + s.table("site") + ` (domain, path) VALUES (?, ?)`
	res, err := s.q.ExecContext(ctx, q, domain, path)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateNetworkAddress changes the domain and path of network id.
func (s *Store) UpdateNetworkAddress(ctx context.Context, id int64, domain, path string) error {
	q := `UPDATE ` + s.table("site") + ` SET domain = ?, path = ? WHERE id = ?`
	_, err := s.q.ExecContext(ctx, q, domain, path, id)
	return err
}

// DeleteNetwork removes the network row and all of its meta.
func (s *Store) DeleteNetwork(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM `+s.table("sitemeta")+` WHERE site_id = ?`, id); err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM `+s.table("site")+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MainNetworkID returns preferred when that network exists, otherwise the
// lowest network id.  ErrNotFound means the table is empty.
func (s *Store) MainNetworkID(ctx context.Context, preferred int64) (int64, error) {
	if preferred > 0 {
		if _, err := s.Network(ctx, preferred); err == nil {
			return preferred, nil
		} else if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
	}
	var id sql.NullInt64
	if err := sqlx.GetContext(ctx, s.q, &id, `SELECT MIN(id) FROM `+s.table("site")); err != nil {
		return 0, err
	}
	if !id.Valid {
		return 0, ErrNotFound
	}
	return id.Int64, nil
}

//
// Sites
//

const siteColumns = `blog_id, site_id, domain, path, registered, last_updated,
	public, archived, mature, spam, deleted`

// Site fetches one site row by id.
func (s *Store) Site(ctx context.Context, id int64) (*Site, error) {
	q := `SELECT ` + siteColumns + ` FROM ` + s.table("blogs") + ` WHERE blog_id = ? LIMIT 1`
	var site Site
	if err := sqlx.GetContext(ctx, s.q, &site, q, id); err != nil {
		return nil, notFound(err)
	}
	return &site, nil
}

// SiteByAddress fetches the site at domain+path, on any network.
func (s *Store) SiteByAddress(ctx context.Context, domain, path string) (*Site, error) {
	q := `SELECT ` + siteColumns + ` FROM ` + s.table("blogs") +
		` WHERE domain = ? AND path = ? ORDER BY blog_id LIMIT 1`
	var site Site
	if err := sqlx.GetContext(ctx, s.q, &site, q, domain, path); err != nil {
		return nil, notFound(err)
	}
	return &site, nil
}

// SitesByNetwork lists every site owned by networkID, oldest first.
func (s *Store) SitesByNetwork(ctx context.Context, networkID int64) ([]Site, error) {
	q := `SELECT ` + siteColumns + ` FROM ` + s.table("blogs") +
		` WHERE site_id = ? ORDER BY blog_id`
	sites := make([]Site, 0, 8)
	if err := sqlx.SelectContext(ctx, s.q, &sites, q, networkID); err != nil {
		return nil, err
	}
	return sites, nil
}

// CountSites counts the live sites of networkID: not spam, not deleted,
// and not archived.
func (s *Store) CountSites(ctx context.Context, networkID int64) (int64, error) {
	q := `SELECT COUNT(*) FROM ` + s.table("blogs") +
		` WHERE site_id = ? AND spam = 0 AND deleted = 0 AND archived = 0`
	var n int64
	err := sqlx.GetContext(ctx, s.q, &n, q, networkID)
	return n, err
}

// InsertSite stores a new site row and returns its id.  Registered and
// LastUpdated default to now when zero.
func (s *Store) InsertSite(ctx context.Context, site *Site) (int64, error) {
	if site.Registered.IsZero() {
		site.Registered = database.Now()
	}
	if site.LastUpdated.IsZero() {
		site.LastUpdated = site.Registered
	}
	q := `INSERT INTO ` + s.table("blogs") + `
	        (site_id, domain, path, registered, last_updated,
	         public, archived, mature, spam, deleted)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q,
		site.NetworkID, site.Domain, site.Path, site.Registered, site.LastUpdated,
		site.Public, site.Archived, site.Mature, site.Spam, site.Deleted)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	site.ID = id
	return id, nil
}

// UpdateSiteAddress changes the domain and path of site id.
func (s *Store) UpdateSiteAddress(ctx context.Context, id int64, domain, path string) error {
	q := `UPDATE ` + s.table("blogs") + ` SET domain = ?, path = ?, last_updated = ? WHERE blog_id = ?`
	_, err := s.q.ExecContext(ctx, q, domain, path, database.Now(), id)
	return err
}

// SetSiteNetwork re-parents site id onto networkID.
func (s *Store) SetSiteNetwork(ctx context.Context, id, networkID int64) error {
	q := `UPDATE ` + s.table("blogs") + ` SET site_id = ?, last_updated = ? WHERE blog_id = ?`
	_, err := s.q.ExecContext(ctx, q, networkID, database.Now(), id)
	return err
}

// DeleteSite removes the site row.
func (s *Store) DeleteSite(ctx context.Context, id int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM `+s.table("blogs")+` WHERE blog_id = ?`, id)
	return err
}

// MainSiteID resolves the main site of n: the site at the network's own
// address, falling back to the `main_site` meta value.
func (s *Store) MainSiteID(ctx context.Context, n Network) (int64, error) {
	q := `SELECT blog_id FROM ` + s.table("blogs") +
		` WHERE site_id = ? AND domain = ? AND path = ? ORDER BY blog_id LIMIT 1`
	var id int64
	err := sqlx.GetContext(ctx, s.q, &id, q, n.ID, n.Domain, n.Path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	v, ok, err := s.NetworkMeta(ctx, n.ID, "main_site")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	var metaID int64
	if _, err := fmt.Sscan(v, &metaID); err != nil || metaID < 1 {
		return 0, ErrNotFound
	}
	return metaID, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
