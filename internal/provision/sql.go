// internal/provision/sql.go
//
// Site provisioning against the shared database.
//
// Context
// -------
// Creating a network needs a root site, and deleting one may need to
// delete sites.  Both go through SQL so the network package never writes
// blogs rows or options tables itself.  A site is a `blogs` row plus its
// own options table seeded with the handful of values every site reads
// on boot.
//
// Workflow
// --------
//  1. CreateSite refuses an address that is already taken.
//  2. It inserts the blogs row, then creates the options table, then
//     seeds the options.
//  3. DeleteSite drops the options table, then the blogs row.
//
// Notes
// -----
//   - DDL cannot share a transaction with DML on MySQL (implicit commit),
//     so neither routine runs in one.  A failure part-way leaves what was
//     already written; the error says which step failed.
//   - Oxford commas, two spaces after periods.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stuttter/wp-multi-network-sub000/internal/address"
	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
)

// ErrSiteExists is returned when a site already occupies the address.
var ErrSiteExists = errors.New("provision: site already exists at that address")

// SiteRequest describes a site to create.
type SiteRequest struct {
	NetworkID  int64
	Domain     string
	Path       string
	Title      string
	UserID     int64
	AdminEmail string
	Scheme     string // http or https; defaults to http
	Private    bool
}

// SQL provisions sites through a directory Store.
type SQL struct {
	store *directory.Store
}

// NewSQL returns a provisioner over store.
func NewSQL(store *directory.Store) *SQL { return &SQL{store: store} }

// CreateSite creates the site described by req and returns its id.
func (p *SQL) CreateSite(ctx context.Context, req SiteRequest) (int64, error) {
	if _, err := p.store.SiteByAddress(ctx, req.Domain, req.Path); err == nil {
		return 0, ErrSiteExists
	} else if !errors.Is(err, directory.ErrNotFound) {
		return 0, fmt.Errorf("provision: lookup: %w", err)
	}

	site := &directory.Site{
		NetworkID: req.NetworkID,
		Domain:    req.Domain,
		Path:      req.Path,
		Public:    !req.Private,
	}
	id, err := p.store.InsertSite(ctx, site)
	if err != nil {
		return 0, fmt.Errorf("provision: insert site: %w", err)
	}
	if err := p.store.CreateOptionsTable(ctx, id); err != nil {
		return id, fmt.Errorf("provision: options table for site %d: %w", id, err)
	}

	scheme := req.Scheme
	if scheme == "" {
		scheme = "http"
	}
	url := address.SiteURL(scheme, site.Address())
	public := "1"
	if req.Private {
		public = "0"
	}
	seed := [][2]string{
		{"siteurl", url},
		{"home", url},
		{"blogname", req.Title},
		{"admin_email", req.AdminEmail},
		{"blog_public", public},
	}
	for _, kv := range seed {
		if err := p.store.SetSiteOption(ctx, id, kv[0], kv[1]); err != nil {
			return id, fmt.Errorf("provision: seed %s for site %d: %w", kv[0], id, err)
		}
	}
	return id, nil
}

// DeleteSite removes site id permanently.
func (p *SQL) DeleteSite(ctx context.Context, id int64) error {
	if err := p.store.DropOptionsTable(ctx, id); err != nil {
		return fmt.Errorf("provision: drop options for site %d: %w", id, err)
	}
	if err := p.store.DeleteSite(ctx, id); err != nil {
		return fmt.Errorf("provision: delete site %d: %w", id, err)
	}
	return nil
}

// UploadPath is the relative upload directory of site id when
// ms_files_rewriting is off.
func UploadPath(id int64) string {
	if id == 1 {
		return "wp-content/uploads"
	}
	return "wp-content/uploads/sites/" + strconv.FormatInt(id, 10)
}
