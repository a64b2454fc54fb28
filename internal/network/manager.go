// internal/network/manager.go
//
// Network CRUD core.
//
// Context
// -------
// Manager is the single entry point for creating, updating, deleting, and
// reading networks, and for moving sites between them.  The REST API and
// the CLI both call it; neither touches the directory Store directly.
//
// Workflow
// --------
// Every mutation follows the same shape:
//
//  1. Resolve and validate input (NotFound, Validation, Conflict,
//     Precondition errors return before anything is written).
//  2. Write.  Update and MoveSite write inside one Store.Tx; Create and
//     Delete cannot, because provisioning issues DDL.
//  3. Invalidate the directory Cache for every touched network and site.
//  4. Emit the lifecycle event on the hooks Bus.
//
// Notes
// -----
//   - Log lines come from logger.FromContext so API requests carry their
//     request id.
//   - Oxford commas, two spaces after periods.
package network

import (
	"context"
	"errors"

	"github.com/stuttter/wp-multi-network-sub000/internal/address"
	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
	"github.com/stuttter/wp-multi-network-sub000/internal/provision"
	"github.com/stuttter/wp-multi-network-sub000/internal/scope"
	"github.com/stuttter/wp-multi-network-sub000/internal/users"
)

// URLOptions are the site options whose values embed the site address.
var URLOptions = []string{"siteurl", "home", "fileupload_url", "upload_url_path"}

// DefaultOptionsToClone is used when a clone source is named without an
// option list and the deployment configures none.
var DefaultOptionsToClone = []string{
	"allowed_themes",
	"allowedthemes",
	"banned_email_domains",
	"blog_upload_space",
	"first_post",
	"fileupload_maxk",
	"illegal_names",
	"limited_email_domains",
	"ms_files_rewriting",
	"registration",
	"upload_filetypes",
	"upload_space_check_disabled",
	"welcome_email",
}

// Provisioner creates and removes sites.
type Provisioner interface {
	CreateSite(ctx context.Context, req provision.SiteRequest) (int64, error)
	DeleteSite(ctx context.Context, id int64) error
}

// Users resolves the owning user of a new network.
type Users interface {
	ByID(ctx context.Context, id int64) (*users.User, error)
	LoginExists(ctx context.Context, login string) (bool, error)
}

// Policy carries the deployment choices the CRUD core honours.
type Policy struct {
	MainNetworkID       int64    // preferred main network; the lowest id is used when absent
	Scheme              string   // http or https, used for siteurl values
	RescueOrphanedSites bool     // park sites in network 0 instead of deleting them
	OptionsToClone      []string // default clone list
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Store       *directory.Store
	Cache       *directory.Cache
	Users       Users
	Provisioner Provisioner
	Bus         *hooks.Bus
	Policy      Policy
}

// Manager runs network operations.
type Manager struct {
	store  *directory.Store
	cache  *directory.Cache
	users  Users
	prov   Provisioner
	bus    *hooks.Bus
	policy Policy
}

// New returns a Manager.  A nil Bus is allowed and drops every event.
func New(d Deps) *Manager {
	if d.Policy.Scheme == "" {
		d.Policy.Scheme = "http"
	}
	return &Manager{
		store:  d.Store,
		cache:  d.Cache,
		users:  d.Users,
		prov:   d.Provisioner,
		bus:    d.Bus,
		policy: d.Policy,
	}
}

// Bus exposes the event bus so front ends can subscribe.
func (m *Manager) Bus() *hooks.Bus { return m.bus }

// MainNetworkID resolves the main network.
func (m *Manager) MainNetworkID(ctx context.Context) (int64, error) {
	id, err := m.store.MainNetworkID(ctx, m.policy.MainNetworkID)
	if errors.Is(err, directory.ErrNotFound) {
		return 0, ErrNetworkNotFound
	}
	if err != nil {
		return 0, persist("main network", err)
	}
	return id, nil
}

// Stack returns the context switch stack of ctx, or a new one starting at
// the main network when ctx carries none.
func (m *Manager) Stack(ctx context.Context) *scope.Stack {
	if s := scope.FromContext(ctx); s != nil {
		return s
	}
	start := directory.Network{}
	if id, err := m.MainNetworkID(ctx); err == nil {
		if n, err := m.cache.Network(ctx, id); err == nil {
			start = *n
		} else {
			start.ID = id
		}
	}
	return scope.New(m.cache, m.cache, m.bus, start)
}

//
// Readers
//

// Network returns one network with its main site and name populated.
func (m *Manager) Network(ctx context.Context, id int64) (*directory.Network, error) {
	n, err := m.cache.Network(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrNetworkNotFound
	}
	if err != nil {
		return nil, persist("load network", err)
	}
	return n, nil
}

// List returns the networks matching q and the total ignoring paging.
func (m *Manager) List(ctx context.Context, q directory.Query) ([]directory.Network, int64, error) {
	total, err := m.store.CountNetworks(ctx, q)
	if err != nil {
		return nil, 0, persist("count networks", err)
	}
	rows, err := m.store.Networks(ctx, q)
	if err != nil {
		return nil, 0, persist("list networks", err)
	}
	for i := range rows {
		if err := m.cache.Populate(ctx, &rows[i]); err != nil {
			return nil, 0, persist("populate network", err)
		}
	}
	return rows, total, nil
}

// Sites lists the sites of networkID.  Network 0 lists rescued orphans.
func (m *Manager) Sites(ctx context.Context, networkID int64) ([]directory.Site, error) {
	if networkID != 0 {
		if _, err := m.Network(ctx, networkID); err != nil {
			return nil, err
		}
	}
	sites, err := m.store.SitesByNetwork(ctx, networkID)
	if err != nil {
		return nil, persist("list sites", err)
	}
	return sites, nil
}

// Site returns one site.
func (m *Manager) Site(ctx context.Context, id int64) (*directory.Site, error) {
	s, err := m.cache.Site(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, persist("load site", err)
	}
	return s, nil
}

// SiteAdmins returns the admin logins of networkID.
func (m *Manager) SiteAdmins(ctx context.Context, networkID int64) ([]string, error) {
	raw, _, err := m.store.NetworkMeta(ctx, networkID, "site_admins")
	if err != nil {
		return nil, persist("load site_admins", err)
	}
	return directory.SiteAdmins(raw), nil
}

//
// Internal helpers
//

// forget drops networks and sites from the cache and announces it.
func (m *Manager) forget(ctx context.Context, networkIDs []int64, siteIDs []int64) {
	for _, id := range networkIDs {
		m.cache.ForgetNetwork(ctx, id)
		m.bus.Emit(ctx, hooks.CleanNetworkCache, id)
	}
	for _, id := range siteIDs {
		m.cache.ForgetSite(ctx, id)
		m.bus.Emit(ctx, hooks.CleanSiteCache, id)
	}
}

// rewriteSite moves one site from its old address to a new one inside a
// transaction: the blogs row, then every URL option that points at the
// old address.
func rewriteSite(ctx context.Context, tx *directory.Store, site directory.Site, dest address.Address) error {
	from := site.Address()
	if from == dest {
		return nil
	}
	if err := tx.UpdateSiteAddress(ctx, site.ID, dest.Domain, dest.Path); err != nil {
		return err
	}
	opts, err := tx.SiteOptions(ctx, site.ID, URLOptions)
	if err != nil {
		return err
	}
	for _, name := range URLOptions {
		v, ok := opts[name]
		if !ok {
			continue
		}
		if nv, changed := address.RewriteURL(v, from, dest); changed {
			if err := tx.SetSiteOption(ctx, site.ID, name, nv); err != nil {
				return err
			}
		}
	}
	return nil
}
