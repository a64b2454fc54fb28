// internal/acl/checker.go
//
// Permission checks for network management.
//
// Context
// -------
// Every front end asks one question: may actor X perform action A on
// network N?  Two roles answer it, both derived from the `site_admins`
// network meta:
//
//	super admin    login listed in the main network's site_admins
//	network admin  login listed in network N's site_admins
//
// Super admins may do everything.  Network admins may view and edit their
// own network, nothing else.
//
// Notes
// -----
// • Unknown actors are denied, not errors.
// • Oxford commas, two spaces after periods.
package acl

import (
	"context"
	"errors"

	"github.com/stuttter/wp-multi-network-sub000/internal/users"
)

// Action names a guarded operation.
type Action string

const (
	ListNetworks       Action = "list_networks"
	ViewNetwork        Action = "view_network"
	CreateNetwork      Action = "create_network"
	EditNetwork        Action = "edit_network"
	DeleteNetwork      Action = "delete_network"
	ManageNetworkSites Action = "manage_network_sites"
)

// networkAdminActions are open to a network's own admins.
var networkAdminActions = map[Action]struct{}{
	ViewNetwork: {},
	EditNetwork: {},
}

// Directory supplies the admin lists.
type Directory interface {
	MainNetworkID(ctx context.Context) (int64, error)
	SiteAdmins(ctx context.Context, networkID int64) ([]string, error)
}

// Users resolves actor ids to logins.
type Users interface {
	ByID(ctx context.Context, id int64) (*users.User, error)
}

// Checker answers permission questions.
type Checker struct {
	dir   Directory
	users Users
}

// NewChecker returns a Checker.
func NewChecker(dir Directory, u Users) *Checker {
	return &Checker{dir: dir, users: u}
}

// Allowed reports whether actor may perform action on networkID.
// networkID is ignored for actions that are not network-scoped.
func (c *Checker) Allowed(ctx context.Context, actor int64, action Action, networkID int64) (bool, error) {
	u, err := c.users.ByID(ctx, actor)
	if errors.Is(err, users.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	super, err := c.IsSuperAdmin(ctx, u.Login)
	if err != nil || super {
		return super, err
	}

	if _, ok := networkAdminActions[action]; !ok || networkID <= 0 {
		return false, nil
	}
	admins, err := c.dir.SiteAdmins(ctx, networkID)
	if err != nil {
		return false, err
	}
	return contains(admins, u.Login), nil
}

// IsSuperAdmin reports whether login administers the main network.
func (c *Checker) IsSuperAdmin(ctx context.Context, login string) (bool, error) {
	mainID, err := c.dir.MainNetworkID(ctx)
	if err != nil {
		return false, err
	}
	admins, err := c.dir.SiteAdmins(ctx, mainID)
	if err != nil {
		return false, err
	}
	return contains(admins, login), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
