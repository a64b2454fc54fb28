// internal/directory/model.go
//
// Row models for the network and site tables.
//
// Schema reference
//
//	{prefix}site      (id PK, domain, path)
//	{prefix}sitemeta  (meta_id PK, site_id, meta_key, meta_value)
//	{prefix}blogs     (blog_id PK, site_id, domain, path, registered,
//	                   last_updated, public, archived, mature, spam,
//	                   deleted, lang_id)
//
// Notes
// -----
//   - The legacy column names are kept: `site` holds networks and `blogs`
//     holds sites, so `blogs.site_id` is the owning network.
//   - MainSiteID and SiteName are not columns; the directory fills them
//     from the blogs table and network meta when a Network is loaded.
//   - Oxford commas, two spaces after periods.
package directory

import (
	"github.com/stuttter/wp-multi-network-sub000/internal/address"
	"github.com/stuttter/wp-multi-network-sub000/internal/database"
)

// Network mirrors one row in the `site` table.
type Network struct {
	ID         int64  `db:"id"     json:"id"`
	Domain     string `db:"domain" json:"domain"`
	Path       string `db:"path"   json:"path"`
	MainSiteID int64  `db:"-"      json:"main_site_id"`
	SiteName   string `db:"-"      json:"site_name"`
}

// Address returns the network's (domain, path) pair.
func (n Network) Address() address.Address {
	return address.Address{Domain: n.Domain, Path: n.Path}
}

// Site mirrors one row in the `blogs` table.
type Site struct {
	ID          int64              `db:"blog_id"      json:"id"`
	NetworkID   int64              `db:"site_id"      json:"network_id"`
	Domain      string             `db:"domain"       json:"domain"`
	Path        string             `db:"path"         json:"path"`
	Registered  database.Timestamp `db:"registered"   json:"registered"`
	LastUpdated database.Timestamp `db:"last_updated" json:"last_updated"`
	Public      bool               `db:"public"       json:"public"`
	Archived    bool               `db:"archived"     json:"archived"`
	Mature      bool               `db:"mature"       json:"mature"`
	Spam        bool               `db:"spam"         json:"spam"`
	Deleted     bool               `db:"deleted"      json:"deleted"`
}

// Address returns the site's (domain, path) pair.
func (s Site) Address() address.Address {
	return address.Address{Domain: s.Domain, Path: s.Path}
}
