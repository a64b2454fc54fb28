// internal/directory/meta.go
//
// Network meta (the `sitemeta` table) and per-site options (the
// `options` tables).
//
// Context
// -------
// Both are plain key-value stores.  Network meta holds settings such as
// site_name, site_admins, and blog_count.  Each site owns a separate
// options table: `{prefix}options` for site 1 and `{prefix}{id}_options`
// for every other site.
//
// Notes
// -----
//   - Writes select the existing row id first, then UPDATE or INSERT.
//     MySQL reports zero affected rows for an UPDATE that changes nothing,
//     so "update, insert on miss" would duplicate rows.
//   - AllNetworkMeta keeps the first value when a key appears twice.
//   - Oxford commas, two spaces after periods.
package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

//
// Network meta
//

// NetworkMeta returns one meta value and whether it exists.
func (s *Store) NetworkMeta(ctx context.Context, networkID int64, key string) (string, bool, error) {
	q := `SELECT meta_value FROM ` + s.table("sitemeta") +
		` WHERE site_id = ? AND meta_key = ? ORDER BY meta_id LIMIT 1`
	var v sql.NullString
	err := sqlx.GetContext(ctx, s.q, &v, q, networkID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.String, true, nil
}

// AllNetworkMeta loads every meta pair of networkID.
func (s *Store) AllNetworkMeta(ctx context.Context, networkID int64) (map[string]string, error) {
	q := `SELECT meta_key, meta_value FROM ` + s.table("sitemeta") +
		` WHERE site_id = ? ORDER BY meta_id`
	rows := make([]struct {
		Key   sql.NullString `db:"meta_key"`
		Value sql.NullString `db:"meta_value"`
	}, 0, 16)
	if err := sqlx.SelectContext(ctx, s.q, &rows, q, networkID); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		if _, dup := out[r.Key.String]; !dup {
			out[r.Key.String] = r.Value.String
		}
	}
	return out, nil
}

// SetNetworkMeta creates or replaces one meta value.
func (s *Store) SetNetworkMeta(ctx context.Context, networkID int64, key, value string) error {
	table := s.table("sitemeta")
	var metaID int64
	err := sqlx.GetContext(ctx, s.q, &metaID,
		`SELECT meta_id FROM `+table+` WHERE site_id = ? AND meta_key = ? ORDER BY meta_id LIMIT 1`,
		networkID, key)
	switch {
	case err == nil:
		_, err = s.q.ExecContext(ctx,
			`UPDATE `+table+` SET meta_value = ? WHERE meta_id = ?`, value, metaID)
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO `+table+` (site_id, meta_key, meta_value) VALUES (?, ?, ?)`,
			networkID, key, value)
	}
	return err
}

// DeleteNetworkMeta removes every value stored under key.
func (s *Store) DeleteNetworkMeta(ctx context.Context, networkID int64, key string) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM `+s.table("sitemeta")+` WHERE site_id = ? AND meta_key = ?`, networkID, key)
	return err
}

//
// Site options
//

// OptionsTable names the options table of siteID.  Site ids start at 1;
// anything lower is a programming error.
func (s *Store) OptionsTable(siteID int64) string {
	if siteID < 1 {
		panic("directory: options table for site id " + strconv.FormatInt(siteID, 10))
	}
	if siteID == 1 {
		return s.table("options")
	}
	return s.prefix + strconv.FormatInt(siteID, 10) + "_options"
}

// CreateOptionsTable creates the options table of siteID if missing.
func (s *Store) CreateOptionsTable(ctx context.Context, siteID int64) error {
	_, err := s.q.ExecContext(ctx, s.dialect.OptionsTableDDL(s.OptionsTable(siteID)))
	return err
}

// DropOptionsTable drops the options table of siteID if present.
func (s *Store) DropOptionsTable(ctx context.Context, siteID int64) error {
	_, err := s.q.ExecContext(ctx, `DROP TABLE IF EXISTS `+s.OptionsTable(siteID))
	return err
}

// SiteOption returns one option value of siteID and whether it exists.
func (s *Store) SiteOption(ctx context.Context, siteID int64, name string) (string, bool, error) {
	q := `SELECT option_value FROM ` + s.OptionsTable(siteID) + ` WHERE option_name = ? LIMIT 1`
	var v string
	err := sqlx.GetContext(ctx, s.q, &v, q, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SiteOptions loads the named options of siteID.  Missing names are
// absent from the result.
func (s *Store) SiteOptions(ctx context.Context, siteID int64, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}
	q, args, err := sqlx.In(`SELECT option_name, option_value FROM `+s.OptionsTable(siteID)+
		` WHERE option_name IN (?)`, names)
	if err != nil {
		return nil, err
	}
	rows := make([]struct {
		Name  string `db:"option_name"`
		Value string `db:"option_value"`
	}, 0, len(names))
	if err := sqlx.SelectContext(ctx, s.q, &rows, s.q.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}

// SetSiteOption creates or replaces one option of siteID.
func (s *Store) SetSiteOption(ctx context.Context, siteID int64, name, value string) error {
	table := s.OptionsTable(siteID)
	var optionID int64
	err := sqlx.GetContext(ctx, s.q, &optionID,
		`SELECT option_id FROM `+table+` WHERE option_name = ? LIMIT 1`, name)
	switch {
	case err == nil:
		_, err = s.q.ExecContext(ctx,
			`UPDATE `+table+` SET option_value = ? WHERE option_id = ?`, value, optionID)
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO `+table+` (option_name, option_value, autoload) VALUES (?, ?, 'yes')`,
			name, value)
	}
	return err
}

// SiteAdmins decodes the site_admins meta value: a JSON list of logins.
// Older installs stored a comma list, which is accepted as well.
func SiteAdmins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
	}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EncodeSiteAdmins is the inverse of SiteAdmins.
func EncodeSiteAdmins(logins []string) string {
	if logins == nil {
		logins = []string{}
	}
	b, _ := json.Marshal(logins)
	return string(b)
}
