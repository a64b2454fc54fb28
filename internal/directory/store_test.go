// internal/directory/store_test.go
//
// Store behaviour against an in-memory SQLite install, plus sqlmock
// checks for the exact SQL that MySQL sees.
//
// Run: go test ./internal/directory -v

package directory

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/stuttter/wp-multi-network-sub000/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Install(ctx, db, database.SQLite, "wp_"); err != nil {
		t.Fatalf("install: %v", err)
	}
	return NewStore(db, database.SQLite, "wp_")
}

// seedNetwork inserts a network plus its root site and returns both ids.
func seedNetwork(t *testing.T, s *Store, domain, path string) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	nid, err := s.InsertNetwork(ctx, domain, path)
	if err != nil {
		t.Fatalf("insert network: %v", err)
	}
	sid, err := s.InsertSite(ctx, &Site{NetworkID: nid, Domain: domain, Path: path, Public: true})
	if err != nil {
		t.Fatalf("insert site: %v", err)
	}
	return nid, sid
}

func TestNetworkRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, _ := seedNetwork(t, s, "example.com", "/")
	got, err := s.Network(ctx, id)
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if got.Domain != "example.com" || got.Path != "/" {
		t.Fatalf("unexpected network %+v", got)
	}

	byAddr, err := s.NetworkByAddress(ctx, "example.com", "/")
	if err != nil || byAddr.ID != id {
		t.Fatalf("NetworkByAddress = %+v, %v", byAddr, err)
	}

	if err := s.UpdateNetworkAddress(ctx, id, "example.org", "/x/"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Network(ctx, id)
	if got.Domain != "example.org" || got.Path != "/x/" {
		t.Fatalf("update lost: %+v", got)
	}

	if err := s.DeleteNetwork(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Network(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteNetwork(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestMainNetworkID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.MainNetworkID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty table err = %v", err)
	}
	a, _ := seedNetwork(t, s, "a.test", "/")
	b, _ := seedNetwork(t, s, "b.test", "/")

	if got, _ := s.MainNetworkID(ctx, b); got != b {
		t.Fatalf("preferred existing: got %d want %d", got, b)
	}
	if got, _ := s.MainNetworkID(ctx, 99); got != a {
		t.Fatalf("fallback: got %d want %d", got, a)
	}
}

func TestMainSiteIDFallsBackToMeta(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	nid, sid := seedNetwork(t, s, "example.com", "/")
	n, _ := s.Network(ctx, nid)
	if got, err := s.MainSiteID(ctx, *n); err != nil || got != sid {
		t.Fatalf("MainSiteID = %d, %v; want %d", got, err, sid)
	}

	// Network moved without its root site: only the meta value is left.
	_ = s.UpdateNetworkAddress(ctx, nid, "moved.test", "/")
	n, _ = s.Network(ctx, nid)
	if _, err := s.MainSiteID(ctx, *n); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no meta: err = %v", err)
	}
	_ = s.SetNetworkMeta(ctx, nid, "main_site", "7")
	if got, _ := s.MainSiteID(ctx, *n); got != 7 {
		t.Fatalf("meta fallback = %d", got)
	}
}

func TestNetworkMetaUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.NetworkMeta(ctx, 1, "site_name"); ok || err != nil {
		t.Fatalf("missing meta: ok=%v err=%v", ok, err)
	}
	for _, v := range []string{"One", "Two", "Two"} {
		if err := s.SetNetworkMeta(ctx, 1, "site_name", v); err != nil {
			t.Fatalf("set %q: %v", v, err)
		}
	}
	all, err := s.AllNetworkMeta(ctx, 1)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all["site_name"] != "Two" {
		t.Fatalf("unexpected meta %#v", all)
	}

	var rows int
	_ = s.db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM wp_sitemeta`)
	if rows != 1 {
		t.Fatalf("upsert left %d rows", rows)
	}

	_ = s.DeleteNetworkMeta(ctx, 1, "site_name")
	if _, ok, _ := s.NetworkMeta(ctx, 1, "site_name"); ok {
		t.Fatal("meta survived delete")
	}
}

func TestSiteOptions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if s.OptionsTable(1) != "wp_options" || s.OptionsTable(12) != "wp_12_options" {
		t.Fatalf("unexpected table names %q %q", s.OptionsTable(1), s.OptionsTable(12))
	}
	if err := s.CreateOptionsTable(ctx, 2); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = s.SetSiteOption(ctx, 2, "siteurl", "http://a.test/")
	_ = s.SetSiteOption(ctx, 2, "siteurl", "http://b.test/")
	_ = s.SetSiteOption(ctx, 2, "home", "http://b.test/")

	v, ok, err := s.SiteOption(ctx, 2, "siteurl")
	if err != nil || !ok || v != "http://b.test/" {
		t.Fatalf("SiteOption = %q %v %v", v, ok, err)
	}
	got, err := s.SiteOptions(ctx, 2, []string{"siteurl", "home", "missing"})
	if err != nil {
		t.Fatalf("SiteOptions: %v", err)
	}
	if len(got) != 2 || got["home"] != "http://b.test/" {
		t.Fatalf("unexpected options %#v", got)
	}

	if err := s.DropOptionsTable(ctx, 2); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, _, err := s.SiteOption(ctx, 2, "siteurl"); err == nil {
		t.Fatal("expected error reading a dropped table")
	}
}

func TestOptionsTablePanicsBelowOne(t *testing.T) {
	s := &Store{prefix: "wp_"}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for site id 0")
		}
	}()
	s.OptionsTable(0)
}

func TestTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, _ := seedNetwork(t, s, "example.com", "/")

	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx *Store) error {
		if err := tx.UpdateNetworkAddress(ctx, id, "changed.test", "/"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx err = %v", err)
	}
	n, _ := s.Network(ctx, id)
	if n.Domain != "example.com" {
		t.Fatalf("rollback lost: %+v", n)
	}
}

func TestSitesAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	nid, root := seedNetwork(t, s, "example.com", "/")
	child, _ := s.InsertSite(ctx, &Site{NetworkID: nid, Domain: "example.com", Path: "/blog/"})
	_, _ = s.InsertSite(ctx, &Site{NetworkID: nid, Domain: "example.com", Path: "/spam/", Spam: true})

	sites, err := s.SitesByNetwork(ctx, nid)
	if err != nil || len(sites) != 3 || sites[0].ID != root {
		t.Fatalf("SitesByNetwork = %+v, %v", sites, err)
	}
	if n, _ := s.CountSites(ctx, nid); n != 2 {
		t.Fatalf("CountSites = %d, want 2", n)
	}

	if err := s.SetSiteNetwork(ctx, child, 42); err != nil {
		t.Fatalf("SetSiteNetwork: %v", err)
	}
	got, _ := s.Site(ctx, child)
	if got.NetworkID != 42 || got.Registered.IsZero() {
		t.Fatalf("unexpected site %+v", got)
	}
	byAddr, err := s.SiteByAddress(ctx, "example.com", "/blog/")
	if err != nil || byAddr.ID != child {
		t.Fatalf("SiteByAddress = %+v, %v", byAddr, err)
	}
	_ = s.DeleteSite(ctx, child)
	if _, err := s.Site(ctx, child); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted site err = %v", err)
	}
}

func TestNetworksQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a, _ := seedNetwork(t, s, "alpha.test", "/")
	b, _ := seedNetwork(t, s, "beta.test", "/")
	c, _ := seedNetwork(t, s, "gamma.test", "/sub/")

	cases := []struct {
		name string
		q    Query
		want []int64
	}{
		{"all", Query{}, []int64{a, b, c}},
		{"search", Query{Search: "ta.t"}, []int64{b}},
		{"search path", Query{Search: "sub"}, []int64{c}},
		{"include", Query{Include: []int64{a, c}}, []int64{a, c}},
		{"exclude", Query{Exclude: []int64{a}}, []int64{b, c}},
		{"desc", Query{OrderBy: "domain", Order: "desc"}, []int64{c, b, a}},
		{"page 2", Query{PerPage: 2, Page: 2}, []int64{c}},
		{"bad order column", Query{OrderBy: "1; DROP"}, []int64{a, b, c}},
		{"like wildcard is literal", Query{Search: "%"}, nil},
	}
	for _, tc := range cases {
		got, err := s.Networks(ctx, tc.q)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %d rows, want %d", tc.name, len(got), len(tc.want))
		}
		for i := range got {
			if got[i].ID != tc.want[i] {
				t.Fatalf("%s: row %d id %d, want %d", tc.name, i, got[i].ID, tc.want[i])
			}
		}
	}

	if n, _ := s.CountNetworks(ctx, Query{PerPage: 1, Search: "test"}); n != 3 {
		t.Fatalf("CountNetworks ignores paging: got %d", n)
	}
}

func TestNetworkSQLMock(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	s := NewStore(sqlx.NewDb(raw, "mysql"), database.MySQL, "wp_")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, domain, path FROM wp_site WHERE id = ? LIMIT 1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "domain", "path"}).AddRow(3, "example.com", "/"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT meta_id FROM wp_sitemeta WHERE site_id = ? AND meta_key = ?`)).
		WithArgs(int64(3), "blog_count").
		WillReturnRows(sqlmock.NewRows([]string{"meta_id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wp_sitemeta SET meta_value = ? WHERE meta_id = ?`)).
		WithArgs("4", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0)) // unchanged value: zero rows affected

	n, err := s.Network(context.Background(), 3)
	if err != nil || n.Domain != "example.com" {
		t.Fatalf("Network = %+v, %v", n, err)
	}
	if err := s.SetNetworkMeta(context.Background(), 3, "blog_count", "4"); err != nil {
		t.Fatalf("SetNetworkMeta: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSiteAdminsCodec(t *testing.T) {
	if got := SiteAdmins(`["admin","ops"]`); len(got) != 2 || got[1] != "ops" {
		t.Fatalf("json form: %#v", got)
	}
	if got := SiteAdmins("admin, ops ,"); len(got) != 2 || got[0] != "admin" {
		t.Fatalf("comma form: %#v", got)
	}
	if SiteAdmins("") != nil {
		t.Fatal("empty should decode to nil")
	}
	if EncodeSiteAdmins(nil) != "[]" {
		t.Fatalf("EncodeSiteAdmins(nil) = %q", EncodeSiteAdmins(nil))
	}
}
