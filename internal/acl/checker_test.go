// internal/acl/checker_test.go
//
// Checker decisions with users served through sqlmock, plus the chi
// middleware status codes.
//
// Run: go test ./internal/acl -v

package acl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/stuttter/wp-multi-network-sub000/internal/auth"
	"github.com/stuttter/wp-multi-network-sub000/internal/users"
)

type fakeDirectory struct {
	main   int64
	admins map[int64][]string
}

func (f fakeDirectory) MainNetworkID(context.Context) (int64, error) { return f.main, nil }
func (f fakeDirectory) SiteAdmins(_ context.Context, id int64) ([]string, error) {
	return f.admins[id], nil
}

var dir = fakeDirectory{
	main: 1,
	admins: map[int64][]string{
		1: {"root"},
		2: {"alice"},
	},
}

const byIDQuery = `SELECT ID, user_login, user_email, display_name, user_registered FROM wp_users WHERE ID = ? LIMIT 1`

func expectUser(mock sqlmock.Sqlmock, id int64, login string) {
	mock.ExpectQuery(regexp.QuoteMeta(byIDQuery)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "user_login", "user_email", "display_name", "user_registered"}).
			AddRow(id, login, login+"@example.com", login, "2024-01-01 00:00:00"))
}

func newChecker(t *testing.T) (*Checker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChecker(dir, users.NewStore(sqlx.NewDb(db, "mysql"), "wp_")), mock
}

func TestAllowed(t *testing.T) {
	c, mock := newChecker(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		id      int64
		login   string
		action  Action
		network int64
		want    bool
	}{
		{"super admin deletes", 1, "root", DeleteNetwork, 2, true},
		{"super admin moves sites", 1, "root", ManageNetworkSites, 0, true},
		{"network admin edits own", 2, "alice", EditNetwork, 2, true},
		{"network admin views own", 2, "alice", ViewNetwork, 2, true},
		{"network admin edits other", 2, "alice", EditNetwork, 1, false},
		{"network admin deletes own", 2, "alice", DeleteNetwork, 2, false},
		{"network admin creates", 2, "alice", CreateNetwork, 0, false},
		{"stranger lists", 3, "bob", ListNetworks, 0, false},
	}
	for _, tc := range cases {
		expectUser(mock, tc.id, tc.login)
		got, err := c.Allowed(ctx, tc.id, tc.action, tc.network)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: Allowed = %v, want %v", tc.name, got, tc.want)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAllowedUnknownUser(t *testing.T) {
	c, mock := newChecker(t)
	mock.ExpectQuery(regexp.QuoteMeta(byIDQuery)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"ID"}))

	ok, err := c.Allowed(context.Background(), 99, ListNetworks, 0)
	if err != nil || ok {
		t.Fatalf("Allowed = %v, %v; want false, nil", ok, err)
	}
}

func TestRequirePermission(t *testing.T) {
	c, mock := newChecker(t)

	r := chi.NewRouter()
	r.With(RequirePermission(c, EditNetwork)).Put("/networks/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	do := func(uid int64, withUser bool, id string) int {
		req := httptest.NewRequest(http.MethodPut, "/networks/"+id, nil)
		if withUser {
			req = req.WithContext(auth.WithUser(req.Context(), uid))
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(0, false, "2"); code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", code)
	}
	expectUser(mock, 2, "alice")
	if code := do(2, true, "2"); code != http.StatusNoContent {
		t.Fatalf("own network: %d", code)
	}
	expectUser(mock, 2, "alice")
	if code := do(2, true, "1"); code != http.StatusForbidden {
		t.Fatalf("other network: %d", code)
	}
}
