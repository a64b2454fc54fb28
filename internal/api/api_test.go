// internal/api/api_test.go
//
// End-to-end REST tests over an in-memory sqlite database wired by
// internal/app.
//
// Run: go test ./internal/api -v

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stuttter/wp-multi-network-sub000/internal/app"
	"github.com/stuttter/wp-multi-network-sub000/internal/config"
	"github.com/stuttter/wp-multi-network-sub000/internal/network"
	"github.com/stuttter/wp-multi-network-sub000/internal/provision"
	"github.com/stuttter/wp-multi-network-sub000/internal/users"
)

type harness struct {
	t      *testing.T
	a      *app.App
	h      http.Handler
	admin  string // bearer token of the super admin
	alice  string // bearer token of a plain user
	mainID int64
	owner  int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{
		Database:  config.Database{Driver: "sqlite", DSN: ":memory:", TablePrefix: "wp_"},
		Multisite: config.Multisite{MainNetworkID: 1, Scheme: "http"},
		Auth:      config.Auth{JWTSecret: "0123456789abcdef-api-test"},
	}
	a, err := app.New(ctx, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NoError(t, a.Install(ctx))

	admin := &users.User{Login: "admin", Email: "admin@example.com"}
	alice := &users.User{Login: "alice", Email: "alice@example.com"}
	require.NoError(t, a.Users.Create(ctx, admin))
	require.NoError(t, a.Users.Create(ctx, alice))

	mainID, err := a.Manager.Create(ctx, network.CreateInput{Domain: "example.com", UserID: admin.ID})
	require.NoError(t, err)

	adminTok, err := a.Tokens.Issue(admin.ID)
	require.NoError(t, err)
	aliceTok, err := a.Tokens.Issue(alice.ID)
	require.NoError(t, err)

	h := NewRouter(Deps{
		Manager: a.Manager,
		Checker: a.Checker,
		Tokens:  a.Tokens,
		Logger:  zap.NewNop().Sugar(),
	})
	return &harness{t: t, a: a, h: h, admin: adminTok, alice: aliceTok, mainID: mainID, owner: admin.ID}
}

func (h *harness) do(method, path, token string, body any) (*httptest.ResponseRecorder, Envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)

	var env Envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (h *harness) create(domain, path string) int64 {
	h.t.Helper()
	rec, env := h.do(http.MethodPost, "/networks", h.admin, map[string]any{
		"domain": domain, "path": path, "user_id": h.owner,
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	data := env.Data.(map[string]any)
	return int64(data["id"].(float64))
}

func errorCode(env Envelope) string {
	p, _ := env.Error.(map[string]any)
	s, _ := p["code"].(string)
	return s
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec, env := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.do(http.MethodGet, "/networks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = h.do(http.MethodGet, "/networks", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = h.do(http.MethodGet, "/networks", h.alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAndFetch(t *testing.T) {
	h := newHarness(t)
	id := h.create("second.test", "/")

	rec, env := h.do(http.MethodGet, "/networks/"+strconv.FormatInt(id, 10), h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env.Data.(map[string]any)
	assert.Equal(t, "second.test", data["domain"])
	assert.NotZero(t, data["main_site_id"])

	rec, env = h.do(http.MethodPost, "/networks", h.admin, map[string]any{
		"domain": "second.test", "path": "/", "user_id": h.owner,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorCode(env))
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)

	rec, env := h.do(http.MethodPost, "/networks", h.admin, map[string]any{"path": "/x/"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failure", errorCode(env))

	rec, _ = h.do(http.MethodPost, "/networks", h.admin, map[string]any{
		"domain": "example.com", "path": "/wp-admin/", "user_id": h.owner,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = h.do(http.MethodPost, "/networks", h.admin, map[string]any{
		"domain": "third.test", "path": "/", "user_id": 999,
	})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "precondition_failed", errorCode(env))
}

func TestListPaging(t *testing.T) {
	h := newHarness(t)
	h.create("b.test", "/")
	h.create("c.test", "/")

	rec, env := h.do(http.MethodGet, "/networks?per_page=2&page=2&orderby=domain", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, "2", rec.Header().Get("X-Total-Pages"))
	rows := env.Data.([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "example.com", rows[0].(map[string]any)["domain"])

	rec, env = h.do(http.MethodGet, "/networks?search=c.te", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.([]any), 1)

	rec, _ = h.do(http.MethodGet, "/networks?orderby=secret", h.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateNetwork(t *testing.T) {
	h := newHarness(t)
	id := h.create("old.test", "/")
	p := "/networks/" + strconv.FormatInt(id, 10)

	rec, env := h.do(http.MethodPut, p, h.admin, map[string]any{"domain": "new.test"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "new.test", env.Data.(map[string]any)["domain"])

	rec, _ = h.do(http.MethodPut, "/networks/999", h.admin, map[string]any{"domain": "x.test"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(http.MethodPut, p, h.admin, map[string]any{"domain": "example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteNetwork(t *testing.T) {
	h := newHarness(t)
	main := "/networks/" + strconv.FormatInt(h.mainID, 10)

	rec, env := h.do(http.MethodDelete, main, h.admin, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "precondition_failed", errorCode(env))

	id := h.create("busy.test", "/")
	p := "/networks/" + strconv.FormatInt(id, 10)

	rec, _ = h.do(http.MethodDelete, p, h.admin, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec, _ = h.do(http.MethodDelete, p+"?force=true", h.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = h.do(http.MethodGet, p, h.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSitesAndMove(t *testing.T) {
	h := newHarness(t)
	dest := h.create("dest.test", "/")

	siteID, err := provision.NewSQL(h.a.Store).CreateSite(context.Background(), provision.SiteRequest{
		NetworkID: h.mainID, Domain: "example.com", Path: "/blog/", Title: "Blog",
	})
	require.NoError(t, err)

	rec, env := h.do(http.MethodGet, "/networks/"+strconv.FormatInt(h.mainID, 10)+"/sites", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.([]any), 2)

	rec, env = h.do(http.MethodPost, "/sites/"+strconv.FormatInt(siteID, 10)+"/move", h.admin,
		map[string]any{"network_id": dest})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := env.Data.(map[string]any)
	assert.Equal(t, true, res["moved"])

	site, err := h.a.Manager.Site(context.Background(), siteID)
	require.NoError(t, err)
	assert.Equal(t, dest, site.NetworkID)
	assert.Equal(t, "dest.test", site.Domain)

	rec, _ = h.do(http.MethodPost, "/sites/"+strconv.FormatInt(siteID, 10)+"/move", h.admin,
		map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(http.MethodPost, "/sites/9999/move", h.admin, map[string]any{"network_id": dest})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		kind network.Kind
		want int
	}{
		{network.KindNotFound, http.StatusNotFound},
		{network.KindConflict, http.StatusConflict},
		{network.KindPrecondition, http.StatusPreconditionFailed},
		{network.KindValidation, http.StatusBadRequest},
		{network.KindPersistence, http.StatusInternalServerError},
		{network.KindUnknown, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusOf(c.kind), c.kind.String())
	}
}
