package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuttter/wp-multi-network-sub000/internal/database"
	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
)

func newStore(t *testing.T) *directory.Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Install(ctx, db, database.SQLite, "wp_"))
	return directory.NewStore(db, database.SQLite, "wp_")
}

func TestCreateSiteSeedsOptions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := NewSQL(s)

	id, err := p.CreateSite(ctx, SiteRequest{
		NetworkID: 1, Domain: "example.com", Path: "/", Title: "Example",
		AdminEmail: "admin@example.com", Scheme: "https",
	})
	require.NoError(t, err)

	site, err := s.Site(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), site.NetworkID)
	assert.True(t, site.Public)

	opts, err := s.SiteOptions(ctx, id, []string{"siteurl", "home", "blogname", "admin_email", "blog_public", "upload_path"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", opts["siteurl"])
	assert.Equal(t, opts["siteurl"], opts["home"])
	assert.Equal(t, "Example", opts["blogname"])
	assert.Equal(t, "1", opts["blog_public"])
	_, seeded := opts["upload_path"]
	assert.False(t, seeded, "upload paths are left to the caller")
}

func TestCreateSiteRejectsTakenAddress(t *testing.T) {
	ctx := context.Background()
	p := NewSQL(newStore(t))

	_, err := p.CreateSite(ctx, SiteRequest{NetworkID: 1, Domain: "example.com", Path: "/blog/"})
	require.NoError(t, err)
	_, err = p.CreateSite(ctx, SiteRequest{NetworkID: 2, Domain: "example.com", Path: "/blog/"})
	assert.True(t, errors.Is(err, ErrSiteExists), "got %v", err)
}

func TestDeleteSite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := NewSQL(s)

	_, _ = p.CreateSite(ctx, SiteRequest{NetworkID: 1, Domain: "example.com", Path: "/"})
	id, err := p.CreateSite(ctx, SiteRequest{NetworkID: 1, Domain: "example.com", Path: "/shop/", Private: true})
	require.NoError(t, err)

	v, _, _ := s.SiteOption(ctx, id, "blog_public")
	assert.Equal(t, "0", v)

	require.NoError(t, p.DeleteSite(ctx, id))
	_, err = s.Site(ctx, id)
	assert.ErrorIs(t, err, directory.ErrNotFound)
	_, _, err = s.SiteOption(ctx, id, "siteurl")
	assert.Error(t, err, "options table should be gone")
}

func TestUploadPath(t *testing.T) {
	assert.Equal(t, "wp-content/uploads", UploadPath(1))
	assert.Equal(t, "wp-content/uploads/sites/14", UploadPath(14))
}
