package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) (root, path string) {
	t.Helper()
	root = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	path = filepath.Join(root, "conf", "global.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return root, path
}

func TestLoadFile_DefaultsAndEnvOverlay(t *testing.T) {
	root, path := writeYAML(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
multisite:
  rescue_orphaned_sites: true
cache:
  idle_ttl: 5m
`)
	t.Setenv("WPMN_HTTP__LISTEN_ADDR", "127.0.0.1:9090")

	cfg, err := LoadFile(root, path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.ListenAddr)
	assert.Equal(t, "wp_", cfg.Database.TablePrefix)
	assert.Equal(t, int64(1), cfg.Multisite.MainNetworkID)
	assert.Equal(t, "http", cfg.Multisite.Scheme)
	assert.True(t, cfg.Multisite.RescueOrphanedSites)
	assert.Equal(t, 5*time.Minute, cfg.Cache.IdleTTL)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Same(t, cfg, Get())
}

func TestLoadFile_RejectsUnsafeTablePrefix(t *testing.T) {
	root, path := writeYAML(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
  table_prefix: "wp_; DROP"
`)
	_, err := LoadFile(root, path)
	assert.Error(t, err)
}

func TestLoadFile_RejectsUnknownDriver(t *testing.T) {
	root, path := writeYAML(t, `
database:
  driver: oracle
  dsn: "x"
`)
	_, err := LoadFile(root, path)
	assert.Error(t, err)
}

type fakeResolver map[string]string

func (f fakeResolver) GetKV(_ context.Context, p, k string, _ time.Duration) (string, error) {
	v, ok := f[p+"#"+k]
	if !ok {
		return "", errors.New("missing")
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{
		Database: Database{Password: "vault:secret/wpmn#db_password", DSN: "plain"},
		Auth:     Auth{JWTSecret: "vault:secret/wpmn#jwt"},
	}
	require.True(t, NeedsVault(cfg))

	err := ResolveSecrets(context.Background(), cfg, fakeResolver{
		"secret/wpmn#db_password": "hunter2",
		"secret/wpmn#jwt":         "signing-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, "plain", cfg.Database.DSN)
	assert.Equal(t, "signing-key", cfg.Auth.JWTSecret)
	assert.False(t, NeedsVault(cfg))
}

func TestResolveSecrets_Malformed(t *testing.T) {
	cfg := &Config{Database: Database{Password: "vault:secret/wpmn"}}
	assert.Error(t, ResolveSecrets(context.Background(), cfg, fakeResolver{}))

	cfg = &Config{Database: Database{Password: "vault:secret/wpmn#k"}}
	assert.Error(t, ResolveSecrets(context.Background(), cfg, nil))
}
