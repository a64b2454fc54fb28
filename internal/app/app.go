// internal/app/app.go
//
// Composition root shared by cmd/web and cmd/wpmn.
//
// Context
// -------
// Both binaries need the same object graph: a database pool, the
// directory store with its cache (and optional Redis tier), the users
// store, the SQL provisioner, the event bus with webhooks subscribed, the
// network manager, the ACL checker, and the token issuer.  New builds it
// from one *config.Config so the REST API and the CLI can never drift.
//
// Workflow
// --------
//  1. ResolveSecrets swaps `vault:` references for real values.
//  2. New opens the pool, wires every component, and returns *App.
//  3. Install applies the schema (idempotent).
//  4. Close drains webhooks, stops the cache evictor, and closes pools.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.

package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stuttter/wp-multi-network-sub000/internal/acl"
	"github.com/stuttter/wp-multi-network-sub000/internal/auth"
	"github.com/stuttter/wp-multi-network-sub000/internal/config"
	"github.com/stuttter/wp-multi-network-sub000/internal/database"
	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
	"github.com/stuttter/wp-multi-network-sub000/internal/message"
	"github.com/stuttter/wp-multi-network-sub000/internal/network"
	"github.com/stuttter/wp-multi-network-sub000/internal/provision"
	"github.com/stuttter/wp-multi-network-sub000/internal/users"
	"github.com/stuttter/wp-multi-network-sub000/internal/vault"
)

// App is the wired object graph.
type App struct {
	Config   *config.Config
	Log      *zap.SugaredLogger
	DB       *sqlx.DB
	Dialect  database.Dialect
	Store    *directory.Store
	Cache    *directory.Cache
	Users    *users.Store
	Bus      *hooks.Bus
	Manager  *network.Manager
	Checker  *acl.Checker
	Tokens   *auth.Tokens // nil when auth.jwt_secret is empty
	Webhooks *message.Webhooks

	rdb redis.UniversalClient
}

// ResolveSecrets resolves `vault:` references in cfg.  Vault is contacted
// only when at least one reference is present.
func ResolveSecrets(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	if !config.NeedsVault(cfg) {
		return nil
	}
	cli, err := vault.New(ctx, log)
	if err != nil {
		return fmt.Errorf("app: vault: %w", err)
	}
	return config.ResolveSecrets(ctx, cfg, cli)
}

// New wires the application.  The caller owns Close.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	if log == nil {
		log = zap.S()
	}
	d, err := database.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.Database.DSN
	if d == database.MySQL {
		if dsn, err = database.MySQLDSN(dsn, cfg.Database.Password); err != nil {
			return nil, err
		}
	}
	opts := database.DefaultOptions()
	if cfg.Database.MaxOpen > 0 {
		opts.MaxOpenConns = cfg.Database.MaxOpen
	}
	if cfg.Database.MaxIdle > 0 {
		opts.MaxIdleConns = cfg.Database.MaxIdle
	}
	db, err := database.OpenWithOptions(ctx, d, dsn, opts)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, DB: db, Dialect: d}
	prefix := cfg.Database.TablePrefix

	var remote directory.Remote
	if cfg.Cache.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr, DB: cfg.Cache.RedisDB})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			log.Warnw("redis unreachable, running without shared cache", "addr", cfg.Cache.RedisAddr, "err", err)
			_ = a.rdb.Close()
			a.rdb = nil
		} else {
			remote = directory.NewRedisRemote(a.rdb, prefix, cfg.Cache.RedisTTL, log)
		}
	}

	a.Store = directory.NewStore(db, d, prefix)
	a.Cache = directory.NewCache(a.Store, directory.CacheOptions{
		IdleTTL:    cfg.Cache.IdleTTL,
		MaxEntries: cfg.Cache.MaxEntries,
		SiteLRU:    cfg.Cache.SiteLRU,
		Remote:     remote,
		Logger:     log,
	})
	a.Users = users.NewStore(db, prefix)
	a.Bus = hooks.New()

	a.Webhooks = message.NewWebhooks(cfg.Hooks.Webhooks, log)
	a.Webhooks.Subscribe(a.Bus)

	a.Manager = network.New(network.Deps{
		Store:       a.Store,
		Cache:       a.Cache,
		Users:       a.Users,
		Provisioner: provision.NewSQL(a.Store),
		Bus:         a.Bus,
		Policy: network.Policy{
			MainNetworkID:       cfg.Multisite.MainNetworkID,
			Scheme:              cfg.Multisite.Scheme,
			RescueOrphanedSites: cfg.Multisite.RescueOrphanedSites,
			OptionsToClone:      cfg.Multisite.OptionsToClone,
		},
	})
	a.Checker = acl.NewChecker(a.Manager, a.Users)

	if cfg.Auth.JWTSecret != "" {
		if a.Tokens, err = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Install applies the schema.
func (a *App) Install(ctx context.Context) error {
	return database.Install(ctx, a.DB, a.Dialect, a.Config.Database.TablePrefix)
}

// Close releases every resource.  Safe to call once.
func (a *App) Close() {
	if a.Webhooks != nil {
		a.Webhooks.Close()
	}
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.DB.Close()
}
