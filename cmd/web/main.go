// cmd/web/main.go
//
// Network manager – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (.env, conf/global.yaml, WPMN_ env overrides).
//
//  2. Start the daily rotating logger (tees to console in a TTY).
//
//  3. Resolve `vault:` secrets, then wire the App: database pool,
//     directory store and cache, Redis tier, manager, ACL, tokens, and
//     webhooks.
//
//  4. Open the optional GeoLite2 database for request enrichment.
//
//  5. Build the chi router and serve with hardened timeouts until SIGINT
//     or SIGTERM, then drain for ten seconds.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stuttter/wp-multi-network-sub000/internal/api"
	"github.com/stuttter/wp-multi-network-sub000/internal/app"
	"github.com/stuttter/wp-multi-network-sub000/internal/config"
	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/requestinfo"
	"github.com/stuttter/wp-multi-network-sub000/internal/server"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config and logger ───────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Secrets and object graph ────────────────────────────────────
	//
	if err := app.ResolveSecrets(ctx, cfg, logOut); err != nil {
		logOut.Fatalw("resolve secrets", "err", err)
	}
	a, err := app.New(ctx, cfg, logOut)
	if err != nil {
		logOut.Fatalw("wire app", "err", err)
	}
	defer a.Close()

	if mainID, err := a.Manager.MainNetworkID(ctx); err != nil {
		logOut.Warnw("no main network yet, run `wpmn install` and `wpmn create`", "err", err)
	} else {
		logOut.Infow("main network resolved", "network", mainID)
	}
	if a.Tokens == nil {
		logOut.Warnw("auth.jwt_secret is empty, every protected route will answer 401")
	}

	//
	// ── 3.  Request enrichment (GeoIP optional) ─────────────────────────
	//
	info, err := requestinfo.New(cfg.GeoIP.CityDB)
	if err != nil {
		logOut.Fatalw("open geoip", "err", err)
	}
	defer info.Close()

	//
	// ── 4.  Router and server ───────────────────────────────────────────
	//
	handler := api.NewRouter(api.Deps{
		Manager:     a.Manager,
		Checker:     a.Checker,
		Tokens:      a.Tokens,
		Info:        info,
		Logger:      logOut,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		ForceHTTPS:  cfg.HTTP.ForceHTTPS,
	})

	srv := server.New(cfg.HTTP.ListenAddr, handler)
	if err := server.Run(ctx, srv, 10*time.Second, logOut); err != nil {
		logOut.Errorw("http server", "err", err)
	}
}
