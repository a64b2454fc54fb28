// internal/api/router.go
//
// REST surface of the network manager.
//
// Routes
// ------
//
//	GET    /healthz                     liveness, store reachability
//	GET    /metrics                     Prometheus
//	GET    /networks                    list_networks
//	POST   /networks                    create_network
//	GET    /networks/{id}               view_network
//	PUT    /networks/{id}               edit_network
//	DELETE /networks/{id}?force=true    delete_network
//	GET    /networks/{id}/sites         view_network
//	POST   /sites/{id}/move             manage_network_sites
//
// Middleware order
// ----------------
// Recoverer, request id, request info, access log, security headers,
// CORS, bearer token, then a per-request context switch stack.  HTTPS
// redirection wraps the whole router when enabled.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stuttter/wp-multi-network-sub000/internal/acl"
	"github.com/stuttter/wp-multi-network-sub000/internal/auth"
	"github.com/stuttter/wp-multi-network-sub000/internal/middleware"
	"github.com/stuttter/wp-multi-network-sub000/internal/network"
	"github.com/stuttter/wp-multi-network-sub000/internal/requestinfo"
	"github.com/stuttter/wp-multi-network-sub000/internal/scope"
)

// Deps are the collaborators of the router.
type Deps struct {
	Manager     *network.Manager
	Checker     *acl.Checker
	Tokens      *auth.Tokens          // nil disables bearer auth; every ACL route then answers 401
	Info        *requestinfo.Enricher // nil skips request enrichment
	Logger      *zap.SugaredLogger
	CORSOrigins []string
	ForceHTTPS  bool
}

// NewRouter returns the HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.Manager == nil || d.Checker == nil {
		panic("api.NewRouter: Manager and Checker are required")
	}
	h := &handlers{mgr: d.Manager}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID(d.Logger))
	if d.Info != nil {
		r.Use(d.Info.Middleware)
	}
	r.Use(middleware.AccessLog)
	r.Use(middleware.Security)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id", "X-Total-Count", "X-Total-Pages", "Location"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.Tokens != nil {
			r.Use(d.Tokens.Middleware)
		}
		r.Use(withStack(d.Manager))

		perm := func(a acl.Action) func(http.Handler) http.Handler {
			return acl.RequirePermission(d.Checker, a)
		}

		r.Route("/networks", func(r chi.Router) {
			r.With(perm(acl.ListNetworks)).Get("/", h.listNetworks)
			r.With(perm(acl.CreateNetwork)).Post("/", h.createNetwork)
			r.Route("/{id}", func(r chi.Router) {
				r.With(perm(acl.ViewNetwork)).Get("/", h.getNetwork)
				r.With(perm(acl.EditNetwork)).Put("/", h.updateNetwork)
				r.With(perm(acl.DeleteNetwork)).Delete("/", h.deleteNetwork)
				r.With(perm(acl.ViewNetwork)).Get("/sites", h.listSites)
			})
		})
		r.With(perm(acl.ManageNetworkSites)).Post("/sites/{id}/move", h.moveSite)
	})

	if d.ForceHTTPS {
		return middleware.ForceHTTPS(r)
	}
	return r
}

// withStack gives every request its own context switch stack.
func withStack(m *network.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			next.ServeHTTP(w, r.WithContext(scope.WithStack(ctx, m.Stack(ctx))))
		})
	}
}
