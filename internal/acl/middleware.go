// internal/acl/middleware.go
//
// Chi middleware that enforces Checker decisions.

package acl

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stuttter/wp-multi-network-sub000/internal/auth"
	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
)

// RequirePermission lets the request through when the authenticated user
// may perform action.  For network-scoped routes the network id is read
// from the chi URL parameter `id`.  401 without a user, 403 when denied.
func RequirePermission(c *Checker, action Action) func(http.Handler) http.Handler {
	if c == nil {
		panic("acl.RequirePermission: nil checker")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := auth.UserID(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			var networkID int64
			if raw := chi.URLParam(r, "id"); raw != "" {
				networkID, _ = strconv.ParseInt(raw, 10, 64)
			}

			allowed, err := c.Allowed(r.Context(), uid, action, networkID)
			if err != nil {
				logger.FromContext(r.Context()).Errorw("acl check", "action", action, "user", uid, "err", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
