package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/server/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// userIDFromContext returns the authenticated account id set by requireUser.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireUser authenticates the request: a bearer access token normally,
// or the dev identity header when the server runs in dev mode. The dev
// header names an email; the matching account is created on first use
// with the pro tier so sync works out of the box locally.
func (a *API) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if a.cfg.DevMode {
			if identity := r.Header.Get(common.DevIdentityHeader); identity != "" {
				user, err := a.auth.FindOrCreateUser(r.Context(), identity, common.TierPro)
				if err != nil {
					writeErrorCode(w, http.StatusInternalServerError, "INTERNAL")
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, user.ID)))
				return
			}
		}

		header := r.Header.Get(common.AuthorizationHeader)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, []byte(a.cfg.SecretKey))
		if err != nil {
			code := "UNAUTHORIZED"
			if errors.Is(err, common.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			writeErrorCode(w, http.StatusUnauthorized, code)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// requireSyncTier gates the sync endpoints: cloud sync is a paid feature,
// free accounts get 403 and keep working locally.
func (a *API) requireSyncTier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.auth.GetUser(r.Context(), userIDFromContext(r.Context()))
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED")
			return
		}
		if !user.Tier.CanSync() {
			writeErrorCode(w, http.StatusForbidden, "UPGRADE_REQUIRED")
			return
		}
		next.ServeHTTP(w, r)
	})
}
