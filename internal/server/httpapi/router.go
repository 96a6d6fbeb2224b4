package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/synclist/internal/logging"
	"github.com/dmitrijs2005/synclist/internal/server/config"
	"github.com/dmitrijs2005/synclist/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// API bundles the services behind the HTTP surface.
type API struct {
	cfg  *config.Config
	auth *services.AuthService
	sync *services.SyncService
	hub  *Hub
	log  logging.Logger
}

func NewAPI(cfg *config.Config, authSvc *services.AuthService, syncSvc *services.SyncService, hub *Hub, log logging.Logger) *API {
	return &API{cfg: cfg, auth: authSvc, sync: syncSvc, hub: hub, log: log}
}

// Routes builds the router. Auth endpoints are public; everything else
// requires a user, and the sync endpoints additionally require a tier
// with cloud sync.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/device-code", a.handleDeviceCode)
	r.Post("/auth/token", a.handleDeviceToken)
	r.Post("/auth/magic-link", a.handleMagicLinkRequest)
	r.Post("/auth/verify-magic-link", a.handleMagicLinkVerify)
	r.Post("/auth/refresh", a.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(a.requireUser)

		r.Get("/auth/me", a.handleMe)
		r.Post("/auth/logout", a.handleLogout)
		r.Post("/auth/device/approve", a.handleDeviceApprove)

		r.Group(func(r chi.Router) {
			r.Use(a.requireSyncTier)

			r.Post("/sync", a.handlePush)
			r.Get("/sync", a.handlePull)
			r.Post("/sync/migrate", a.handleMigrate)
			r.Get("/ws", a.handleWS)
		})
	})

	return r
}
