// Package httptransport assembles the HTTP surface: middleware chain, routes,
// and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	generationHandler "cardgen/internal/generation/handler"
	ledgerHandler "cardgen/internal/ledger/handler"
	"cardgen/internal/platform/middleware"
	"cardgen/internal/ratelimit"
	"cardgen/internal/transport/http/shared"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger         *slog.Logger
	TokenValidator middleware.JWTValidator
	RequestTimeout time.Duration

	Generation *generationHandler.Handler
	Credits    *ledgerHandler.Handler
	Limiter    *ratelimit.Limiter

	// Ready reports whether backing stores are reachable. Nil means always
	// ready.
	Ready func() error
}

// NewRouter wires the middleware chain and all routes. Authenticated routes
// sit behind bearer-token validation; /healthz and /metrics stay open.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", handleHealthz(deps.Ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))

		deps.Credits.Register(r)

		r.Group(func(r chi.Router) {
			if deps.Limiter != nil {
				r.Use(deps.Limiter.Middleware)
			}
			deps.Generation.Register(r)
		})
	})

	return r
}

func handleHealthz(ready func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": err.Error(),
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
