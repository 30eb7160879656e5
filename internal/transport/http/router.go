package http

import (
	"net/http"
	"time"

	"secretdrop/internal/config"
	obsmw "secretdrop/internal/observability/middleware"
	"secretdrop/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the full surface. The rate limits mirror the abuse windows
// the service was designed around (10 auth and 5 view attempts per source IP
// per window); disclosure stays correct even with limiting disabled.
func NewRouter(h *Handler, tokens *service.Tokens, rl config.RateLimitConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	// Mounted inside the router so the matched route pattern, not the raw
	// path, reaches metric labels and completion logs.
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.WithMetrics)

	if rl.Enabled {
		r.Use(httprate.LimitByIP(rl.GlobalPerMin, time.Minute))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		authLimit := passthrough
		viewLimit := passthrough
		if rl.Enabled {
			authLimit = httprate.LimitByIP(rl.AuthLimit, rl.Window)
			viewLimit = httprate.LimitByIP(rl.ViewLimit, rl.Window)
		}

		r.With(authLimit).Post("/signup", h.Signup)
		r.With(authLimit).Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(tokens))
			r.Get("/me", h.Me)
			r.Post("/secret", h.CreateSecret)
		})

		r.Get("/secret/{token}", h.ProbeSecret)
		r.With(viewLimit).Post("/secret/{token}/view", h.ViewSecret)
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
