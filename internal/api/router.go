package api

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/stage-app/engine/internal/api/handlers"
	mw "github.com/stage-app/engine/internal/api/middleware"
	"github.com/stage-app/engine/internal/app"
)

type Dependencies struct {
	HMACSecret     []byte
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
	TrustedProxies []netip.Prefix

	AuthHandler    *handlers.AuthHandler
	PostsHandler   *handlers.PostsHandler
	CarsHandler    *handlers.CarsHandler
	StreamHandler  *handlers.StreamHandler
	RatesHandler   *handlers.RatesHandler
	ProfileHandler *handlers.ProfileHandler
	HealthHandler  *handlers.HealthHandler
}

// FromProvider builds every handler from an initialized provider.
func FromProvider(p *app.Provider) Dependencies {
	cfg := p.Config()
	// Load has already rejected malformed entries.
	proxies, _ := cfg.Proxies()
	return Dependencies{
		HMACSecret:     []byte(cfg.JWTSecret),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		CORSOrigins:    cfg.Origins(),
		TrustedProxies: proxies,
		AuthHandler:    handlers.NewAuthHandler(p.Users(), []byte(cfg.JWTSecret), cfg.TokenTTL),
		PostsHandler:   handlers.NewPostsHandler(p.Posts(), p.Rates()),
		CarsHandler:    handlers.NewCarsHandler(p.CarDetails(), p.Posts()),
		StreamHandler:  handlers.NewStreamHandler(p.Posts(), p.Rates()),
		RatesHandler:   handlers.NewRatesHandler(p.Rates()),
		ProfileHandler: handlers.NewProfileHandler(p.Users(), p.Posts()),
		HealthHandler:  handlers.NewHealthHandler(p),
	}
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.CORSOrigins...))
	if dep.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(dep.RateLimitRPS, max(dep.RateLimitBurst, 1), dep.TrustedProxies...))
	}

	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		// The event stream must not sit behind the compressor's buffer.
		api.Get("/posts/stream", dep.StreamHandler.Posts)

		api.Group(func(api chi.Router) {
			api.Use(chimid.Compress(5))

			api.Route("/auth", func(ar chi.Router) {
				ar.Post("/register", dep.AuthHandler.Register)
				ar.Post("/login", dep.AuthHandler.Login)
				ar.Post("/logout", dep.AuthHandler.Logout)
			})

			api.Get("/posts", dep.PostsHandler.List)
			api.Get("/posts/{id}", dep.PostsHandler.Get)
			api.Get("/cars", dep.CarsHandler.List)
			api.Get("/cars/vin/{vin}", dep.CarsHandler.ByVIN)

			api.Route("/rates", func(rr chi.Router) {
				rr.Get("/", dep.RatesHandler.Latest)
				rr.Get("/convert", dep.RatesHandler.Convert)
				rr.Get("/currencies", dep.RatesHandler.Currencies)
			})

			api.Group(func(protected chi.Router) {
				protected.Use(mw.Auth(dep.HMACSecret))

				protected.Post("/posts", dep.PostsHandler.Create)
				protected.Put("/posts/{id}", dep.PostsHandler.Update)
				protected.Post("/posts/{id}/deactivate", dep.PostsHandler.Deactivate)
				protected.Delete("/posts/{id}", dep.PostsHandler.Delete)

				protected.Route("/profile", func(pr chi.Router) {
					pr.Get("/", dep.ProfileHandler.Get)
					pr.Put("/", dep.ProfileHandler.Update)
					pr.Get("/posts", dep.ProfileHandler.Posts)
					pr.Get("/stats", dep.ProfileHandler.Stats)
				})
			})
		})
	})

	return r
}
