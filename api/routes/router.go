package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kornthana/memberpay-backend/api/controllers"
	authcontrollers "github.com/kornthana/memberpay-backend/api/controllers/auth"
	paymentcontrollers "github.com/kornthana/memberpay-backend/api/controllers/payments"
	plancontrollers "github.com/kornthana/memberpay-backend/api/controllers/plans"
	webhookcontrollers "github.com/kornthana/memberpay-backend/api/controllers/webhooks"
	"github.com/kornthana/memberpay-backend/api/middleware"
	"github.com/kornthana/memberpay-backend/internal/members"
	"github.com/kornthana/memberpay-backend/internal/payments"
	"github.com/kornthana/memberpay-backend/internal/plans"
	"github.com/kornthana/memberpay-backend/pkg/auth/session"
	"github.com/kornthana/memberpay-backend/pkg/config"
	"github.com/kornthana/memberpay-backend/pkg/db"
	"github.com/kornthana/memberpay-backend/pkg/enums"
	"github.com/kornthana/memberpay-backend/pkg/logger"
	"github.com/kornthana/memberpay-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	Sessions        session.AccessSessionChecker
	Members         *members.Service
	Plans           *plans.Service
	Payments        *payments.Service
	Poller          *payments.Poller
	Webhooks        webhookcontrollers.OmiseWebhookService
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var redisP redis.Pinger
	if deps.Redis != nil {
		redisP = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisP))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The gateway posts here without credentials; authenticity comes
		// from re-fetching the charge, so the route stays public.
		r.Post("/payments/webhook", webhookcontrollers.OmiseWebhook(deps.Webhooks, logg))

		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/auth/login", authcontrollers.Login(deps.Members, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/auth/register", authcontrollers.Register(deps.Members, logg))
		r.Post("/auth/refresh", authcontrollers.Refresh(deps.Members, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

			r.Post("/auth/logout", authcontrollers.Logout(deps.Members, logg))
			r.Get("/auth/me", authcontrollers.Profile(deps.Members, logg))

			r.Post("/payments/subscribe", paymentcontrollers.Subscribe(deps.Payments, logg))
			r.Get("/payments/history", paymentcontrollers.History(deps.Payments, logg))
			r.Get("/payments/{paymentId}", paymentcontrollers.Detail(deps.Payments, logg))
			r.Get("/payments/{paymentId}/poll", paymentcontrollers.Poll(deps.Poller, logg))

			r.Get("/plans", plancontrollers.List(deps.Plans, logg))
			r.Get("/plans/{planId}", plancontrollers.Get(deps.Plans, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleOwner.String(), logg))
				r.Post("/owner/plans", plancontrollers.Create(deps.Plans, logg))
				r.Patch("/owner/plans/{planId}", plancontrollers.Update(deps.Plans, logg))
			})
		})
	})

	return r
}
