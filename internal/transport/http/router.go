package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-trade-client/internal/config"
	"github.com/go-trade-client/internal/pkg/metrics"
	"github.com/go-trade-client/internal/transport/http/handler"
	appmiddleware "github.com/go-trade-client/internal/transport/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.Verifier != nil {
		authMw = appmiddleware.Auth(deps.Verifier)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	rps, burst := cfg.RateLimitRPS, cfg.RateLimitBurst
	if rps <= 0 {
		rps, burst = 5, 10
	}
	// Applied to calls that mutate upstream state.
	mutatingRL := appmiddleware.NewRateLimiter(rate.Limit(rps), burst)
	if err := mutatingRL.TrustProxies(cfg.TrustedProxies...); err != nil {
		log.Warn("ignoring trusted proxies", zap.Error(err))
	}

	healthH := handler.NewHealthHandler(deps.Ready)
	kycH := handler.NewKYCHandler(deps.KYC, deps.Capture)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	pushH := handler.NewPushHandler(deps.Push, cfg.AppOrigin)
	fundH := handler.NewFundingHandler(deps.Funding)
	rtH := handler.NewRealtimeHandler(deps.Hub, deps.Notifications, cfg.AllowedOrigins, log)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Public routes (no auth)
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Get("/push/config", pushH.Config)
		// Called by the background delivery worker, which holds no bearer.
		r.Post("/push/payload", pushH.Payload)
		r.Post("/push/click", pushH.Click)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/realtime", rtH.Serve)

			r.Get("/kyc/status", kycH.Status)
			r.Post("/kyc/capture/evaluate", kycH.CaptureEvaluate)
			r.Get("/kyc/visits/{id}", kycH.Get)
			r.Put("/kyc/visits/{id}/doctype", kycH.SelectDocType)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Delete("/notifications/{id}", notifH.Delete)

			r.Post("/withdraw/quote", fundH.Quote)

			r.Group(func(r chi.Router) {
				r.Use(mutatingRL.Limit)

				r.Post("/kyc/visits", kycH.Start)
				r.Post("/kyc/visits/{id}/intro", kycH.Intro)
				r.Post("/kyc/visits/{id}/profile", kycH.Profile)
				r.Post("/kyc/visits/{id}/continue", kycH.Continue)
				r.Post("/kyc/visits/{id}/doctype", kycH.SubmitDocType)
				r.Post("/kyc/visits/{id}/uploads/{kind}", kycH.Upload)
				r.Post("/kyc/visits/{id}/back", kycH.Back)
				r.Post("/kyc/visits/{id}/submit", kycH.Submit)

				r.Post("/push/subscribe", pushH.Subscribe)
				r.Post("/push/unsubscribe", pushH.Unsubscribe)
				r.Post("/push/test", pushH.Test)

				r.Post("/withdraw", fundH.Withdraw)
				r.Post("/deposit", fundH.Deposit)
			})
		})
	})

	return r
}
