package api

import (
	"net/http"

	"github.com/ayo6706/wheelbet/internal/api/handler"
	"github.com/ayo6706/wheelbet/internal/api/middleware"
	"github.com/ayo6706/wheelbet/internal/api/spec"
	"github.com/ayo6706/wheelbet/internal/idempotency"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/ayo6706/wheelbet/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Options carries the HTTP-facing knobs from config.
type Options struct {
	PublicRateLimitRPS int
	AuthRateLimitRPS   int
	CORSAllowedOrigins []string
}

// Services bundles the domain services the handlers call into.
type Services struct {
	Accounts       *service.AccountService
	Settlement     *service.SettlementService
	Funds          *service.FundsService
	Destinations   *service.DestinationService
	Reconciliation *service.ReconciliationService
	Webhooks       *service.WebhookService
}

type Router struct {
	opts      Options
	logger    *zap.Logger
	store     ledger.Store
	redis     redis.Cmdable
	idemStore *idempotency.Store
	auth      *middleware.JWTAuth
	hub       *notify.Hub
	svc       Services
}

func NewRouter(opts Options, logger *zap.Logger, store ledger.Store, rdb redis.Cmdable, idemStore *idempotency.Store, auth *middleware.JWTAuth, hub *notify.Hub, svc Services) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		opts:      opts,
		logger:    logger,
		store:     store,
		redis:     rdb,
		idemStore: idemStore,
		auth:      auth,
		hub:       hub,
		svc:       svc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID", "X-Idempotent-Replay"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Handlers
	healthHandler := handler.NewHealthHandler(api.store, api.redis)
	accountHandler := handler.NewAccountHandler(api.svc.Accounts)
	betHandler := handler.NewBetHandler(api.svc.Settlement, api.svc.Accounts)
	fundsHandler := handler.NewFundsHandler(api.svc.Funds)
	destinationHandler := handler.NewDestinationHandler(api.svc.Destinations)
	reconciliationHandler := handler.NewReconciliationHandler(api.svc.Reconciliation)
	webhookHandler := handler.NewWebhookHandler(api.svc.Webhooks)
	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Ops
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.opts.PublicRateLimitRPS))
		r.Get("/v1/bets/live-feed", betHandler.LiveFeed)
		if api.hub != nil {
			r.Get("/v1/bets/live-feed/ws", api.hub.HandleWS)
		}
		r.Post("/v1/webhooks/gateway", webhookHandler.HandleGatewayWebhook)
	})

	// Protected Routes
	r.Group(func(r chi.Router) {
		r.Use(api.auth.Middleware)
		r.Use(middleware.AuthRateLimiter(api.opts.AuthRateLimitRPS))

		r.Get("/v1/account", accountHandler.GetAccount)
		r.Get("/v1/transactions", accountHandler.ListTransactions)

		// Bets
		r.With(idem).Post("/v1/bets", betHandler.PlaceBet)
		r.Get("/v1/bets/history", betHandler.History)

		// Funds
		r.With(idem).Post("/v1/deposits", fundsHandler.InitiateDeposit)
		r.Get("/v1/deposits/{reference}", fundsHandler.ConfirmDeposit)
		r.With(idem).Post("/v1/withdrawals", fundsHandler.InitiateWithdrawal)

		// Destinations
		r.Get("/v1/destinations", destinationHandler.List)
		r.With(idem).Post("/v1/destinations", destinationHandler.Add)
		r.With(idem).Delete("/v1/destinations/{id}", destinationHandler.Delete)
		r.With(idem).Put("/v1/destinations/{id}/default", destinationHandler.SetDefault)
		r.Get("/v1/banks", destinationHandler.ListBanks)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Post("/v1/accounts", accountHandler.CreateAccount)
			r.Get("/v1/admin/reconciliation-cases", reconciliationHandler.ListCases)
			r.Post("/v1/admin/reconciliation-cases/{id}/resolve", reconciliationHandler.ResolveCase)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.RespondError(w, r, http.StatusNotFound, "resource/not-found", "Route not found")
	})

	return r
}
