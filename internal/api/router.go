package api

import (
	"net/http"

	"github.com/creatorx/wallet-service/internal/api/handler"
	"github.com/creatorx/wallet-service/internal/api/middleware"
	"github.com/creatorx/wallet-service/internal/api/spec"
	"github.com/creatorx/wallet-service/internal/config"
	"github.com/creatorx/wallet-service/internal/gateway"
	"github.com/creatorx/wallet-service/internal/idempotency"
	"github.com/creatorx/wallet-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *pgxpool.Pool
	redis      redis.Cmdable
	idemStore  *idempotency.Store
	gw         gateway.Gateway
	walletSvc  *service.WalletService
	webhookSvc *service.WebhookService
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	redisClient redis.Cmdable,
	idemStore *idempotency.Store,
	gw gateway.Gateway,
	walletSvc *service.WalletService,
	webhookSvc *service.WebhookService,
) *Router {
	return &Router{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		idemStore:  idemStore,
		gw:         gw,
		walletSvc:  walletSvc,
		webhookSvc: webhookSvc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	walletHandler := handler.NewWalletHandler(api.walletSvc, api.gw)
	adminHandler := handler.NewAdminHandler(api.walletSvc)
	webhookHandler := handler.NewWebhookHandler(api.webhookSvc)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Operational endpoints
	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Webhooks are authenticated by HMAC signature, not JWT.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/webhooks/razorpay", webhookHandler.HandleRazorpayWebhook)
	})

	// Creator routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/wallet", walletHandler.GetBalance)
		r.Get("/v1/wallet/transactions", walletHandler.ListTransactions)
		r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/wallet/topup", walletHandler.CreateTopup)
		r.Post("/v1/wallet/topup/verify", walletHandler.VerifyPayment)
		r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/wallet/payouts", walletHandler.CreatePayout)
		r.Post("/v1/wallet/cleanup", walletHandler.CleanupPending)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.RequireRole(middleware.RoleAdmin))

		r.Post("/v1/admin/payouts/{id}/process", adminHandler.ProcessPayout)
		r.Post("/v1/admin/payouts/{id}/reject", adminHandler.RejectPayout)
		r.Post("/v1/admin/wallets/{user_id}/cleanup", adminHandler.CleanupUserPending)
	})

	return r
}
