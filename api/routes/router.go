package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cokeastorga/paylane/api/controllers"
	webhookcontrollers "github.com/cokeastorga/paylane/api/controllers/webhooks"
	"github.com/cokeastorga/paylane/api/middleware"
	"github.com/cokeastorga/paylane/internal/payments"
	"github.com/cokeastorga/paylane/internal/payouts"
	"github.com/cokeastorga/paylane/internal/stores"
	"github.com/cokeastorga/paylane/pkg/config"
	"github.com/cokeastorga/paylane/pkg/enums"
	"github.com/cokeastorga/paylane/pkg/logger"
	"github.com/cokeastorga/paylane/pkg/redis"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Redis      *redis.Client
	Payments   *payments.Service
	Payouts    *payouts.Service
	Stores     *stores.Repository
	HealthDeps map[string]controllers.Pinger
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

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthDeps))
	})

	webhookPolicy := middleware.NewWebhookRateLimitPolicy("provider", time.Minute, 600)
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookRateLimit(webhookPolicy, deps.Redis, logg))
		r.Post("/{provider}", webhookcontrollers.ProviderWebhook(deps.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/payments/intents", func(r chi.Router) {
			r.Post("/", controllers.CreateIntent(deps.Payments, logg))
			r.Get("/{intentId}", controllers.GetIntent(deps.Payments, logg))
			r.Post("/{intentId}/sync", controllers.SyncIntent(deps.Payments, logg))
			r.Post("/{intentId}/refunds", controllers.CreateRefund(deps.Payments, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.With(middleware.RequireRefundApprover(logg)).Post("/{refundId}/approve", controllers.ApproveRefund(deps.Payments, logg))
			r.Post("/{refundId}/cancel", controllers.CancelRefund(deps.Payments, logg))
			r.Post("/{refundId}/finalize", controllers.FinalizeRefund(deps.Payments, logg))
		})

		r.Post("/payouts", controllers.RequestPayout(deps.Payouts, logg))

		r.Route("/stores/{storeId}", func(r chi.Router) {
			r.Get("/", controllers.StoreProfile(deps.Stores, logg))
			r.Post("/bank-accounts", controllers.CreateBankAccount(deps.Stores, logg))
			r.Get("/payouts", controllers.ListPayouts(deps.Payouts, logg))
			r.Get("/balance", controllers.PayoutableBalance(deps.Payouts, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.OperatorRoleAdmin.String(), logg))

		r.Route("/payouts/{payoutId}", func(r chi.Router) {
			r.Post("/processing", controllers.AdminMarkPayoutProcessing(deps.Payouts, logg))
			r.Post("/finalize", controllers.AdminFinalizePayout(deps.Payouts, logg))
			r.Post("/fail", controllers.AdminFailPayout(deps.Payouts, logg))
		})
	})

	return r
}
