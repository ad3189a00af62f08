package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cokeastorga/paylane/api/controllers"
	"github.com/cokeastorga/paylane/api/routes"
	"github.com/cokeastorga/paylane/internal/guard"
	"github.com/cokeastorga/paylane/internal/ledger"
	"github.com/cokeastorga/paylane/internal/payments"
	"github.com/cokeastorga/paylane/internal/payouts"
	"github.com/cokeastorga/paylane/internal/providers"
	"github.com/cokeastorga/paylane/internal/providers/sandbox"
	"github.com/cokeastorga/paylane/internal/stores"
	"github.com/cokeastorga/paylane/pkg/breaker"
	"github.com/cokeastorga/paylane/pkg/config"
	"github.com/cokeastorga/paylane/pkg/db"
	"github.com/cokeastorga/paylane/pkg/enums"
	"github.com/cokeastorga/paylane/pkg/logger"
	"github.com/cokeastorga/paylane/pkg/metrics"
	"github.com/cokeastorga/paylane/pkg/migrate"
	"github.com/cokeastorga/paylane/pkg/outbox"
	"github.com/cokeastorga/paylane/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis client", err)
		}
	}()

	deps, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	router := routes.NewRouter(*deps)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"port": port,
	})
	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*routes.Deps, error) {
	gormDB := dbClient.DB()

	storeRepo := stores.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	paymentRepo := payments.NewRepository(gormDB)
	payoutRepo := payouts.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	breakerRegistry := breaker.NewRegistry(breaker.Options{
		ErrorThreshold:  cfg.Breaker.ErrorThreshold,
		RecoveryTimeout: cfg.Breaker.RecoveryTimeout,
	})

	adapterRegistry := providers.NewRegistry(
		sandbox.New(enums.ProviderWebpay, cfg.Providers.WebpaySecret),
		sandbox.New(enums.ProviderMercadoPago, cfg.Providers.MercadoPagoSecret),
		sandbox.New(enums.ProviderFlow, cfg.Providers.FlowSecret),
	)

	disabled := make([]enums.Provider, 0, len(cfg.Providers.Disabled))
	for _, raw := range cfg.Providers.Disabled {
		provider, err := enums.ParseProvider(raw)
		if err != nil {
			logg.Warn(logg.WithField(context.Background(), "provider", raw), "ignoring unknown disabled provider")
			continue
		}
		disabled = append(disabled, provider)
	}

	router := providers.NewRouter(providers.RouterParams{
		Registry: adapterRegistry,
		Breaker:  breakerRegistry,
		Rules:    providers.DefaultRules,
		Disabled: disabled,
	})

	velocityGuard, err := guard.New(guard.GuardParams{
		Sums:   guard.NewDBSums(gormDB),
		Config: cfg.Guard,
	})
	if err != nil {
		return nil, err
	}

	webhookDedupe := redis.NewWebhookGuard(redisClient, cfg.Providers.WebhookDedupeTTL)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Tx:       dbClient,
		Repo:     paymentRepo,
		Stores:   storeRepo,
		Ledger:   ledgerRepo,
		Router:   router,
		Registry: adapterRegistry,
		Breaker:  breakerRegistry,
		Guard:    velocityGuard,
		Outbox:   outboxService,
		Dedupe:   webhookDedupe,
		Logg:     logg,
		Metrics:  paymentMetrics,

		CallTimeout:             cfg.Providers.CallTimeout,
		RefundApprovalThreshold: cfg.Guard.RefundApprovalThreshold,
	})
	if err != nil {
		return nil, err
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Tx:      dbClient,
		Repo:    payoutRepo,
		Stores:  storeRepo,
		Ledger:  ledgerRepo,
		Guard:   velocityGuard,
		Outbox:  outboxService,
		Logg:    logg,
		Metrics: paymentMetrics,

		SettlementWindow: cfg.Payouts.SettlementWindow,
	})
	if err != nil {
		return nil, err
	}

	return &routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		Payments: paymentService,
		Payouts:  payoutService,
		Stores:   storeRepo,
		HealthDeps: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
	}, nil
}
