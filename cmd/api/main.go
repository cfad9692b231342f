package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/yourflorist/storefront/api/routes"
	"github.com/yourflorist/storefront/internal/authsession"
	"github.com/yourflorist/storefront/internal/cart"
	"github.com/yourflorist/storefront/internal/catalog"
	"github.com/yourflorist/storefront/internal/checkout"
	"github.com/yourflorist/storefront/internal/customization"
	"github.com/yourflorist/storefront/internal/pricing"
	"github.com/yourflorist/storefront/pkg/config"
	"github.com/yourflorist/storefront/pkg/db"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/kv"
	"github.com/yourflorist/storefront/pkg/logger"
	"github.com/yourflorist/storefront/pkg/metrics"
	"github.com/yourflorist/storefront/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	kvClient, err := kv.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap key-value store", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	floristClient, err := florist.New(cfg.Upstream.BaseURL, &http.Client{Timeout: cfg.Upstream.Timeout})
	if err != nil {
		logg.Error(ctx, "failed to build florist client", err)
		os.Exit(1)
	}

	policy, err := pricing.NewPolicy(cfg.Pricing)
	if err != nil {
		logg.Error(ctx, "failed to parse pricing policy", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	cartMetrics := metrics.NewCartMetrics(registry)

	cartService := cart.NewService(kvClient, floristClient, policy, logg, cartMetrics)
	catalogService := catalog.NewService(floristClient, dbClient, cfg.Catalog.CacheTTL, logg)
	customizationService := customization.NewService(floristClient, kvClient, logg)
	authService := authsession.NewService(floristClient, kvClient, logg)
	checkoutService := checkout.NewService(floristClient, cartService, authService, logg)

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		KVPinger:    kvClient,
		DBPinger:    dbClient,
		Registry:    registry,
		HTTPMetrics: httpMetrics,
		Catalog:     catalogService,
		Bouquets:    floristClient,
		Cart:        cartService,
		Customize:   customizationService,
		Auth:        authService,
		Checkout:    checkoutService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting storefront api")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(drainCtx),
		kvClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "shutdown finished with errors", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "shutdown complete")
}
