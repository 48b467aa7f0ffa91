package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bucheron/internal/apiclient"
	"bucheron/internal/cart"
	"bucheron/internal/checkout"
	"bucheron/internal/commons"
	"bucheron/internal/infrastructure/logger"
	"bucheron/internal/infrastructure/metrics"
	"bucheron/internal/infrastructure/redis"
	"bucheron/internal/legal"
	"bucheron/internal/server"
	"bucheron/internal/shipping"
	"bucheron/internal/storefront"
	"bucheron/internal/tracking"
	"bucheron/internal/validation"

	"go.uber.org/zap"
)

func main() {
	cfg, err := commons.LoadConfig(os.Getenv("BUCHERON_CONFIG"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, "storefront")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	sf := cfg.Storefront
	client := apiclient.New(sf.APIBaseURL, sf.APITimeout, sf.CacheTTL, zapLogger)

	var persister cart.Persister = cart.NewMemoryPersister()
	if sf.CartBackend == "redis" {
		rdb, err := redis.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Fatal("connecting to redis", zap.Error(err))
		}
		defer rdb.Close()
		persister = cart.NewRedisPersister(rdb, cfg.Redis.CartTTL)
		zapLogger.Info("carts stored in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		zapLogger.Warn("carts kept in memory, they are lost on restart")
	}
	carts := cart.NewManager(persister, zapLogger)

	legalPages, err := legal.NewLibrary(zapLogger)
	if err != nil {
		zapLogger.Fatal("loading legal pages", zap.Error(err))
	}

	validator := validation.New()
	rates := shipping.Default()

	h, err := storefront.NewHandler(storefront.Deps{
		Catalog:   client,
		Orders:    client,
		Forms:     client,
		Carts:     carts,
		Checkout:  checkout.NewService(carts, client, rates, validator, zapLogger),
		Legal:     legalPages,
		Poller:    tracking.NewPoller(sf.PollInterval, sf.PollMaxInterval, sf.PollMaxAttempts, zapLogger),
		Validator: validator,
		Rates:     rates,
	}, storefront.Options{
		SessionCookie: sf.SessionCookie,
		SecureCookie:  sf.SecureCookie,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("parsing templates", zap.Error(err))
	}

	router := storefront.NewRouter(h, client, metrics.NewServerMetrics("storefront"), zapLogger)
	srv := server.New(sf.Port, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, zapLogger)
	srv.OnShutdown(h.CloseStreams)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
