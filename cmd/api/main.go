package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bucheron/internal/commons"
	"bucheron/internal/company"
	"bucheron/internal/contact"
	"bucheron/internal/infrastructure/logger"
	"bucheron/internal/infrastructure/mailer"
	"bucheron/internal/infrastructure/metrics"
	"bucheron/internal/infrastructure/mysql"
	"bucheron/internal/infrastructure/rabbitmq"
	"bucheron/internal/infrastructure/storage"
	"bucheron/internal/newsletter"
	"bucheron/internal/order"
	"bucheron/internal/product"
	"bucheron/internal/server"
	"bucheron/internal/shipping"
	"bucheron/internal/validation"

	"go.uber.org/zap"
)

type eventPublisher interface {
	Publish(ctx context.Context, pattern string, data interface{}) error
	Close()
}

func main() {
	cfg, err := commons.LoadConfig(os.Getenv("BUCHERON_CONFIG"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, "api")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = mysql.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		zapLogger.Fatal("migrating schema", zap.Error(err))
	}

	var events eventPublisher = rabbitmq.NewLogPublisher(zapLogger)
	if cfg.AMQP.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, zapLogger)
		if err != nil {
			zapLogger.Fatal("connecting to broker", zap.Error(err))
		}
		events = publisher
	} else {
		zapLogger.Warn("AMQP_URL not set, events are only logged")
	}
	defer events.Close()

	receipts, err := storage.NewLocalReceiptStore(cfg.Uploads.Dir, zapLogger)
	if err != nil {
		zapLogger.Fatal("preparing uploads dir", zap.Error(err))
	}

	mail := mailer.New(cfg.SMTP, zapLogger)
	validator := validation.New()
	settings := company.NewModule(db, zapLogger)

	orders := order.NewModule(db, cfg, order.Deps{
		Transactor: mysql.NewTransactor(db),
		Bank:       settings.Service,
		Receipts:   receipts,
		Events:     events,
		Mailer:     mail,
		Validator:  validator,
		Rates:      shipping.Default(),
	}, zapLogger)

	controllers := []server.Routes{
		product.NewModule(db, zapLogger),
		settings.Controller,
		orders.Controller,
		newsletter.NewModule(db, validator, zapLogger),
		contact.NewModule(db, validator, mail, events, cfg.SMTP.Notify, zapLogger),
	}

	router := server.NewRouter(controllers, db, metrics.NewServerMetrics("api"), zapLogger)
	srv := server.New(cfg.Server.Port, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, zapLogger)

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
	if err := orders.Placement.Wait(ctx); err != nil {
		zapLogger.Warn("order side effects still pending at exit", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
