package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/courtly/scheduler/internal/app"
	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/config"
	"github.com/courtly/scheduler/internal/db"
	"github.com/courtly/scheduler/internal/payment"
	"github.com/courtly/scheduler/internal/pkg/logger"
	"github.com/courtly/scheduler/internal/pkg/mq"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.LogLevel, cfg.IsProduction)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	appCfg := app.Config{
		IsProduction:  cfg.IsProduction,
		ProdOrigins:   cfg.ProdOrigins,
		CourtCacheTTL: cfg.CourtCacheTTL,
		Logger:        logr,
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTAccessTokenTTL,
		Limits: availability.Limits{
			MaxSpanDays:     cfg.BulkMaxSpanDays,
			MaxSlotPatterns: cfg.BulkMaxSlotPatterns,
		},
	}

	// Connect DB
	if cfg.StorageDriver == config.StoragePostgres {
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			logr.WithError(err).Fatal("failed to connect to db")
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			logr.WithError(err).Fatal("failed to apply schema")
		}
		appCfg.DBPool = pool
	} else {
		logr.Warn("running on in-memory storage; data is lost on restart")
	}

	// Court cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logr.WithError(err).Warn("redis unreachable; court lookups will fall through to storage")
		}
		appCfg.Redis = rdb
	}

	// Booking events
	if cfg.RabbitURL != "" {
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			logr.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer pub.Close()
		appCfg.Events = pub
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appCfg.Registry = reg

	container := app.NewContainer(appCfg)

	// Payment outcomes
	if cfg.RabbitURL != "" {
		src, err := mq.NewConsumer(cfg.RabbitURL, cfg.PaymentExchange, cfg.PaymentQueue, payment.Keys())
		if err != nil {
			logr.WithError(err).Fatal("failed to subscribe to payment events")
		}
		defer src.Close()

		consumer := payment.NewConsumer(src, container.Bookings, logr)
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logr.WithError(err).Error("payment consumer stopped")
			}
		}()
	}

	// Completion sweeper
	if cfg.CompletionSweepInterval > 0 {
		go sweep(ctx, container.Bookings, cfg.CompletionSweepInterval, logr.WithField("worker", "completion"))
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		logr.WithField("addr", cfg.HTTPAddr).Info("server running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.WithError(err).Fatal("server error")
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logr.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.WithError(err).Warn("server forced to shutdown")
	}

	logr.Info("server exited gracefully")
}

// sweep periodically moves confirmed bookings whose date has passed to completed.
func sweep(ctx context.Context, bookings booking.Service, every time.Duration, entry *logrus.Entry) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := bookings.CompletePast(ctx); err != nil && ctx.Err() == nil {
				entry.WithError(err).Warn("completion sweep failed")
			}
		}
	}
}
