// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tiffin-subscription-service/internal/config"
	"tiffin-subscription-service/internal/infra/api"
	pg "tiffin-subscription-service/internal/infra/db/postgres"
	"tiffin-subscription-service/internal/infra/logging"
	"tiffin-subscription-service/internal/infra/metrics"
	"tiffin-subscription-service/internal/infra/payment"
	"tiffin-subscription-service/internal/infra/ratelimit"
	red "tiffin-subscription-service/internal/infra/redis"
	"tiffin-subscription-service/internal/infra/sched"
	"tiffin-subscription-service/internal/infra/web"
	"tiffin-subscription-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Rate limiter: Redis when configured, in-process otherwise ----
	var limiter api.Limiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		logger.Info().Msg("rate limiting backed by redis")
	} else {
		mem := ratelimit.NewMemoryLimiter()
		go func() {
			t := time.NewTicker(time.Minute)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					mem.Sweep()
				}
			}
		}()
		limiter = mem
		logger.Warn().Msg("redis.url not set; using in-process rate limiting")
	}

	// ---- Gateway + signatures ----
	gateway := payment.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.BaseURL)
	sig := payment.NewHMACSignatureScheme(cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret)

	// ---- Repositories ----
	orderRepo := pg.NewOrderRepo(pool)

	// ---- Use cases ----
	orderUC := usecase.NewOrderUseCase(orderRepo, cfg.Orders.SpamWindow, cfg.Orders.SpamMax, logger)
	payUC := usecase.NewPaymentUseCase(orderRepo, gateway, sig, cfg.Orders.MaxAge, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(
		cfg.Admin.Username, cfg.Admin.Password,
		cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL,
	)
	srv := web.NewServer(orderUC, payUC, auth, limiter, web.RateLimits{
		PerMinute:      cfg.RateLimit.PerMinute,
		AdminPerMinute: cfg.RateLimit.AdminPerMinute,
	}, cfg.Razorpay.KeyID, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Payment reconciler ----
	reconciler := sched.NewPaymentReconciler(
		orderRepo, gateway,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.BatchLimit,
		logger,
	)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
