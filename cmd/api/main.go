package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursepay/config"
	"coursepay/internal/adapter/enrollment"
	httpHandler "coursepay/internal/adapter/http/handler"
	pgStorage "coursepay/internal/adapter/storage/postgres"
	redisStorage "coursepay/internal/adapter/storage/redis"
	"coursepay/internal/core/ports"
	"coursepay/internal/service"
	"coursepay/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting CoursePay wallet service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Run embedded schema migrations
	if cfg.Database.Migrate {
		if err := pgStorage.Migrate(pool, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	entryRepo := pgStorage.NewEntryRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	couponRepo := pgStorage.NewCouponRepo(pool)
	reviewRepo := pgStorage.NewReviewRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	accessClient := enrollment.NewClient(cfg.Enrollment, sigSvc, nil, log)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(walletRepo, entryRepo, idempotencyCache, transactor, cfg.Wallet.Currency, log)
	couponSvc := service.NewCouponService(couponRepo, log)
	checkoutSvc := service.NewCheckoutService(paymentRepo, entryRepo, ledgerSvc, couponSvc, accessClient, cfg.Wallet.Currency, log)
	settlementSvc := service.NewSettlementService(paymentRepo, reviewRepo, ledgerSvc, accessClient, log)
	reportingSvc := service.NewReportingService(walletRepo, entryRepo, cfg.Wallet.Currency, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		CheckoutSvc:    checkoutSvc,
		CouponSvc:      couponSvc,
		SettlementSvc:  settlementSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		RateLimiter:    rateLimitStore,
		Gateways:       cfg.Gateways,
		WalletExponent: cfg.Wallet.Exponent,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
