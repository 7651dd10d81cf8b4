package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/cache"
	"github.com/fairyhunter13/flash-sale-checkout/internal/config"
	"github.com/fairyhunter13/flash-sale-checkout/internal/handler"
	"github.com/fairyhunter13/flash-sale-checkout/internal/repository"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
	"github.com/fairyhunter13/flash-sale-checkout/internal/validator"
	"github.com/fairyhunter13/flash-sale-checkout/internal/worker"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Apply the schema (idempotent)
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	// Product cache: Redis when configured, no-op otherwise
	var (
		productCache service.ProductCacheInterface
		cachePinger  handler.Pinger
	)
	if cfg.Redis.Addr != "" {
		pc := cache.NewProductCache(
			cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
			cfg.Sale.ProductCacheTTL,
		)
		productCache, cachePinger = pc, pc
	} else {
		productCache, cachePinger = cache.Noop{}, cache.Noop{}
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Flash Sale Checkout",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // Max request body size
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator with custom rules and wire field names
	validate := validator.New()

	// Initialize checkout components (layered architecture)
	clk := clock.New()
	productRepo := repository.NewProductRepository(pool)
	holdRepo := repository.NewHoldRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	webhookRepo := repository.NewWebhookRepository(pool)

	reconcileService := service.NewReconcileService(pool, holdRepo, orderRepo, productRepo, webhookRepo, productCache)
	reconciler := worker.NewReconciler(reconcileService, cfg.Worker.ReconcileWorkers, cfg.Worker.ReconcileQueueSize)

	productService := service.NewProductService(productRepo, productCache)
	holdService := service.NewHoldService(pool, productRepo, holdRepo, productCache, clk, cfg.Sale.HoldTTL)
	orderService := service.NewOrderService(pool, holdRepo, productRepo, orderRepo, reconciler)
	webhookService := service.NewWebhookService(pool, holdRepo, orderRepo, productRepo, webhookRepo, productCache)
	sweepService := service.NewSweepService(pool, holdRepo, productRepo, productCache, clk)
	sweeper := worker.NewSweeper(sweepService, cfg.Sale.SweepInterval, clk)

	// Background workers: reconciliation pool and expiration sweeper
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	reconciler.Start(workerCtx)
	sweeper.Start(workerCtx)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool, cachePinger)
	app.Get("/health", healthHandler.Check)

	// Checkout routes
	productHandler := handler.NewProductHandler(productService)
	holdHandler := handler.NewHoldHandler(holdService, validate)
	orderHandler := handler.NewOrderHandler(orderService, validate)
	webhookHandler := handler.NewWebhookHandler(webhookService, validate)

	app.Get("/api/products/:id", productHandler.GetProduct)
	app.Post("/api/holds", holdHandler.CreateHold)
	app.Post("/api/orders", orderHandler.CreateOrder)
	app.Post("/api/payments/webhook", webhookHandler.HandleWebhook)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Stop workers AFTER the server so every dispatched order is drained
	log.Info().Msg("stopping background workers...")
	sweeper.Stop()
	reconciler.Stop()

	// Close database pool AFTER workers (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
