package main

import (
	"context"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/cache"
	"github.com/fairyhunter13/flash-sale-checkout/internal/config"
	"github.com/fairyhunter13/flash-sale-checkout/internal/repository"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// expire-holds runs one pass of the expiration sweep and exits: 0 when the
// pass completed, 1 on storage failure. Meant for cron or a one-off repair
// alongside the in-process sweeper.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	initLogger(cfg)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	var productCache service.ProductCacheInterface = cache.Noop{}
	if cfg.Redis.Addr != "" {
		productCache = cache.NewProductCache(
			cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
			cfg.Sale.ProductCacheTTL,
		)
	}

	holdRepo := repository.NewHoldRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	sweepService := service.NewSweepService(pool, holdRepo, productRepo, productCache, clock.New())

	expired, err := sweepService.ExpireDue(ctx)
	pool.Close()
	if err != nil {
		log.Fatal().Err(err).Int("expired", expired).Msg("expiration sweep failed")
	}

	log.Info().Int("expired", expired).Msg("expiration sweep completed")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
