package main // entry point for the reservation engine

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-reservation/internal/cache"
	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/router"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional, real deployments use the environment

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.DebugLevel)
	}

	db, err := database.Open(cfg.DSN(), database.PoolSettings{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		PingTimeout:     cfg.DBPingTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, slot cache and rate limiting disabled")
	}
	slots := cache.NewSlotCache(rdb, cfg.SlotCacheTTL, log)

	store := repository.NewSQLStore(db)

	hub := fanout.NewHub(log)
	publisher := fanout.Multi{hub, queue.NewBridge(log)}
	go queue.StartReservationConsumer(log)

	checker := service.NewAvailabilityChecker(store)
	allocator := service.NewAllocator(store, checker, slots, log)
	booking := service.NewBookingService(store, allocator, checker, publisher, slots, log)
	lifecycle := service.NewLifecycleService(store, publisher, slots, log)
	sweeper := service.NewOverdueSweeper(store, lifecycle, publisher, log)

	runner := service.NewSweepRunner(sweeper, cfg.SweepInterval, log)
	runner.Start(ctx)
	defer runner.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.Register(e, router.Handlers{
		Reservations: handler.NewReservationHandler(booking, lifecycle),
		Availability: handler.NewAvailabilityHandler(store, allocator),
		Realtime:     handler.NewRealtimeHandler(hub, cfg.JWTSecret, log),
	}, cfg, rdb)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
