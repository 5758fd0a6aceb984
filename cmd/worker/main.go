package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Domenick1991/flightcore/config"
	"github.com/Domenick1991/flightcore/internal/cache"
	"github.com/Domenick1991/flightcore/internal/kafka"
	"github.com/Domenick1991/flightcore/internal/repository"
	"github.com/Domenick1991/flightcore/internal/service/pathfinder"
	"github.com/Domenick1991/flightcore/internal/service/reconciler"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	inventory := cache.NewInventoryCache(cfg.Redis)
	flightRepo := repository.NewFlightRepository(pool)

	workers := cfg.Precompute.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	engine := pathfinder.NewEngine(flightRepo, inventory, workers, cfg.Precompute.MaxHops, cfg.Precompute.TopK)

	worker := reconciler.NewWorker(
		inventory,
		flightRepo,
		cfg.Reconciler.QueueSize,
		time.Duration(cfg.Reconciler.FlushIntervalSeconds)*time.Second,
	)

	seatUpdates := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.SeatUpdatesTopic)
	defer seatUpdates.Close()
	flightUpdates := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.FlightUpdatesTopic)
	defer flightUpdates.Close()

	go func() {
		if err := seatUpdates.Consume(ctx, worker.HandleSeatUpdate); err != nil {
			log.Error().Err(err).Msg("seat update consumer stopped")
		}
	}()
	go func() {
		if err := flightUpdates.Consume(ctx, engine.HandleFlightUpdate); err != nil {
			log.Error().Err(err).Msg("flight update consumer stopped")
		}
	}()

	// One full precompute on startup so the path cache is warm; after that
	// the flight_updates stream drives incremental recomputes.
	go func() {
		if err := engine.RunFull(ctx); err != nil {
			log.Error().Err(err).Msg("full precompute failed")
		}
	}()

	worker.Run(ctx)
}
