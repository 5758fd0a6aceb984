package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightcore/config"
	"github.com/Domenick1991/flightcore/internal/bootstrap"
	"github.com/Domenick1991/flightcore/internal/cache"
	"github.com/Domenick1991/flightcore/internal/kafka"
	"github.com/Domenick1991/flightcore/internal/payment"
	"github.com/Domenick1991/flightcore/internal/repository"
	"github.com/Domenick1991/flightcore/internal/service/flights"
	"github.com/Domenick1991/flightcore/internal/service/reservation"
	"github.com/Domenick1991/flightcore/internal/service/search"
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
	locks := cache.NewLeaseLock(
		inventory.Client(),
		time.Duration(cfg.Booking.LockTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.LockWaitSeconds)*time.Second,
		time.Duration(cfg.Booking.LockRetryMillis)*time.Millisecond,
	)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	gateway := payment.NewStub(
		time.Duration(cfg.Payment.MinLatencyMillis)*time.Millisecond,
		time.Duration(cfg.Payment.MaxLatencyMillis)*time.Millisecond,
		cfg.Payment.FailureRate,
	)

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	flightService := flights.NewFlightService(flightRepo, inventory, producer, cfg.Kafka.FlightUpdatesTopic)
	reservationService := reservation.NewReservationService(bookingRepo, flightRepo, inventory, locks, gateway, producer, cfg.Kafka.SeatUpdatesTopic)
	searchService := search.NewSearchService(inventory, flightRepo)

	if err := bootstrap.Run(ctx, cfg, flightService, reservationService, searchService); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
