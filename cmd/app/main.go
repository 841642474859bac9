package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kargin-dv/skyfare/config"
	"github.com/kargin-dv/skyfare/internal/bootstrap"
	"github.com/kargin-dv/skyfare/internal/cache"
	"github.com/kargin-dv/skyfare/internal/kafka"
	"github.com/kargin-dv/skyfare/internal/logger"
	"github.com/kargin-dv/skyfare/internal/repository"
	"github.com/kargin-dv/skyfare/internal/service/booking"
	"github.com/kargin-dv/skyfare/internal/service/flights"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Cache.SearchTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool, time.Duration(cfg.Booking.LockTimeoutMillis)*time.Millisecond)

	flightService := flights.NewFlightService(
		flightRepo,
		bookingRepo,
		redisCache,
		time.Duration(cfg.Booking.VelocityWindowHours)*time.Hour,
	)
	bookingService := booking.NewBookingService(
		bookingRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.LockTTLSeconds)*time.Second,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, flightService, bookingService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
