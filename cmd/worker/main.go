package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kargin-dv/skyfare/config"
	"github.com/kargin-dv/skyfare/internal/email"
	"github.com/kargin-dv/skyfare/internal/kafka"
	"github.com/kargin-dv/skyfare/internal/logger"
	"github.com/kargin-dv/skyfare/internal/repository"
	"github.com/kargin-dv/skyfare/internal/service/flights"
	kafkaGo "github.com/segmentio/kafka-go"
)

// The worker consumes booking notifications and sends emails, and on a timer
// publishes demand snapshots for flights departing within the horizon.
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

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool, time.Duration(cfg.Booking.LockTimeoutMillis)*time.Millisecond)
	flightService := flights.NewFlightService(
		flightRepo,
		bookingRepo,
		nil,
		time.Duration(cfg.Booking.VelocityWindowHours)*time.Hour,
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				slog.Warn("decode booking event", "error", err)
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			slog.Error("consumer stopped", "error", err)
		}
	}()

	sweep := time.NewTicker(time.Duration(cfg.Worker.DemandSweepMinutes) * time.Minute)
	defer sweep.Stop()

	horizon := time.Duration(cfg.Worker.DemandHorizonDays) * 24 * time.Hour

	for {
		select {
		case <-sweep.C:
			publishDemandSnapshots(ctx, flightRepo, flightService, producer, cfg.Kafka.AnalyticsTopic, horizon)
		case <-ctx.Done():
			slog.Info("worker shutting down")
			return
		}
	}
}

func publishDemandSnapshots(
	ctx context.Context,
	flightRepo repository.FlightRepository,
	flightService flights.FlightUseCase,
	producer *kafka.Producer,
	topic string,
	horizon time.Duration,
) {
	now := time.Now()
	upcoming, err := flightRepo.ListDepartingBetween(ctx, now, now.Add(horizon))
	if err != nil {
		slog.Error("list upcoming flights", "error", err)
		return
	}

	published := 0
	for _, flight := range upcoming {
		snapshots, err := flightService.DemandSnapshots(ctx, flight.ID)
		if err != nil {
			slog.Warn("demand snapshot", "flight_id", flight.ID, "error", err)
			continue
		}
		for _, snap := range snapshots {
			event := kafka.DemandEvent{
				Type:            kafka.EventDemandUpdated,
				FlightID:        snap.FlightID,
				FlightNumber:    snap.FlightNumber,
				SeatClass:       string(snap.SeatClass),
				OccupancyRatio:  snap.OccupancyRatio,
				BookingVelocity: snap.BookingVelocity,
				DemandLevel:     snap.DemandLevel,
				ObservedAt:      now,
			}
			if err := producer.Publish(ctx, topic, snap.FlightNumber, event); err != nil {
				slog.Warn("publish demand event", "flight_id", snap.FlightID, "error", err)
				continue
			}
			published++
		}
	}
	if published > 0 {
		slog.Info("demand sweep complete", "flights", len(upcoming), "events", published)
	}
}
