package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// BookingEvent is published on every booking state change.
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   int64     `json:"booking_id"`
	PNR         string    `json:"pnr"`
	FlightID    int64     `json:"flight_id"`
	UserID      int64     `json:"user_id"`
	SeatClass   string    `json:"seat_class"`
	SeatsBooked int       `json:"seats_booked"`
	TotalPrice  float64   `json:"total_price"`
	RefundPct   int       `json:"refund_percentage,omitempty"`
	RefundAmt   float64   `json:"refund_amount,omitempty"`
	Email       string    `json:"email,omitempty"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
)

// DemandEvent is published by the demand sweep worker for analytics.
type DemandEvent struct {
	Type            string    `json:"type"`
	FlightID        int64     `json:"flight_id"`
	FlightNumber    string    `json:"flight_number"`
	SeatClass       string    `json:"seat_class"`
	OccupancyRatio  float64   `json:"occupancy_ratio"`
	BookingVelocity float64   `json:"booking_velocity"`
	DemandLevel     string    `json:"demand_level"`
	ObservedAt      time.Time `json:"observed_at"`
}

const EventDemandUpdated = "demand_updated"

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
