package email

import (
	"context"
	"log/slog"

	"github.com/kargin-dv/skyfare/internal/kafka"
)

// Sender is a stand-in for a real mail provider: it logs what would be sent.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		return nil
	}
	slog.InfoContext(ctx, "sending booking email",
		"to", event.Email,
		"event", event.Type,
		"pnr", event.PNR,
		"flight_id", event.FlightID,
		"seats", event.SeatsBooked,
	)
	return nil
}
