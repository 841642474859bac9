package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kargin-dv/skyfare/internal/domain"
	"github.com/kargin-dv/skyfare/internal/kafka"
	"github.com/kargin-dv/skyfare/internal/metrics"
	"github.com/kargin-dv/skyfare/internal/pricing"
	"github.com/kargin-dv/skyfare/internal/repository"
)

const MaxSeatsPerBooking = 9

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error)
	CancelBooking(ctx context.Context, bookingID int64) (*CancellationResult, error)
	GetUserBookings(ctx context.Context, userID int64) ([]domain.UserBooking, error)
}

type Cache interface {
	AcquireBookingLock(ctx context.Context, flightID int64, class domain.SeatClass, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, flightID int64, class domain.SeatClass) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	now                func() time.Time
}

type CreateBookingInput struct {
	FlightID      int64              `json:"flight_id"`
	UserID        int64              `json:"user_id"`
	SeatClass     domain.SeatClass   `json:"seat_class"`
	SeatsCount    int                `json:"seats_count"`
	PaymentMethod string             `json:"payment_method"`
	Passengers    []domain.Passenger `json:"passengers"`
}

type BookingResult struct {
	Booking        domain.Booking        `json:"booking"`
	PricingSummary domain.PricingSummary `json:"pricing_summary"`
}

type CancellationResult struct {
	BookingID int64                `json:"booking_id"`
	Status    domain.BookingStatus `json:"status"`
	Refund    domain.Refund        `json:"refund"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithClock overrides the time source, for deterministic pricing in tests.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	lockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		lockTTL:      lockTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error) {
	if input.SeatsCount < 1 || input.SeatsCount > MaxSeatsPerBooking {
		return nil, fmt.Errorf("%w: seats_count must be between 1 and %d", domain.ErrInvalid, MaxSeatsPerBooking)
	}
	if !domain.ValidSeatClass(input.SeatClass) {
		return nil, fmt.Errorf("%w: unknown seat class %q", domain.ErrInvalid, input.SeatClass)
	}
	if len(input.Passengers) > 0 && len(input.Passengers) != input.SeatsCount {
		return nil, fmt.Errorf("%w: number of passengers must match seats_count", domain.ErrInvalid)
	}

	if s.cache != nil {
		ok, err := s.cache.AcquireBookingLock(ctx, input.FlightID, input.SeatClass, s.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			metrics.BookingConflicts.Inc()
			return nil, fmt.Errorf("%w: another booking for this seat class is in progress", domain.ErrConflict)
		}
		defer func() {
			_ = s.cache.ReleaseBookingLock(ctx, input.FlightID, input.SeatClass)
		}()
	}

	quote := func(flight domain.Flight, seat domain.SeatInventory) (float64, float64, error) {
		perSeat, err := pricing.Quote(pricing.QuoteInput{
			BasePrice:       flight.BasePrice,
			ClassMultiplier: seat.PriceMultiplier,
			AvailableSeats:  seat.AvailableSeats,
			TotalSeats:      flight.TotalSeats,
			DepartureTime:   flight.DepartureTime,
			DemandLevel:     pricing.DemandMedium,
		}, s.now())
		if err != nil {
			return 0, 0, err
		}
		return perSeat, pricing.Round2(perSeat * float64(input.SeatsCount)), nil
	}

	booking, summary, err := s.bookings.Create(ctx, repository.NewBooking{
		FlightID:      input.FlightID,
		UserID:        input.UserID,
		SeatClass:     input.SeatClass,
		SeatsCount:    input.SeatsCount,
		PaymentMethod: input.PaymentMethod,
		PNR:           GeneratePNR(),
		Passengers:    input.Passengers,
	}, quote)
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.publish(ctx, kafka.BookingEvent{
		Type:        kafka.EventBookingCreated,
		BookingID:   booking.ID,
		PNR:         booking.PNR,
		FlightID:    booking.FlightID,
		UserID:      booking.UserID,
		SeatClass:   string(booking.SeatClass),
		SeatsBooked: booking.SeatsBooked,
		TotalPrice:  booking.FinalPrice,
		Email:       contactEmail(booking.Passengers),
		Status:      string(booking.Status),
		OccurredAt:  s.now(),
	})

	return &BookingResult{Booking: *booking, PricingSummary: *summary}, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64) (*CancellationResult, error) {
	refundFn := func(departure time.Time, finalPrice float64) domain.Refund {
		pct := pricing.RefundPercentage(departure, s.now())
		return domain.Refund{
			Percentage: pct,
			Amount:     pricing.RefundAmount(finalPrice, pct),
		}
	}

	booking, refund, err := s.bookings.Cancel(ctx, bookingID, refundFn)
	if err != nil {
		return nil, err
	}

	// nil refund means the booking was already cancelled: report success with
	// a zero refund and publish nothing.
	if refund == nil {
		return &CancellationResult{
			BookingID: booking.ID,
			Status:    booking.Status,
			Refund:    domain.Refund{},
		}, nil
	}

	metrics.BookingsCancelled.Inc()
	s.publish(ctx, kafka.BookingEvent{
		Type:        kafka.EventBookingCancelled,
		BookingID:   booking.ID,
		PNR:         booking.PNR,
		FlightID:    booking.FlightID,
		UserID:      booking.UserID,
		SeatClass:   string(booking.SeatClass),
		SeatsBooked: booking.SeatsBooked,
		TotalPrice:  booking.FinalPrice,
		RefundPct:   refund.Percentage,
		RefundAmt:   refund.Amount,
		Status:      string(booking.Status),
		OccurredAt:  s.now(),
	})

	return &CancellationResult{
		BookingID: booking.ID,
		Status:    booking.Status,
		Refund:    *refund,
	}, nil
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID int64) ([]domain.UserBooking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// publish delivers the event best-effort: the booking is already committed,
// so a broker failure is logged rather than surfaced to the caller.
func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	key := fmt.Sprintf("%d", event.BookingID)
	if err := s.producer.Publish(ctx, s.bookingTopic, key, event); err != nil {
		slog.WarnContext(ctx, "failed to publish booking event", "type", event.Type, "booking_id", event.BookingID, "error", err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			slog.WarnContext(ctx, "failed to publish notification", "type", event.Type, "booking_id", event.BookingID, "error", err)
		}
	}
}

func contactEmail(passengers []domain.Passenger) string {
	for _, p := range passengers {
		if p.Email != "" {
			return p.Email
		}
	}
	return ""
}

var _ BookingUseCase = (*BookingService)(nil)
