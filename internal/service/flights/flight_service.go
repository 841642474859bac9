package flights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kargin-dv/skyfare/internal/cache"
	"github.com/kargin-dv/skyfare/internal/domain"
	"github.com/kargin-dv/skyfare/internal/metrics"
	"github.com/kargin-dv/skyfare/internal/pricing"
	"github.com/kargin-dv/skyfare/internal/repository"
)

type FlightUseCase interface {
	Search(ctx context.Context, input SearchInput) ([]domain.FlightQuote, error)
	GetDetail(ctx context.Context, flightID int64, class domain.SeatClass) (*domain.FlightDetail, error)
	QuotePrice(ctx context.Context, flightID int64, class domain.SeatClass, seats int) (*PricingBreakdown, error)
	DemandSnapshots(ctx context.Context, flightID int64) ([]DemandSnapshot, error)
}

// SearchCache is the read-through cache for search result sets.
type SearchCache interface {
	GetSearch(ctx context.Context, key string) ([]domain.FlightQuote, error)
	SetSearch(ctx context.Context, key string, quotes []domain.FlightQuote) error
}

// BookingCounter supplies recent-booking counts for velocity analytics.
type BookingCounter interface {
	CountRecent(ctx context.Context, flightID int64, since time.Time) (int, error)
}

type SearchInput struct {
	Origin        string
	Destination   string
	DepartureDate string
	SeatClass     domain.SeatClass
	SortBy        string
}

// PricingBreakdown decomposes a dynamic price for the analytics surface.
type PricingBreakdown struct {
	FlightID            int64            `json:"flight_id"`
	FlightNumber        string           `json:"flight_number"`
	SeatClass           domain.SeatClass `json:"seat_class"`
	BasePrice           float64          `json:"base_price"`
	SeatClassMultiplier float64          `json:"seat_class_multiplier"`
	BasePriceForClass   float64          `json:"base_price_for_class"`
	DynamicPrice        float64          `json:"dynamic_price"`
	PriceDifference     float64          `json:"price_difference"`
	SeatsRequested      int              `json:"seats_requested"`
	TotalPrice          float64          `json:"total_price"`
	Factors             pricing.Factors  `json:"pricing_factors"`
}

// DemandSnapshot is one seat class's observed demand at a point in time.
type DemandSnapshot struct {
	FlightID        int64            `json:"flight_id"`
	FlightNumber    string           `json:"flight_number"`
	SeatClass       domain.SeatClass `json:"seat_class"`
	OccupancyRatio  float64          `json:"occupancy_ratio"`
	BookingVelocity float64          `json:"booking_velocity"`
	DemandLevel     string           `json:"demand_level"`
}

type FlightService struct {
	repo           repository.FlightRepository
	bookings       BookingCounter
	cache          SearchCache
	velocityWindow time.Duration
	now            func() time.Time
}

type FlightServiceOption func(*FlightService)

// WithClock overrides the time source, for deterministic pricing in tests.
func WithClock(now func() time.Time) FlightServiceOption {
	return func(s *FlightService) {
		s.now = now
	}
}

func NewFlightService(
	repo repository.FlightRepository,
	bookings BookingCounter,
	searchCache SearchCache,
	velocityWindow time.Duration,
	opts ...FlightServiceOption,
) *FlightService {
	service := &FlightService{
		repo:           repo,
		bookings:       bookings,
		cache:          searchCache,
		velocityWindow: velocityWindow,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *FlightService) Search(ctx context.Context, input SearchInput) ([]domain.FlightQuote, error) {
	if err := validateSearch(&input); err != nil {
		return nil, err
	}
	metrics.SearchRequests.Inc()

	key := cache.SearchKey(input.Origin, input.Destination, input.DepartureDate, input.SeatClass, input.SortBy)
	if s.cache != nil {
		if cached, err := s.cache.GetSearch(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	date, _ := time.Parse("2006-01-02", input.DepartureDate)
	rows, err := s.repo.Search(ctx, input.Origin, input.Destination, date, input.SeatClass)
	if err != nil {
		return nil, err
	}

	now := s.now()
	quotes := make([]domain.FlightQuote, 0, len(rows))
	for _, row := range rows {
		price, err := pricing.Quote(pricing.QuoteInput{
			BasePrice:       row.Flight.BasePrice,
			ClassMultiplier: row.Seat.PriceMultiplier,
			AvailableSeats:  row.Seat.AvailableSeats,
			TotalSeats:      row.Flight.TotalSeats,
			DepartureTime:   row.Flight.DepartureTime,
			DemandLevel:     pricing.DemandMedium,
		}, now)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, domain.FlightQuote{
			Flight:         row.Flight,
			SeatClass:      input.SeatClass,
			AvailableSeats: row.Seat.AvailableSeats,
			DynamicPrice:   price,
		})
	}

	sortQuotes(quotes, input.SortBy)

	if s.cache != nil {
		_ = s.cache.SetSearch(ctx, key, quotes)
	}
	return quotes, nil
}

func (s *FlightService) GetDetail(ctx context.Context, flightID int64, class domain.SeatClass) (*domain.FlightDetail, error) {
	if class == "" {
		class = domain.SeatClassEconomy
	}
	if !domain.ValidSeatClass(class) {
		return nil, fmt.Errorf("%w: unknown seat class %q", domain.ErrInvalid, class)
	}

	flight, err := s.repo.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seats, err := s.repo.ListSeatInventories(ctx, flightID)
	if err != nil {
		return nil, err
	}

	var requested *domain.SeatInventory
	for i := range seats {
		if seats[i].SeatClass == class {
			requested = &seats[i]
			break
		}
	}
	if requested == nil {
		return nil, fmt.Errorf("%w: seat class %s on flight %d", domain.ErrNotFound, class, flightID)
	}

	price, err := pricing.Quote(pricing.QuoteInput{
		BasePrice:       flight.BasePrice,
		ClassMultiplier: requested.PriceMultiplier,
		AvailableSeats:  requested.AvailableSeats,
		TotalSeats:      flight.TotalSeats,
		DepartureTime:   flight.DepartureTime,
		DemandLevel:     pricing.DemandMedium,
	}, s.now())
	if err != nil {
		return nil, err
	}

	return &domain.FlightDetail{
		Flight:         *flight,
		SeatClass:      class,
		AvailableSeats: requested.AvailableSeats,
		DynamicPrice:   price,
		Seats:          seats,
	}, nil
}

func (s *FlightService) QuotePrice(ctx context.Context, flightID int64, class domain.SeatClass, seats int) (*PricingBreakdown, error) {
	if class == "" {
		class = domain.SeatClassEconomy
	}
	if !domain.ValidSeatClass(class) {
		return nil, fmt.Errorf("%w: unknown seat class %q", domain.ErrInvalid, class)
	}
	if seats < 1 || seats > 9 {
		return nil, fmt.Errorf("%w: seats must be between 1 and 9", domain.ErrInvalid)
	}

	flight, err := s.repo.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seat, err := s.repo.GetSeatInventory(ctx, flightID, class)
	if err != nil {
		return nil, err
	}

	now := s.now()
	in := pricing.QuoteInput{
		BasePrice:       flight.BasePrice,
		ClassMultiplier: seat.PriceMultiplier,
		AvailableSeats:  seat.AvailableSeats,
		TotalSeats:      flight.TotalSeats,
		DepartureTime:   flight.DepartureTime,
		DemandLevel:     pricing.DemandMedium,
	}
	price, err := pricing.Quote(in, now)
	if err != nil {
		return nil, err
	}

	recent := 0
	if s.bookings != nil {
		recent, err = s.bookings.CountRecent(ctx, flightID, now.Add(-s.velocityWindow))
		if err != nil {
			return nil, err
		}
	}
	factors, err := pricing.QuoteFactors(in, recent, now)
	if err != nil {
		return nil, err
	}

	baseForClass := pricing.Round2(flight.BasePrice * seat.PriceMultiplier)
	return &PricingBreakdown{
		FlightID:            flight.ID,
		FlightNumber:        flight.FlightNumber,
		SeatClass:           class,
		BasePrice:           flight.BasePrice,
		SeatClassMultiplier: seat.PriceMultiplier,
		BasePriceForClass:   baseForClass,
		DynamicPrice:        price,
		PriceDifference:     pricing.Round2(price - baseForClass),
		SeatsRequested:      seats,
		TotalPrice:          pricing.Round2(price * float64(seats)),
		Factors:             factors,
	}, nil
}

func (s *FlightService) DemandSnapshots(ctx context.Context, flightID int64) ([]DemandSnapshot, error) {
	flight, err := s.repo.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seats, err := s.repo.ListSeatInventories(ctx, flightID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	recent := 0
	if s.bookings != nil {
		recent, err = s.bookings.CountRecent(ctx, flightID, now.Add(-s.velocityWindow))
		if err != nil {
			return nil, err
		}
	}

	snapshots := make([]DemandSnapshot, 0, len(seats))
	for _, seat := range seats {
		factors, err := pricing.QuoteFactors(pricing.QuoteInput{
			BasePrice:       flight.BasePrice,
			ClassMultiplier: seat.PriceMultiplier,
			AvailableSeats:  seat.AvailableSeats,
			TotalSeats:      flight.TotalSeats,
			DepartureTime:   flight.DepartureTime,
		}, recent, now)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, DemandSnapshot{
			FlightID:        flight.ID,
			FlightNumber:    flight.FlightNumber,
			SeatClass:       seat.SeatClass,
			OccupancyRatio:  factors.OccupancyRatio,
			BookingVelocity: factors.BookingVelocity,
			DemandLevel:     factors.DemandLevel,
		})
	}
	return snapshots, nil
}

func validateSearch(input *SearchInput) error {
	if len(input.Origin) != 3 || len(input.Destination) != 3 {
		return fmt.Errorf("%w: origin and destination must be 3-letter airport codes", domain.ErrInvalid)
	}
	if _, err := time.Parse("2006-01-02", input.DepartureDate); err != nil {
		return fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", domain.ErrInvalid)
	}
	if input.SeatClass == "" {
		input.SeatClass = domain.SeatClassEconomy
	}
	if !domain.ValidSeatClass(input.SeatClass) {
		return fmt.Errorf("%w: unknown seat class %q", domain.ErrInvalid, input.SeatClass)
	}
	switch input.SortBy {
	case "", "price", "duration", "departure_time":
	default:
		return fmt.Errorf("%w: sort_by must be price, duration or departure_time", domain.ErrInvalid)
	}
	return nil
}

func sortQuotes(quotes []domain.FlightQuote, sortBy string) {
	switch sortBy {
	case "price":
		sort.SliceStable(quotes, func(i, j int) bool {
			return quotes[i].DynamicPrice < quotes[j].DynamicPrice
		})
	case "duration":
		sort.SliceStable(quotes, func(i, j int) bool {
			return quotes[i].ArrivalTime.Sub(quotes[i].DepartureTime) < quotes[j].ArrivalTime.Sub(quotes[j].DepartureTime)
		})
	case "departure_time":
		sort.SliceStable(quotes, func(i, j int) bool {
			return quotes[i].DepartureTime.Before(quotes[j].DepartureTime)
		})
	}
}

var _ FlightUseCase = (*FlightService)(nil)
