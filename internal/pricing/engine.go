package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kargin-dv/skyfare/internal/domain"
)

// Demand levels accepted by the engine. Anything else prices as medium.
const (
	DemandHigh   = "high"
	DemandMedium = "medium"
	DemandLow    = "low"
)

// QuoteInput carries everything a price depends on besides the clock.
type QuoteInput struct {
	BasePrice       float64
	ClassMultiplier float64
	AvailableSeats  int
	TotalSeats      int
	DepartureTime   time.Time
	DemandLevel     string
}

// Quote computes the dynamic per-seat price:
//
//	base_price * class_multiplier * occupancy * time * demand
//
// rounded to two decimals. now is injected so callers and tests control the
// time axis. TotalSeats must be positive.
func Quote(in QuoteInput, now time.Time) (float64, error) {
	ratio, err := OccupancyRatio(in.AvailableSeats, in.TotalSeats)
	if err != nil {
		return 0, err
	}
	price := in.BasePrice * in.ClassMultiplier *
		OccupancyMultiplier(ratio) *
		TimeMultiplier(in.DepartureTime, now) *
		DemandMultiplier(in.DemandLevel)
	return Round2(price), nil
}

// OccupancyRatio is the sold fraction of the flight's seats.
func OccupancyRatio(availableSeats, totalSeats int) (float64, error) {
	if totalSeats <= 0 {
		return 0, fmt.Errorf("%w: total seats must be positive", domain.ErrInvalid)
	}
	return float64(totalSeats-availableSeats) / float64(totalSeats), nil
}

// OccupancyMultiplier steps up as the flight fills.
func OccupancyMultiplier(ratio float64) float64 {
	switch {
	case ratio >= 0.8:
		return 1.5
	case ratio >= 0.6:
		return 1.35
	case ratio >= 0.4:
		return 1.15
	default:
		return 1.0
	}
}

// TimeMultiplier steps up as departure approaches, from 2.0 within a day of
// departure down to 1.0 beyond thirty days.
func TimeMultiplier(departure, now time.Time) float64 {
	days := DaysUntil(departure, now)
	switch {
	case days <= 1:
		return 2.0
	case days <= 3:
		return 1.8
	case days <= 7:
		return 1.5
	case days <= 14:
		return 1.25
	case days <= 30:
		return 1.1
	default:
		return 1.0
	}
}

// DemandMultiplier scales by the qualitative demand level, case-insensitive.
func DemandMultiplier(level string) float64 {
	switch strings.ToLower(level) {
	case DemandHigh:
		return 1.4
	case DemandLow:
		return 0.8
	default:
		return 1.0
	}
}

// BookingVelocity is recent bookings as a fraction of total seats;
// zero when the flight has no seats.
func BookingVelocity(recentBookings, totalSeats int) float64 {
	if totalSeats <= 0 {
		return 0
	}
	return float64(recentBookings) / float64(totalSeats)
}

// DetermineDemandLevel derives a demand level from occupancy, booking
// velocity and time to departure. Not wired into the live price path; used
// by the analytics surface and the demand sweep worker.
func DetermineDemandLevel(occupancyRatio, bookingVelocity, daysUntilDeparture float64) string {
	if occupancyRatio >= 0.75 || bookingVelocity >= 0.25 || daysUntilDeparture <= 3 {
		return DemandHigh
	}
	if occupancyRatio <= 0.3 && bookingVelocity <= 0.08 && daysUntilDeparture > 14 {
		return DemandLow
	}
	return DemandMedium
}

// DaysUntil is the fractional number of days from now to departure.
func DaysUntil(departure, now time.Time) float64 {
	return departure.Sub(now).Hours() / 24
}

// Round2 rounds to two decimals, half away from zero. Every money value in
// the system goes through this helper so rounding stays uniform.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Factors is the analytics breakdown behind a quote.
type Factors struct {
	OccupancyRatio      float64 `json:"occupancy_ratio"`
	AvailableSeats      int     `json:"available_seats"`
	TotalSeats          int     `json:"total_seats"`
	DaysUntilDeparture  float64 `json:"days_until_departure"`
	RecentBookings      int     `json:"recent_bookings"`
	BookingVelocity     float64 `json:"booking_velocity"`
	DemandLevel         string  `json:"demand_level"`
	OccupancyMultiplier float64 `json:"occupancy_multiplier"`
	TimeMultiplier      float64 `json:"time_multiplier"`
	DemandMultiplier    float64 `json:"demand_multiplier"`
}

// QuoteFactors exposes the individual multipliers behind a quote, with the
// demand level derived from observed occupancy and booking velocity.
func QuoteFactors(in QuoteInput, recentBookings int, now time.Time) (Factors, error) {
	ratio, err := OccupancyRatio(in.AvailableSeats, in.TotalSeats)
	if err != nil {
		return Factors{}, err
	}
	days := DaysUntil(in.DepartureTime, now)
	if days < 0 {
		days = 0
	}
	velocity := BookingVelocity(recentBookings, in.TotalSeats)
	level := DetermineDemandLevel(ratio, velocity, days)
	return Factors{
		OccupancyRatio:      Round2(ratio),
		AvailableSeats:      in.AvailableSeats,
		TotalSeats:          in.TotalSeats,
		DaysUntilDeparture:  days,
		RecentBookings:      recentBookings,
		BookingVelocity:     math.Round(velocity*10000) / 10000,
		DemandLevel:         level,
		OccupancyMultiplier: OccupancyMultiplier(ratio),
		TimeMultiplier:      TimeMultiplier(in.DepartureTime, now),
		DemandMultiplier:    DemandMultiplier(level),
	}, nil
}
