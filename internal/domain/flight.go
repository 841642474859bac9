package domain

import "time"

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "Economy"
	SeatClassBusiness SeatClass = "Business"
	SeatClassFirst    SeatClass = "First"
)

// ValidSeatClass reports whether class is one of the fare tiers the seat
// inventory is partitioned by.
func ValidSeatClass(class SeatClass) bool {
	switch class {
	case SeatClassEconomy, SeatClassBusiness, SeatClassFirst:
		return true
	}
	return false
}

type Flight struct {
	ID            int64     `json:"flight_id"`
	FlightNumber  string    `json:"flight_number"`
	AirlineName   string    `json:"airline_name"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	BasePrice     float64   `json:"base_price"`
	TotalSeats    int       `json:"total_seats"`
}

// SeatInventory is the per (flight, seat class) inventory pool.
// available_seats changes only inside a booking or cancellation transaction
// and stays within [0, initial_inventory].
type SeatInventory struct {
	ID               int64     `json:"seat_id"`
	FlightID         int64     `json:"flight_id"`
	SeatClass        SeatClass `json:"seat_class"`
	InitialInventory int       `json:"initial_inventory"`
	AvailableSeats   int       `json:"available_seats"`
	PriceMultiplier  float64   `json:"price_multiplier"`
}

// FlightQuote is a search result: a flight annotated with the dynamic price
// for the requested seat class.
type FlightQuote struct {
	Flight
	SeatClass      SeatClass `json:"seat_class"`
	AvailableSeats int       `json:"available_seats"`
	DynamicPrice   float64   `json:"dynamic_price"`
}

// FlightDetail is a single flight with all of its seat-class pools and the
// dynamic price for the requested class.
type FlightDetail struct {
	Flight
	SeatClass      SeatClass       `json:"seat_class"`
	AvailableSeats int             `json:"available_seats"`
	DynamicPrice   float64         `json:"dynamic_price"`
	Seats          []SeatInventory `json:"seats_available"`
}
