package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

type Booking struct {
	ID          int64         `json:"booking_id"`
	FlightID    int64         `json:"flight_id"`
	UserID      int64         `json:"user_id"`
	SeatClass   SeatClass     `json:"seat_class"`
	SeatsBooked int           `json:"seats_booked"`
	FinalPrice  float64       `json:"final_price"`
	BookingDate time.Time     `json:"booking_date"`
	Status      BookingStatus `json:"status"`
	PNR         string        `json:"pnr"`
	Passengers  []Passenger   `json:"passengers,omitempty"`
}

type Passenger struct {
	BookingID int64  `json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LedgerEntry is one row of the append-only payment ledger. Amount is signed:
// positive for a charge, negative for a refund.
type LedgerEntry struct {
	ID            int64     `json:"transaction_id"`
	BookingID     int64     `json:"booking_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"transaction_date"`
}

// HistoryEntry is one row of the append-only booking audit trail.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	Action      string    `json:"action"`
	Details     string    `json:"details"`
	PerformedAt time.Time `json:"performed_at"`
}

const (
	HistoryActionCreated   = "CREATED"
	HistoryActionCancelled = "CANCELLED"
)

// PricingSummary accompanies a freshly created booking.
type PricingSummary struct {
	PricePerSeat float64 `json:"price_per_seat"`
	SeatsBooked  int     `json:"seats_booked"`
	TotalPrice   float64 `json:"total_price"`
}

// Refund is the outcome of a cancellation.
type Refund struct {
	Percentage int     `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// UserBooking is a booking joined with its flight for listing purposes.
type UserBooking struct {
	Booking
	FlightNumber  string    `json:"flight_number"`
	AirlineName   string    `json:"airline_name"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}
