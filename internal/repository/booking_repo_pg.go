package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kargin-dv/skyfare/internal/domain"
)

// QuoteFunc prices a booking from the flight and the pre-decrement seat row
// read inside the ledger transaction. It returns the per-seat and total
// price, both already rounded.
type QuoteFunc func(flight domain.Flight, seat domain.SeatInventory) (perSeat, total float64, err error)

// RefundFunc computes the refund owed when a booking with the given final
// price is cancelled against the given departure time.
type RefundFunc func(departure time.Time, finalPrice float64) domain.Refund

type NewBooking struct {
	FlightID      int64
	UserID        int64
	SeatClass     domain.SeatClass
	SeatsCount    int
	PaymentMethod string
	PNR           string
	Passengers    []domain.Passenger
}

// BookingRepository owns every mutation of seat inventory and the booking
// ledger. Create and Cancel each run as a single transaction: the seats row
// is locked for the duration, and either every write lands or none do.
type BookingRepository interface {
	Create(ctx context.Context, in NewBooking, quote QuoteFunc) (*domain.Booking, *domain.PricingSummary, error)
	Cancel(ctx context.Context, bookingID int64, refund RefundFunc) (*domain.Booking, *domain.Refund, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.UserBooking, error)
	CountRecent(ctx context.Context, flightID int64, since time.Time) (int, error)
}

type PGBookingRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewBookingRepository(db *pgxpool.Pool, lockTimeout time.Duration) BookingRepository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &PGBookingRepository{db: db, lockTimeout: lockTimeout}
}

const bookingColumns = `id, flight_id, user_id, seat_class, seats_booked, final_price, booking_date, status, pnr`

func (r *PGBookingRepository) Create(ctx context.Context, in NewBooking, quote QuoteFunc) (*domain.Booking, *domain.PricingSummary, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if err := r.setLockTimeout(ctx, tx); err != nil {
		return nil, nil, err
	}

	var flight domain.Flight
	if err := tx.QueryRow(ctx, `SELECT id, flight_number, origin, destination, departure_time, arrival_time, base_price, total_seats
		FROM flights WHERE id = $1`, in.FlightID).
		Scan(&flight.ID, &flight.FlightNumber, &flight.Origin, &flight.Destination,
			&flight.DepartureTime, &flight.ArrivalTime, &flight.BasePrice, &flight.TotalSeats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: flight %d", domain.ErrNotFound, in.FlightID)
		}
		return nil, nil, err
	}

	// Locks the inventory row so no other booking or cancellation against the
	// same (flight, class) interleaves with the read-price-write below.
	var seat domain.SeatInventory
	if err := tx.QueryRow(ctx, `SELECT id, flight_id, seat_class, initial_inventory, available_seats, price_multiplier
		FROM seats WHERE flight_id = $1 AND seat_class = $2 FOR UPDATE`, in.FlightID, in.SeatClass).
		Scan(&seat.ID, &seat.FlightID, &seat.SeatClass, &seat.InitialInventory, &seat.AvailableSeats, &seat.PriceMultiplier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: seat class %s on flight %d", domain.ErrNotFound, in.SeatClass, in.FlightID)
		}
		return nil, nil, lockAsConflict(err)
	}

	if seat.AvailableSeats < in.SeatsCount {
		return nil, nil, fmt.Errorf("%w: only %d seats available, requested %d",
			domain.ErrConflict, seat.AvailableSeats, in.SeatsCount)
	}

	// Priced from the pre-decrement availability.
	perSeat, total, err := quote(flight, seat)
	if err != nil {
		return nil, nil, err
	}

	booking := &domain.Booking{
		FlightID:    in.FlightID,
		UserID:      in.UserID,
		SeatClass:   in.SeatClass,
		SeatsBooked: in.SeatsCount,
		FinalPrice:  total,
		Status:      domain.BookingStatusConfirmed,
		PNR:         in.PNR,
	}
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (flight_id, user_id, seat_class, seats_booked, final_price, booking_date, status, pnr)
		VALUES ($1, $2, $3, $4, $5, now(), $6, $7)
		RETURNING id, booking_date`,
		booking.FlightID, booking.UserID, booking.SeatClass, booking.SeatsBooked,
		booking.FinalPrice, booking.Status, booking.PNR).
		Scan(&booking.ID, &booking.BookingDate); err != nil {
		return nil, nil, err
	}

	for _, p := range in.Passengers {
		if _, err := tx.Exec(ctx, `INSERT INTO passengers (booking_id, first_name, last_name, email, phone)
			VALUES ($1, $2, $3, $4, $5)`,
			booking.ID, p.FirstName, p.LastName, p.Email, p.Phone); err != nil {
			return nil, nil, err
		}
		p.BookingID = booking.ID
		booking.Passengers = append(booking.Passengers, p)
	}

	if _, err := tx.Exec(ctx, `UPDATE seats SET available_seats = available_seats - $1
		WHERE flight_id = $2 AND seat_class = $3`,
		in.SeatsCount, in.FlightID, in.SeatClass); err != nil {
		return nil, nil, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO transactions (booking_id, amount, payment_method, status, transaction_date)
		VALUES ($1, $2, $3, 'Completed', now())`,
		booking.ID, total, in.PaymentMethod); err != nil {
		return nil, nil, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO booking_history (booking_id, action, details, performed_at)
		VALUES ($1, $2, $3, now())`,
		booking.ID, domain.HistoryActionCreated,
		fmt.Sprintf("Booked %d seats in %s", in.SeatsCount, in.SeatClass)); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	summary := &domain.PricingSummary{
		PricePerSeat: perSeat,
		SeatsBooked:  in.SeatsCount,
		TotalPrice:   total,
	}
	return booking, summary, nil
}

func (r *PGBookingRepository) Cancel(ctx context.Context, bookingID int64, refund RefundFunc) (*domain.Booking, *domain.Refund, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if err := r.setLockTimeout(ctx, tx); err != nil {
		return nil, nil, err
	}

	var b domain.Booking
	if err := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID).
		Scan(&b.ID, &b.FlightID, &b.UserID, &b.SeatClass, &b.SeatsBooked,
			&b.FinalPrice, &b.BookingDate, &b.Status, &b.PNR); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, bookingID)
		}
		return nil, nil, lockAsConflict(err)
	}

	// Re-cancelling is a no-op: no mutation, nil refund signals the caller
	// that nothing changed.
	if b.Status == domain.BookingStatusCancelled {
		return &b, nil, nil
	}

	var departure time.Time
	if err := tx.QueryRow(ctx, `SELECT departure_time FROM flights WHERE id = $1`, b.FlightID).Scan(&departure); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: flight %d for booking %d", domain.ErrNotFound, b.FlightID, bookingID)
		}
		return nil, nil, err
	}

	rf := refund(departure, b.FinalPrice)

	var initial, available int
	if err := tx.QueryRow(ctx, `SELECT initial_inventory, available_seats
		FROM seats WHERE flight_id = $1 AND seat_class = $2 FOR UPDATE`, b.FlightID, b.SeatClass).
		Scan(&initial, &available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: seat class %s on flight %d", domain.ErrNotFound, b.SeatClass, b.FlightID)
		}
		return nil, nil, lockAsConflict(err)
	}

	// Restore clamped to the class capacity so stale or inconsistent rows can
	// never push inventory above what the flight actually has.
	newAvailable := available + b.SeatsBooked
	if newAvailable > initial {
		newAvailable = initial
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status = $1 WHERE id = $2`,
		domain.BookingStatusCancelled, b.ID); err != nil {
		return nil, nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE seats SET available_seats = $1
		WHERE flight_id = $2 AND seat_class = $3`, newAvailable, b.FlightID, b.SeatClass); err != nil {
		return nil, nil, err
	}
	if rf.Amount > 0 {
		if _, err := tx.Exec(ctx, `INSERT INTO transactions (booking_id, amount, payment_method, status, transaction_date)
			VALUES ($1, $2, 'REFUND', 'Completed', now())`, b.ID, -rf.Amount); err != nil {
			return nil, nil, err
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO booking_history (booking_id, action, details, performed_at)
		VALUES ($1, $2, $3, now())`,
		b.ID, domain.HistoryActionCancelled,
		fmt.Sprintf("Refund %d%% amount %.2f", rf.Percentage, rf.Amount)); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	b.Status = domain.BookingStatusCancelled
	return &b, &rf, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.FlightID, &b.UserID, &b.SeatClass, &b.SeatsBooked,
		&b.FinalPrice, &b.BookingDate, &b.Status, &b.PNR); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.UserBooking, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.flight_id, b.user_id, b.seat_class, b.seats_booked,
			b.final_price, b.booking_date, b.status, b.pnr,
			f.flight_number, a.airline_name, f.origin, f.destination, f.departure_time, f.arrival_time
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		JOIN airlines a ON a.id = f.airline_id
		WHERE b.user_id = $1
		ORDER BY b.booking_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.UserBooking, 0)
	for rows.Next() {
		var ub domain.UserBooking
		if err := rows.Scan(&ub.ID, &ub.FlightID, &ub.UserID, &ub.SeatClass, &ub.SeatsBooked,
			&ub.FinalPrice, &ub.BookingDate, &ub.Status, &ub.PNR,
			&ub.FlightNumber, &ub.AirlineName, &ub.Origin, &ub.Destination,
			&ub.DepartureTime, &ub.ArrivalTime); err != nil {
			return nil, err
		}
		bookings = append(bookings, ub)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) CountRecent(ctx context.Context, flightID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE flight_id = $1 AND status = $2 AND booking_date >= $3`,
		flightID, domain.BookingStatusConfirmed, since).Scan(&count)
	return count, err
}

func (r *PGBookingRepository) setLockTimeout(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds()))
	return err
}

// lockAsConflict maps a lock-wait timeout (PG 55P03) onto the Conflict class
// so contended rows surface as retryable to the caller instead of blocking.
func lockAsConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return fmt.Errorf("%w: inventory row is locked by another booking", domain.ErrConflict)
	}
	return err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
