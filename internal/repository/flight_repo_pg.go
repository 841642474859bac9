package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kargin-dv/skyfare/internal/domain"
)

// FlightSeat pairs a flight with one of its seat-class pools, as read by the
// search and quote paths. Read-only: prices computed from it may be slightly
// stale under concurrent booking, which is fine because the ledger recomputes
// authoritatively inside its transaction.
type FlightSeat struct {
	Flight domain.Flight
	Seat   domain.SeatInventory
}

type FlightRepository interface {
	Search(ctx context.Context, origin, destination string, date time.Time, class domain.SeatClass) ([]FlightSeat, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetSeatInventory(ctx context.Context, flightID int64, class domain.SeatClass) (*domain.SeatInventory, error)
	ListSeatInventories(ctx context.Context, flightID int64) ([]domain.SeatInventory, error)
	ListDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `f.id, f.flight_number, a.airline_name, f.origin, f.destination, f.departure_time, f.arrival_time, f.base_price, f.total_seats`

func (r *PGFlightRepository) Search(ctx context.Context, origin, destination string, date time.Time, class domain.SeatClass) ([]FlightSeat, error) {
	dayStart := date.Truncate(24 * time.Hour)
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+`, s.id, s.initial_inventory, s.available_seats, s.price_multiplier
		FROM flights f
		JOIN airlines a ON a.id = f.airline_id
		JOIN seats s ON s.flight_id = f.id AND s.seat_class = $4
		WHERE f.origin = $1 AND f.destination = $2
		AND f.departure_time >= $3 AND f.departure_time < $3 + interval '1 day'
		ORDER BY f.departure_time`, origin, destination, dayStart, class)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]FlightSeat, 0)
	for rows.Next() {
		var fs FlightSeat
		if err := rows.Scan(
			&fs.Flight.ID, &fs.Flight.FlightNumber, &fs.Flight.AirlineName,
			&fs.Flight.Origin, &fs.Flight.Destination,
			&fs.Flight.DepartureTime, &fs.Flight.ArrivalTime,
			&fs.Flight.BasePrice, &fs.Flight.TotalSeats,
			&fs.Seat.ID, &fs.Seat.InitialInventory, &fs.Seat.AvailableSeats, &fs.Seat.PriceMultiplier,
		); err != nil {
			return nil, err
		}
		fs.Seat.FlightID = fs.Flight.ID
		fs.Seat.SeatClass = class
		results = append(results, fs)
	}
	return results, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+`
		FROM flights f
		JOIN airlines a ON a.id = f.airline_id
		WHERE f.id = $1`, id)
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.AirlineName, &f.Origin, &f.Destination,
		&f.DepartureTime, &f.ArrivalTime, &f.BasePrice, &f.TotalSeats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: flight %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) GetSeatInventory(ctx context.Context, flightID int64, class domain.SeatClass) (*domain.SeatInventory, error) {
	row := r.db.QueryRow(ctx, `SELECT id, flight_id, seat_class, initial_inventory, available_seats, price_multiplier
		FROM seats WHERE flight_id = $1 AND seat_class = $2`, flightID, class)
	var s domain.SeatInventory
	if err := row.Scan(&s.ID, &s.FlightID, &s.SeatClass, &s.InitialInventory, &s.AvailableSeats, &s.PriceMultiplier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: seat class %s on flight %d", domain.ErrNotFound, class, flightID)
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGFlightRepository) ListSeatInventories(ctx context.Context, flightID int64) ([]domain.SeatInventory, error) {
	rows, err := r.db.Query(ctx, `SELECT id, flight_id, seat_class, initial_inventory, available_seats, price_multiplier
		FROM seats WHERE flight_id = $1 ORDER BY id`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.SeatInventory, 0)
	for rows.Next() {
		var s domain.SeatInventory
		if err := rows.Scan(&s.ID, &s.FlightID, &s.SeatClass, &s.InitialInventory, &s.AvailableSeats, &s.PriceMultiplier); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *PGFlightRepository) ListDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+`
		FROM flights f
		JOIN airlines a ON a.id = f.airline_id
		WHERE f.departure_time >= $1 AND f.departure_time < $2
		ORDER BY f.departure_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := rows.Scan(&f.ID, &f.FlightNumber, &f.AirlineName, &f.Origin, &f.Destination,
			&f.DepartureTime, &f.ArrivalTime, &f.BasePrice, &f.TotalSeats); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
