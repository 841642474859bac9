package flights

import (
	"context"
	"testing"
	"time"

	"github.com/kargin-dv/skyfare/internal/cache"
	"github.com/kargin-dv/skyfare/internal/domain"
	"github.com/kargin-dv/skyfare/internal/pricing"
	"github.com/kargin-dv/skyfare/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) Search(ctx context.Context, origin, destination string, date time.Time, class domain.SeatClass) ([]repository.FlightSeat, error) {
	args := m.Called(ctx, origin, destination, date, class)
	return args.Get(0).([]repository.FlightSeat), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetSeatInventory(ctx context.Context, flightID int64, class domain.SeatClass) (*domain.SeatInventory, error) {
	args := m.Called(ctx, flightID, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SeatInventory), args.Error(1)
}

func (m *MockFlightRepository) ListSeatInventories(ctx context.Context, flightID int64) ([]domain.SeatInventory, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).([]domain.SeatInventory), args.Error(1)
}

func (m *MockFlightRepository) ListDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

type MockSearchCache struct {
	mock.Mock
}

func (m *MockSearchCache) GetSearch(ctx context.Context, key string) ([]domain.FlightQuote, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlightQuote), args.Error(1)
}

func (m *MockSearchCache) SetSearch(ctx context.Context, key string, quotes []domain.FlightQuote) error {
	args := m.Called(ctx, key, quotes)
	return args.Error(0)
}

type MockBookingCounter struct {
	mock.Mock
}

func (m *MockBookingCounter) CountRecent(ctx context.Context, flightID int64, since time.Time) (int, error) {
	args := m.Called(ctx, flightID, since)
	return args.Int(0), args.Error(1)
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testFlight(id int64, departure time.Time) domain.Flight {
	return domain.Flight{
		ID:            id,
		FlightNumber:  "SF101",
		AirlineName:   "SkyFare Air",
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(6 * time.Hour),
		BasePrice:     100,
		TotalSeats:    100,
	}
}

func TestFlightService_Search_ValidationErrors(t *testing.T) {
	service := NewFlightService(&MockFlightRepository{}, nil, nil, time.Hour)

	ctx := context.Background()

	testCases := []struct {
		name  string
		input SearchInput
	}{
		{"short origin", SearchInput{Origin: "JF", Destination: "LAX", DepartureDate: "2026-03-15"}},
		{"short destination", SearchInput{Origin: "JFK", Destination: "LA", DepartureDate: "2026-03-15"}},
		{"bad date", SearchInput{Origin: "JFK", Destination: "LAX", DepartureDate: "15-03-2026"}},
		{"unknown class", SearchInput{Origin: "JFK", Destination: "LAX", DepartureDate: "2026-03-15", SeatClass: "Premium"}},
		{"unknown sort key", SearchInput{Origin: "JFK", Destination: "LAX", DepartureDate: "2026-03-15", SortBy: "popularity"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quotes, err := service.Search(ctx, tc.input)
			assert.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalid)
			assert.Nil(t, quotes)
		})
	}
}

func TestFlightService_Search_PricesAndSortsResults(t *testing.T) {
	mockRepo := &MockFlightRepository{}

	service := NewFlightService(mockRepo, nil, nil, time.Hour, WithClock(fixedClock))

	ctx := context.Background()
	departure := testNow.Add(48 * time.Hour)

	// Same fare class, different occupancy: the fuller flight prices higher.
	rows := []repository.FlightSeat{
		{
			Flight: testFlight(1, departure),
			Seat:   domain.SeatInventory{FlightID: 1, SeatClass: domain.SeatClassEconomy, AvailableSeats: 10, PriceMultiplier: 1.0},
		},
		{
			Flight: testFlight(2, departure),
			Seat:   domain.SeatInventory{FlightID: 2, SeatClass: domain.SeatClassEconomy, AvailableSeats: 90, PriceMultiplier: 1.0},
		},
	}
	mockRepo.On("Search", ctx, "JFK", "LAX", mock.Anything, domain.SeatClassEconomy).Return(rows, nil).Once()

	quotes, err := service.Search(ctx, SearchInput{
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: "2026-03-12",
		SortBy:        "price",
	})

	assert.NoError(t, err)
	assert.Len(t, quotes, 2)

	// Sorted ascending by price: the emptier flight comes first.
	assert.Equal(t, int64(2), quotes[0].ID)
	assert.Equal(t, int64(1), quotes[1].ID)

	// 10% occupied, 2 days out: 100 * 1.0 * 1.0 * 1.8 = 180.
	assert.Equal(t, 180.00, quotes[0].DynamicPrice)
	// 90% occupied, 2 days out: 100 * 1.0 * 1.5 * 1.8 = 270.
	assert.Equal(t, 270.00, quotes[1].DynamicPrice)

	mockRepo.AssertExpectations(t)
}

func TestFlightService_Search_SortByDepartureTime(t *testing.T) {
	mockRepo := &MockFlightRepository{}

	service := NewFlightService(mockRepo, nil, nil, time.Hour, WithClock(fixedClock))

	ctx := context.Background()
	rows := []repository.FlightSeat{
		{
			Flight: testFlight(1, testNow.Add(72*time.Hour)),
			Seat:   domain.SeatInventory{SeatClass: domain.SeatClassEconomy, AvailableSeats: 50, PriceMultiplier: 1.0},
		},
		{
			Flight: testFlight(2, testNow.Add(50*time.Hour)),
			Seat:   domain.SeatInventory{SeatClass: domain.SeatClassEconomy, AvailableSeats: 50, PriceMultiplier: 1.0},
		},
	}
	mockRepo.On("Search", ctx, "JFK", "LAX", mock.Anything, domain.SeatClassEconomy).Return(rows, nil).Once()

	quotes, err := service.Search(ctx, SearchInput{
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: "2026-03-12",
		SortBy:        "departure_time",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(2), quotes[0].ID)
	assert.Equal(t, int64(1), quotes[1].ID)
}

func TestFlightService_Search_CacheHitSkipsRepository(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockSearchCache{}

	service := NewFlightService(mockRepo, nil, mockCache, time.Hour, WithClock(fixedClock))

	ctx := context.Background()
	cached := []domain.FlightQuote{
		{Flight: testFlight(1, testNow.Add(48*time.Hour)), SeatClass: domain.SeatClassEconomy, DynamicPrice: 180.00},
	}

	key := cache.SearchKey("JFK", "LAX", "2026-03-12", domain.SeatClassEconomy, "")
	mockCache.On("GetSearch", ctx, key).Return(cached, nil).Once()

	quotes, err := service.Search(ctx, SearchInput{
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: "2026-03-12",
	})

	assert.NoError(t, err)
	assert.Equal(t, cached, quotes)

	mockCache.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Search")
}

func TestFlightService_Search_CacheMissPopulatesCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockSearchCache{}

	service := NewFlightService(mockRepo, nil, mockCache, time.Hour, WithClock(fixedClock))

	ctx := context.Background()
	rows := []repository.FlightSeat{
		{
			Flight: testFlight(1, testNow.Add(48*time.Hour)),
			Seat:   domain.SeatInventory{SeatClass: domain.SeatClassEconomy, AvailableSeats: 50, PriceMultiplier: 1.0},
		},
	}

	key := cache.SearchKey("JFK", "LAX", "2026-03-12", domain.SeatClassEconomy, "")
	mockCache.On("GetSearch", ctx, key).Return(nil, nil).Once()
	mockRepo.On("Search", ctx, "JFK", "LAX", mock.Anything, domain.SeatClassEconomy).Return(rows, nil).Once()
	mockCache.On("SetSearch", ctx, key, mock.Anything).Return(nil).Once()

	quotes, err := service.Search(ctx, SearchInput{
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: "2026-03-12",
	})

	assert.NoError(t, err)
	assert.Len(t, quotes, 1)

	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_GetDetail_Success(t *testing.T) {
	mockRepo := &MockFlightRepository{}

	service := NewFlightService(mockRepo, nil, nil, time.Hour, WithClock(fixedClock))

	ctx := context.Background()
	flight := testFlight(1, testNow.Add(48*time.Hour))
	seats := []domain.SeatInventory{
		{FlightID: 1, SeatClass: domain.SeatClassEconomy, AvailableSeats: 50, PriceMultiplier: 1.0},
		{FlightID: 1, SeatClass: domain.SeatClassBusiness, AvailableSeats: 10, PriceMultiplier: 2.5},
	}

	mockRepo.On("GetByID", ctx, int64(1)).Return(&flight, nil).Once()
	mockRepo.On("ListSeatInventories", ctx, int64(1)).Return(seats, nil).Once()

	detail, err := service.GetDetail(ctx, 1, domain.SeatClassBusiness)

	assert.NoError(t, err)
	assert.Equal(t, domain.SeatClassBusiness, detail.SeatClass)
	assert.Equal(t, 10, detail.AvailableSeats)
	assert.Len(t, detail.Seats, 2)
	// 10 of 100 remaining is 90% occupancy, 2 days out: 100 * 2.5 * 1.5 * 1.8 = 675.
	assert.Equal(t, 675.00, detail.DynamicPrice)

	mockRepo.AssertExpectations(t)
}

func TestFlightService_GetDetail_MissingClass(t *testing.T) {
	mockRepo := &MockFlightRepository{}

	service := NewFlightService(mockRepo, nil, nil, time.Hour)

	ctx := context.Background()
	flight := testFlight(1, testNow.Add(48*time.Hour))
	seats := []domain.SeatInventory{
		{FlightID: 1, SeatClass: domain.SeatClassEconomy, AvailableSeats: 50, PriceMultiplier: 1.0},
	}

	mockRepo.On("GetByID", ctx, int64(1)).Return(&flight, nil).Once()
	mockRepo.On("ListSeatInventories", ctx, int64(1)).Return(seats, nil).Once()

	detail, err := service.GetDetail(ctx, 1, domain.SeatClassFirst)

	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, detail)
}

func TestFlightService_QuotePrice_Breakdown(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCounter := &MockBookingCounter{}

	service := NewFlightService(mockRepo, mockCounter, nil, time.Hour, WithClock(fixedClock))

	ctx := context.Background()
	flight := testFlight(1, testNow.Add(48*time.Hour))
	seat := domain.SeatInventory{FlightID: 1, SeatClass: domain.SeatClassBusiness, AvailableSeats: 10, PriceMultiplier: 2.5}

	mockRepo.On("GetByID", ctx, int64(1)).Return(&flight, nil).Once()
	mockRepo.On("GetSeatInventory", ctx, int64(1), domain.SeatClassBusiness).Return(&seat, nil).Once()
	mockCounter.On("CountRecent", ctx, int64(1), testNow.Add(-time.Hour)).Return(12, nil).Once()

	breakdown, err := service.QuotePrice(ctx, 1, domain.SeatClassBusiness, 2)

	assert.NoError(t, err)
	assert.Equal(t, "SF101", breakdown.FlightNumber)
	assert.Equal(t, 100.00, breakdown.BasePrice)
	assert.Equal(t, 2.5, breakdown.SeatClassMultiplier)
	assert.Equal(t, 250.00, breakdown.BasePriceForClass)
	assert.Equal(t, 675.00, breakdown.DynamicPrice)
	assert.Equal(t, 425.00, breakdown.PriceDifference)
	assert.Equal(t, 2, breakdown.SeatsRequested)
	assert.Equal(t, 1350.00, breakdown.TotalPrice)

	assert.Equal(t, 0.9, breakdown.Factors.OccupancyRatio)
	assert.Equal(t, 1.5, breakdown.Factors.OccupancyMultiplier)
	assert.Equal(t, 1.8, breakdown.Factors.TimeMultiplier)
	assert.Equal(t, 0.12, breakdown.Factors.BookingVelocity)
	assert.Equal(t, pricing.DemandHigh, breakdown.Factors.DemandLevel)

	mockRepo.AssertExpectations(t)
	mockCounter.AssertExpectations(t)
}

func TestFlightService_QuotePrice_InvalidSeats(t *testing.T) {
	service := NewFlightService(&MockFlightRepository{}, nil, nil, time.Hour)

	ctx := context.Background()
	for _, seats := range []int{0, 10} {
		breakdown, err := service.QuotePrice(ctx, 1, domain.SeatClassEconomy, seats)
		assert.ErrorIs(t, err, domain.ErrInvalid)
		assert.Nil(t, breakdown)
	}
}

func TestFlightService_DemandSnapshots(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCounter := &MockBookingCounter{}

	service := NewFlightService(mockRepo, mockCounter, nil, time.Hour, WithClock(fixedClock))

	ctx := context.Background()
	flight := testFlight(1, testNow.Add(48*time.Hour))
	seats := []domain.SeatInventory{
		{FlightID: 1, SeatClass: domain.SeatClassEconomy, AvailableSeats: 5, PriceMultiplier: 1.0},
		{FlightID: 1, SeatClass: domain.SeatClassBusiness, AvailableSeats: 90, PriceMultiplier: 2.5},
	}

	mockRepo.On("GetByID", ctx, int64(1)).Return(&flight, nil).Once()
	mockRepo.On("ListSeatInventories", ctx, int64(1)).Return(seats, nil).Once()
	mockCounter.On("CountRecent", ctx, int64(1), testNow.Add(-time.Hour)).Return(12, nil).Once()

	snapshots, err := service.DemandSnapshots(ctx, 1)

	assert.NoError(t, err)
	assert.Len(t, snapshots, 2)

	assert.Equal(t, domain.SeatClassEconomy, snapshots[0].SeatClass)
	assert.Equal(t, 0.95, snapshots[0].OccupancyRatio)
	assert.Equal(t, pricing.DemandHigh, snapshots[0].DemandLevel)

	assert.Equal(t, domain.SeatClassBusiness, snapshots[1].SeatClass)
	assert.Equal(t, 0.1, snapshots[1].OccupancyRatio)

	mockRepo.AssertExpectations(t)
	mockCounter.AssertExpectations(t)
}
