package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kargin-dv/skyfare/internal/domain"
	"github.com/kargin-dv/skyfare/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	FlightID      int64              `json:"flight_id"`
	UserID        int64              `json:"user_id"`
	SeatClass     string             `json:"seat_class"`
	SeatsCount    int                `json:"seats_count"`
	PaymentMethod string             `json:"payment_method"`
	Passengers    []domain.Passenger `json:"passengers"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.POST("/:id/cancel", h.cancel)
}

// RegisterUserRoutes wires the per-user booking listing.
func (h *BookingHandler) RegisterUserRoutes(router *gin.RouterGroup) {
	router.GET("/:id/bookings", h.userBookings)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SeatClass == "" {
		req.SeatClass = string(domain.SeatClassEconomy)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "Credit Card"
	}

	result, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		FlightID:      req.FlightID,
		UserID:        req.UserID,
		SeatClass:     domain.SeatClass(req.SeatClass),
		SeatsCount:    req.SeatsCount,
		PaymentMethod: req.PaymentMethod,
		Passengers:    req.Passengers,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":         true,
		"message":         "Booking created successfully",
		"booking":         result.Booking,
		"pricing_summary": result.PricingSummary,
	})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"booking_id": result.BookingID,
		"status":     result.Status,
		"refund":     result.Refund,
	})
}

func (h *BookingHandler) userBookings(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	bookings, err := h.service.GetUserBookings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"user_id":  userID,
		"count":    len(bookings),
		"bookings": bookings,
	})
}
