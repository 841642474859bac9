package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kargin-dv/skyfare/internal/domain"
	"github.com/kargin-dv/skyfare/internal/service/flights"
)

type PricingHandler struct {
	service flights.FlightUseCase
}

func NewPricingHandler(service flights.FlightUseCase) *PricingHandler {
	return &PricingHandler{service: service}
}

func (h *PricingHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights/:id", h.quote)
	router.GET("/flights/:id/demand", h.demand)
}

func (h *PricingHandler) quote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}
	seats, err := strconv.Atoi(c.DefaultQuery("seats", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seats"})
		return
	}

	breakdown, err := h.service.QuotePrice(c.Request.Context(), id,
		domain.SeatClass(c.DefaultQuery("seat_class", string(domain.SeatClassEconomy))), seats)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"flight_id":             breakdown.FlightID,
		"flight_number":         breakdown.FlightNumber,
		"seat_class":            breakdown.SeatClass,
		"base_price":            breakdown.BasePrice,
		"seat_class_multiplier": breakdown.SeatClassMultiplier,
		"base_price_for_class":  breakdown.BasePriceForClass,
		"dynamic_price":         breakdown.DynamicPrice,
		"price_difference":      breakdown.PriceDifference,
		"seats_requested":       breakdown.SeatsRequested,
		"total_price":           breakdown.TotalPrice,
		"pricing_factors":       breakdown.Factors,
	})
}

func (h *PricingHandler) demand(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}

	snapshots, err := h.service.DemandSnapshots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}
