package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kargin-dv/skyfare/internal/domain"
	"github.com/kargin-dv/skyfare/internal/service/flights"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/search", h.search)
	router.GET("/:id", h.get)
}

func (h *FlightHandler) search(c *gin.Context) {
	input := flights.SearchInput{
		Origin:        c.Query("origin"),
		Destination:   c.Query("destination"),
		DepartureDate: c.Query("departure_date"),
		SeatClass:     domain.SeatClass(c.DefaultQuery("seat_class", string(domain.SeatClassEconomy))),
		SortBy:        c.Query("sort_by"),
	}

	quotes, err := h.service.Search(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}

	detail, err := h.service.GetDetail(c.Request.Context(), id, domain.SeatClass(c.DefaultQuery("seat_class", string(domain.SeatClassEconomy))))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
