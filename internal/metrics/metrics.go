package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skyfare_bookings_created_total",
		Help: "Bookings committed successfully.",
	})
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skyfare_bookings_cancelled_total",
		Help: "Bookings cancelled successfully.",
	})
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skyfare_booking_conflicts_total",
		Help: "Booking attempts rejected for insufficient inventory or lock contention.",
	})
	SearchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skyfare_search_requests_total",
		Help: "Flight search requests served.",
	})
)

// Handler exposes the prometheus registry for the /metrics route.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
