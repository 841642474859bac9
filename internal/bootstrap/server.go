package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kargin-dv/skyfare/api"
	"github.com/kargin-dv/skyfare/config"
	"github.com/kargin-dv/skyfare/internal/metrics"
	"github.com/kargin-dv/skyfare/internal/middleware"
	"github.com/kargin-dv/skyfare/internal/service/booking"
	"github.com/kargin-dv/skyfare/internal/service/flights"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase) error {
	if cfg.HTTP.Mode != "" {
		gin.SetMode(cfg.HTTP.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	router.GET("/metrics", metrics.Handler())

	apiGroup := router.Group("/api")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
	})

	api.NewFlightHandler(flightSvc).Register(apiGroup.Group("/flights"))
	api.NewPricingHandler(flightSvc).Register(apiGroup.Group("/pricing"))

	bookingHandler := api.NewBookingHandler(bookingSvc)
	bookingHandler.Register(apiGroup.Group("/bookings"))
	bookingHandler.RegisterUserRoutes(apiGroup.Group("/users"))

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
