package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/flightcore/api"
	"github.com/Domenick1991/flightcore/config"
	"github.com/Domenick1991/flightcore/internal/service/flights"
	"github.com/Domenick1991/flightcore/internal/service/reservation"
	"github.com/Domenick1991/flightcore/internal/service/search"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, flightSvc flights.FlightUseCase, reservationSvc reservation.ReservationUseCase, searchSvc search.SearchUseCase) error {
	router := gin.New()
	router.Use(gin.Recovery())

	api.NewFlightHandler(flightSvc).Register(router.Group("/flights"))
	api.NewFlightHandler(flightSvc).RegisterAirports(router.Group("/"))
	api.NewBookingHandler(reservationSvc).Register(router.Group("/bookings"))
	api.NewSearchHandler(searchSvc).Register(router.Group("/search"))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
