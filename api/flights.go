package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/Domenick1991/flightcore/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type createFlightRequest struct {
	FlightNumber string    `json:"flight_number"`
	Source       string    `json:"source" binding:"required"`
	Destination  string    `json:"destination" binding:"required"`
	DepartureTS  time.Time `json:"departure_ts" binding:"required"`
	ArrivalTS    time.Time `json:"arrival_ts" binding:"required"`
	TotalSeats   int       `json:"total_seats"`
	PriceCents   int64     `json:"price_cents"`
}

type updateFlightRequest struct {
	FlightNumber *string    `json:"flight_number"`
	Source       *string    `json:"source"`
	Destination  *string    `json:"destination"`
	DepartureTS  *time.Time `json:"departure_ts"`
	ArrivalTS    *time.Time `json:"arrival_ts"`
	TotalSeats   *int       `json:"total_seats"`
	PriceCents   *int64     `json:"price_cents"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.POST("/", h.create)
	router.PATCH("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

func (h *FlightHandler) RegisterAirports(router *gin.RouterGroup) {
	router.GET("/airports", h.airports)
}

func (h *FlightHandler) list(c *gin.Context) {
	flights, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := h.service.Create(c.Request.Context(), flights.CreateFlightInput{
		FlightNumber: req.FlightNumber,
		Source:       req.Source,
		Destination:  req.Destination,
		DepartureTS:  req.DepartureTS,
		ArrivalTS:    req.ArrivalTS,
		TotalSeats:   req.TotalSeats,
		PriceCents:   req.PriceCents,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := h.service.Update(c.Request.Context(), id, domain.FlightUpdate{
		FlightNumber: req.FlightNumber,
		Source:       req.Source,
		Destination:  req.Destination,
		DepartureTS:  req.DepartureTS,
		ArrivalTS:    req.ArrivalTS,
		TotalSeats:   req.TotalSeats,
		PriceCents:   req.PriceCents,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlightHandler) airports(c *gin.Context) {
	airports, err := h.service.ListAirports(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, airports)
}
