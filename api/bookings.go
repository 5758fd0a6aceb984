package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/Domenick1991/flightcore/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	service reservation.ReservationUseCase
}

type reserveRequest struct {
	FlightID uuid.UUID `json:"flight_id" binding:"required"`
	Seats    int       `json:"seats" binding:"required"`
}

type bookingResponse struct {
	ID         uuid.UUID `json:"id"`
	FlightID   uuid.UUID `json:"flight_id"`
	UserID     uuid.UUID `json:"user_id"`
	Seats      int       `json:"seats"`
	Status     string    `json:"status"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	CreatedAt  string    `json:"created_at"`
}

func NewBookingHandler(service reservation.ReservationUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.reserve)
	router.GET("/", h.list)
	router.DELETE("/:id", h.cancel)
}

// requesterID reads the authenticated caller set by the auth layer, which is
// an external collaborator; the header is its hand-off.
func requesterID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *BookingHandler) reserve(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.service.Reserve(c.Request.Context(), reservation.ReserveInput{
		FlightID: req.FlightID,
		UserID:   userID,
		Seats:    req.Seats,
	})
	if errors.Is(err, domain.ErrUpstreamFailure) && booking != nil {
		// Not a hard error: the intent is recorded FAILED and the seats
		// were compensated.
		c.JSON(http.StatusPaymentRequired, toBookingResponse(booking))
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(booking))
}

func (h *BookingHandler) list(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListBookings(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := h.service.Cancel(c.Request.Context(), bookingID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:         b.ID,
		FlightID:   b.FlightID,
		UserID:     b.UserID,
		Seats:      b.Seats,
		Status:     string(b.Status),
		PaymentRef: b.PaymentRef,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}
