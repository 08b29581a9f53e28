package handlers

import (
	"net/http"
	"time"

	"marketlink/middleware"
	"marketlink/models"
	"marketlink/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const streamKeepAlive = 25 * time.Second

type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(service booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: service}
}

func caller(c *gin.Context) (string, models.Role, bool) {
	partyID, role, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Caller identity not found in context"})
	}
	return partyID, role, ok
}

// CreateBookingHandler books a service for the calling seeker.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	partyID, _, ok := caller(c)
	if !ok {
		return
	}
	var draft models.BookingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	draft.SeekerID = partyID

	b, err := h.Service.Create(c.Request.Context(), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	partyID, role, ok := caller(c)
	if !ok {
		return
	}
	bookings, err := h.Service.ListForParty(c.Request.Context(), partyID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// loadOwned fetches a booking and checks the caller is on it.
func (h *BookingHandler) loadOwned(c *gin.Context) (models.Booking, bool) {
	partyID, role, ok := caller(c)
	if !ok {
		return models.Booking{}, false
	}
	b, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return models.Booking{}, false
	}
	if b.PartyFor(role) != partyID {
		respondError(c, booking.ErrNotParty)
		return models.Booking{}, false
	}
	return b, true
}

func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, ok := h.loadOwned(c)
	if !ok {
		return
	}
	_, role, _ := middleware.Identity(c)
	c.JSON(http.StatusOK, gin.H{"booking": b, "allowed": booking.Allowed(b, role)})
}

// TransitionBookingHandler cancels or completes a booking on behalf of the caller.
func (h *BookingHandler) TransitionBookingHandler(c *gin.Context) {
	partyID, role, ok := caller(c)
	if !ok {
		return
	}
	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := h.Service.CommitByID(c.Request.Context(), c.Param("id"), partyID, role, req)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("booking transitioned",
		zap.String("bookingId", b.ID),
		zap.String("status", string(b.Status)),
		zap.Int64("version", b.Version))
	c.JSON(http.StatusOK, b)
}

// StreamBookingHandler serves one booking as server-sent events until the client
// goes away.
func (h *BookingHandler) StreamBookingHandler(c *gin.Context) {
	b, ok := h.loadOwned(c)
	if !ok {
		return
	}
	sub, err := h.Service.WatchOne(c.Request.Context(), b.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()
	stream(c, "booking", sub.Updates())
}

// StreamBookingsHandler serves the caller's booking list as server-sent events.
func (h *BookingHandler) StreamBookingsHandler(c *gin.Context) {
	partyID, role, ok := caller(c)
	if !ok {
		return
	}
	sub, err := h.Service.WatchFiltered(c.Request.Context(), partyID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()
	stream(c, "bookings", sub.Updates())
}
