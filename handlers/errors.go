package handlers

import (
	"errors"
	"net/http"

	"marketlink/services/booking"
	"marketlink/services/chat"
	"marketlink/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		verr  *booking.ValidationError
		lerr  *booking.LifecycleError
		stale *booking.StaleStateError
		serr  *booking.SyncError
		uerr  *chat.UploadError
	)
	switch {
	case errors.As(err, &stale):
		getLogger(c).Info("stale booking state")
		c.JSON(http.StatusConflict, gin.H{
			"message": "Booking changed since it was loaded",
			"details": err.Error(),
			"current": stale.Current,
		})
	case errors.As(err, &verr):
		utils.JSONError(c, http.StatusBadRequest, "Invalid booking", err.Error())
	case errors.As(err, &lerr):
		status := http.StatusBadRequest
		if lerr.Kind == booking.KindRole {
			status = http.StatusForbidden
		}
		utils.JSONError(c, status, "Transition not allowed", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		utils.JSONError(c, http.StatusNotFound, "Booking not found", "")
	case errors.Is(err, chat.ErrInvalidConversation):
		utils.JSONError(c, http.StatusNotFound, "Conversation not found", "")
	case errors.Is(err, booking.ErrNotParty), errors.Is(err, chat.ErrNotParticipant):
		utils.JSONError(c, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, chat.ErrEmptyMessage):
		utils.JSONError(c, http.StatusBadRequest, "Message is empty", "")
	case errors.As(err, &uerr):
		utils.JSONError(c, http.StatusBadGateway, "Attachment upload failed", err.Error())
	case errors.As(err, &serr):
		utils.JSONError(c, http.StatusServiceUnavailable, "Booking store unavailable, please retry", err.Error())
	default:
		getLogger(c).Error("unhandled error")
		utils.JSONError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}
