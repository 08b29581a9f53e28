package handlers

import (
	"net/http"

	"marketlink/services/notification"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	Tokens notification.TokenDirectory
}

func NewDeviceHandler(tokens notification.TokenDirectory) *DeviceHandler {
	return &DeviceHandler{Tokens: tokens}
}

// RegisterFCMTokenHandler stores the caller's push token; an empty token unregisters.
func (h *DeviceHandler) RegisterFCMTokenHandler(c *gin.Context) {
	partyID, role, ok := caller(c)
	if !ok {
		return
	}
	var input struct {
		Token string `json:"fcmToken"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if err := h.Tokens.SetToken(c.Request.Context(), role, partyID, input.Token); err != nil {
		getLogger(c).Error("failed to store FCM token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token updated"})
}
