package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking endpoints
	CreateBookingHandler     gin.HandlerFunc
	ListBookingsHandler      gin.HandlerFunc
	StreamBookingsHandler    gin.HandlerFunc
	GetBookingHandler        gin.HandlerFunc
	StreamBookingHandler     gin.HandlerFunc
	TransitionBookingHandler gin.HandlerFunc

	// Conversation endpoints
	ListMessagesHandler      gin.HandlerFunc
	SendMessageHandler       gin.HandlerFunc
	SendAttachmentHandler    gin.HandlerFunc
	WatchConversationHandler gin.HandlerFunc

	// Device endpoints
	RegisterFCMTokenHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle collects the handlers' methods.
func NewHandlerBundle(b *BookingHandler, conv *ConversationHandler, dev *DeviceHandler) *HandlerBundle {
	return &HandlerBundle{
		CreateBookingHandler:     b.CreateBookingHandler,
		ListBookingsHandler:      b.ListBookingsHandler,
		StreamBookingsHandler:    b.StreamBookingsHandler,
		GetBookingHandler:        b.GetBookingHandler,
		StreamBookingHandler:     b.StreamBookingHandler,
		TransitionBookingHandler: b.TransitionBookingHandler,

		ListMessagesHandler:      conv.ListMessagesHandler,
		SendMessageHandler:       conv.SendMessageHandler,
		SendAttachmentHandler:    conv.SendAttachmentHandler,
		WatchConversationHandler: conv.WatchConversationHandler,

		RegisterFCMTokenHandler: dev.RegisterFCMTokenHandler,

		HealthHandler: HealthHandler,
	}
}
