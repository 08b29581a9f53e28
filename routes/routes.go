package routes

import (
	"time"

	"marketlink/handlers"
	"marketlink/middleware"
	"marketlink/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the booking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware())
		bookingGroup.POST("", middleware.RequireRole(models.RoleSeeker), hb.CreateBookingHandler)
		bookingGroup.GET("", hb.ListBookingsHandler)
		bookingGroup.GET("/stream", hb.StreamBookingsHandler)
		bookingGroup.GET("/:id", hb.GetBookingHandler)
		bookingGroup.GET("/:id/stream", hb.StreamBookingHandler)
		bookingGroup.POST("/:id/transitions", hb.TransitionBookingHandler)
	}
}

// RegisterConversationRoutes sets up the chat endpoints.
func RegisterConversationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	conversationGroup := r.Group("/api/conversations/:id")
	{
		conversationGroup.Use(middleware.JWTAuthMiddleware())
		conversationGroup.GET("/messages", hb.ListMessagesHandler)
		conversationGroup.POST("/messages", hb.SendMessageHandler)
		conversationGroup.POST("/attachments", hb.SendAttachmentHandler)
		conversationGroup.GET("/ws", hb.WatchConversationHandler)
	}
}

// RegisterDeviceRoutes sets up push token registration.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	deviceGroup := r.Group("/api/devices")
	{
		deviceGroup.Use(middleware.JWTAuthMiddleware())
		deviceGroup.PUT("/fcm-token", hb.RegisterFCMTokenHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterConversationRoutes(r, hb)
	RegisterDeviceRoutes(r, hb)
}
