package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"marketlink/config"
	"marketlink/cron"
	"marketlink/database"
	bookingRepo "marketlink/database/repository/booking"
	conversationRepo "marketlink/database/repository/conversation"
	"marketlink/handlers"
	"marketlink/middleware"
	"marketlink/routes"
	"marketlink/services/booking"
	"marketlink/services/chat"
	"marketlink/services/notification"
	"marketlink/services/storage"
	"marketlink/services/tasks"
	"marketlink/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync() //nolint:errcheck
	cfg := config.AppConfig

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to open document store: %v", err)
	}

	if err := utils.InitCache(); err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	var uploader storage.Uploader
	if cld, err := utils.Cloudinary(); err != nil {
		logger.Warn("main: attachments disabled", zap.Error(err))
	} else {
		uploader = storage.NewCloudinaryUploader(cld, cfg.CloudinaryFolder)
	}

	// repositories.
	bookings := bookingRepo.NewStoreBookingRepo(store, database.BookingsCollection)
	messages := conversationRepo.NewStoreConversationRepo(store, database.MessagesCollection)
	tokens := notification.NewRedisTokenDirectory(utils.GetCacheClient())

	// queue + relays.
	redisQueue := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
	queueClient := asynq.NewClient(redisQueue)
	defer queueClient.Close()

	relays := []notification.Relay{notification.NewQueueRelay(queueClient)}
	if cfg.RabbitMQURL != "" {
		amqpRelay := notification.NewAMQPRelay(cfg.RabbitMQURL, logger.Named("amqp"))
		defer amqpRelay.Close()
		relays = append(relays, amqpRelay)
	}
	relay := notification.NewMultiRelay(logger.Named("relay"), relays...)
	reminders := tasks.NewReminderScheduler(queueClient, cfg.ReminderLead)

	// services.
	chatService := chat.NewDefaultChatService(messages, uploader, bookings, logger.Named("chat"))
	bookingService := booking.NewDefaultBookingService(
		bookings,
		relay,
		chatService,
		reminders,
		booking.CommitPolicy{
			Timeout:     cfg.CommitTimeout,
			MaxAttempts: cfg.CommitMaxAttempts,
			Backoff:     cfg.CommitBackoff,
		},
		logger.Named("booking"),
	)

	// background delivery.
	var sender notification.Sender
	if fcm, err := utils.FCMClient(ctx); err != nil {
		logger.Warn("main: push notifications disabled", zap.Error(err))
		sender = notification.NewLogSender(logger.Named("push"))
	} else {
		sender = &notification.FCMSender{Client: fcm}
	}
	dispatcher := &notification.Dispatcher{
		Tokens: tokens,
		Sender: sender,
		Logger: logger.Named("push"),
	}
	worker := cron.NewWorker(redisQueue, bookingService, dispatcher, queueClient, logger.Named("worker"))
	worker.Start(ctx)

	utils.StartHealthMonitor(ctx, 30*time.Second, map[string]utils.HealthCheck{
		"redis": func(ctx context.Context) error {
			return utils.GetCacheClient().Ping(ctx).Err()
		},
		"store": func(ctx context.Context) error {
			_, err := bookings.ListByParty(ctx, "health", "seeker")
			return err
		},
	})

	// Create the Gin router.
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Sugar().Fatalf("main: invalid TRUSTED_PROXIES: %v", err)
	}
	router.Use(utils.RequestLogger())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewBookingHandler(bookingService),
		handlers.NewConversationHandler(chatService),
		handlers.NewDeviceHandler(tokens),
	)
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	worker.Shutdown()
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("main: store close failed", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
