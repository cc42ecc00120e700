// File: main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/config"
	"github.com/Rohit420bhainwal/book-my-event-api/cron"
	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/database/repository"
	"github.com/Rohit420bhainwal/book-my-event-api/handlers"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/routes"
	"github.com/Rohit420bhainwal/book-my-event-api/services/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/services/catalog"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payout"
	"github.com/Rohit420bhainwal/book-my-event-api/services/provider"
	"github.com/Rohit420bhainwal/book-my-event-api/services/refund"
	"github.com/Rohit420bhainwal/book-my-event-api/services/review"
	"github.com/Rohit420bhainwal/book-my-event-api/services/settings"
	"github.com/Rohit420bhainwal/book-my-event-api/services/storage"
	"github.com/Rohit420bhainwal/book-my-event-api/services/user"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync() //nolint:errcheck

	database.InitDB()
	cache := utils.GetCacheClient()

	rootCtx, stopMonitors := context.WithCancel(context.Background())
	defer stopMonitors()
	utils.StartHealthMonitor(rootCtx, 30*time.Second, []*redis.Client{cache}, database.MongoClient)

	// repositories.
	repos := repository.NewMongoRepositories()

	// payment gateway and payout strategy.
	stripeGateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       time.Duration(cfg.StripeTimeoutSeconds) * time.Second,
		Country:       cfg.StripeConnectCountry,
		RefreshURL:    cfg.StripeOnboardingRefreshURL,
		ReturnURL:     cfg.StripeOnboardingReturnURL,
	}, logger.Named("stripe"))
	payouter := payment.NewPayouter(cfg.SimulatedPayouts(), stripeGateway, logger.Named("payout"))
	logger.Info("payout strategy selected", zap.Bool("simulated", payouter.Simulated()))

	// outbound events.
	queueOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
	asynqClient := asynq.NewClient(queueOpt)
	defer asynqClient.Close()

	// push delivery always runs off the queue; kafka mode also streams the
	// same events to the topic.
	var publisher notification.Publisher = notification.NewAsynqPublisher(asynqClient)
	if strings.EqualFold(cfg.EventSink, "kafka") {
		kafka, err := notification.NewKafkaPublisher(notification.KafkaConfig{
			Brokers: cfg.KafkaBrokerList(),
			Topic:   cfg.KafkaTopic,
		}, logger.Named("kafka"))
		if err != nil {
			logger.Fatal("main: failed to initialize kafka publisher", zap.Error(err))
		}
		defer kafka.Close()
		publisher = notification.NewFanoutPublisher(publisher, kafka)
	}

	var sender notification.MessageSender
	if msgClient, err := utils.FirebaseMessaging(rootCtx); err != nil {
		logger.Warn("push notifications disabled", zap.Error(err))
	} else {
		sender = msgClient
	}
	dispatcher, err := notification.NewFCMDispatcher(repos.Users, repos.Providers, sender, logger.Named("fcm"))
	if err != nil {
		logger.Fatal("main: failed to initialize dispatcher", zap.Error(err))
	}

	// services.
	settingsService := settings.NewSettingsService(repos.Settings, models.CommissionPolicy{
		Type:  models.CommissionType(cfg.DefaultCommissionType),
		Value: cfg.DefaultCommissionValue,
	}, logger.Named("settings"))

	refundCoordinator := refund.NewCoordinator(repos.Bookings, repos.Refunds, stripeGateway, payouter, publisher, logger.Named("refund"))

	availability := booking.NewAvailabilityChecker(repos.Bookings,
		booking.NewRedisSlotHolds(cache, cfg.SlotHoldTTL), logger.Named("availability")).
		WithSchedules(repos.Schedules)
	scheduleService := booking.NewScheduleService(repos.Schedules, repos.Catalog, repos.Bookings, logger.Named("schedule"))

	bookingService := booking.NewBookingService(booking.Dependencies{
		Bookings:          repos.Bookings,
		Catalog:           repos.Catalog,
		Providers:         repos.Providers,
		Gateway:           stripeGateway,
		Refunds:           refundCoordinator,
		Commission:        settingsService,
		Availability:      availability,
		Publisher:         publisher,
		Logger:            logger.Named("booking"),
		DefaultCurrency:   cfg.DefaultCurrency,
		AllowedCurrencies: cfg.AllowedCurrencyList(),
	})

	withdrawService := payout.NewWithdrawService(repos.Bookings, repos.Withdraws, repos.Providers, payouter, publisher, logger.Named("withdraw"))
	sweeper := payout.NewScheduler(repos.Bookings, refundCoordinator, publisher, logger.Named("sweeper"))

	providerService := provider.NewDefaultProviderService(repos.Providers, stripeGateway, logger.Named("provider"))
	webhookService := provider.NewWebhookService(stripeGateway, bookingService, providerService, logger.Named("webhook"))
	userService := user.NewDefaultUserService(repos.Users, repos.Providers, logger.Named("user"))
	reviewService := review.NewReviewService(repos.Reviews, repos.Bookings, repos.Providers, repos.Catalog, publisher, logger.Named("review"))

	blobs, err := storage.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret,
		cfg.CloudinaryFolder, logger.Named("storage"))
	if err != nil {
		logger.Fatal("main: failed to initialize cloudinary storage", zap.Error(err))
	}
	catalogService := catalog.NewCatalogService(repos.Catalog, blobs, logger.Named("catalog"),
		cfg.DefaultCurrency, cfg.AllowedCurrencyList())

	// background worker.
	worker, err := cron.InitWorker(cron.WorkerConfig{
		Redis:             queueOpt,
		SweepInterval:     cfg.SweepInterval,
		AutoPayoutEnabled: cfg.AutoPayoutEnabled,
		Sweeper:           sweeper,
		Payouts:           withdrawService,
		Dispatcher:        dispatcher,
		Logger:            logger.Named("worker"),
	})
	if err != nil {
		logger.Fatal("main: failed to initialize worker", zap.Error(err))
	}
	worker.Start()

	// HTTP.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handlerBundle := handlers.NewHandlerBundle(handlers.Services{
		Bookings:  bookingService,
		Withdraws: withdrawService,
		Refunds:   refundCoordinator,
		Settings:  settingsService,
		Webhooks:  webhookService,
		Reviews:   reviewService,
		Providers: providerService,
		Users:     userService,
		Catalog:   catalogService,
		Schedules: scheduleService,
	}, cfg.AdminToken, cfg.MaxRequestsPerMin)
	routes.RegisterRoutes(router, handlerBundle, logger)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	worker.Shutdown()
	stopMonitors()
	if err := database.Disconnect(ctx); err != nil {
		logger.Warn("main: failed to disconnect from MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
