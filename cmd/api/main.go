package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/wipay/subscriber-api/internal/config"
	"github.com/wipay/subscriber-api/internal/handler"
	authHandler "github.com/wipay/subscriber-api/internal/handler/auth"
	billingHandler "github.com/wipay/subscriber-api/internal/handler/billing"
	chatHandler "github.com/wipay/subscriber-api/internal/handler/chat"
	customerHandler "github.com/wipay/subscriber-api/internal/handler/customer"
	healthHandler "github.com/wipay/subscriber-api/internal/handler/health"
	notificationHandler "github.com/wipay/subscriber-api/internal/handler/notification"
	"github.com/wipay/subscriber-api/internal/middleware"
	"github.com/wipay/subscriber-api/internal/realtime"
	"github.com/wipay/subscriber-api/internal/repository/postgres"
	"github.com/wipay/subscriber-api/internal/router"
	authService "github.com/wipay/subscriber-api/internal/service/auth"
	billingService "github.com/wipay/subscriber-api/internal/service/billing"
	chatService "github.com/wipay/subscriber-api/internal/service/chat"
	customerService "github.com/wipay/subscriber-api/internal/service/customer"
	notificationService "github.com/wipay/subscriber-api/internal/service/notification"
	"github.com/wipay/subscriber-api/pkg/auth"
	"github.com/wipay/subscriber-api/pkg/logger"
	"github.com/wipay/subscriber-api/pkg/messaging/redis"
	"github.com/wipay/subscriber-api/pkg/metrics"
	"github.com/wipay/subscriber-api/pkg/momo"
	"github.com/wipay/subscriber-api/pkg/security"
	"github.com/wipay/subscriber-api/pkg/sms"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := handler.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	// Database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Broker and realtime fabric
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	hub := realtime.NewHub()
	publisher := realtime.NewPublisher(broker)
	bridge := realtime.NewBridge(broker, hub, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	// Repositories
	sessionRepo := postgres.NewChatSessionRepository(db)
	messageRepo := postgres.NewChatMessageRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	planRepo := postgres.NewServicePlanRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	equipmentRepo := postgres.NewEquipmentRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Collaborators
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	gateway := momo.NewClient(momo.Config{
		BaseURL:         cfg.Momo.BaseURL,
		SubscriptionKey: cfg.Momo.SubscriptionKey,
		TargetEnv:       cfg.Momo.TargetEnv,
		Timeout:         time.Duration(cfg.Momo.TimeoutSeconds) * time.Second,
	})
	smsSvc := sms.NewService(sms.NewHTTPProvider(sms.HTTPProviderConfig{
		Endpoint: cfg.SMS.BaseURL,
		APIKey:   cfg.SMS.APIKey,
		SenderID: cfg.SMS.SenderID,
	}), cfg.SMS.CountryCode, appLogger)

	// Services
	notificationSvc := notificationService.NewService(notificationRepo, hub, publisher, appLogger)
	chatSvc := chatService.NewService(sessionRepo, messageRepo, notificationSvc, hub, publisher, appLogger)
	authSvc := authService.NewService(userRepo, jwtSvc, hasher)
	customerSvc := customerService.NewService(customerRepo, planRepo, subscriptionRepo, equipmentRepo, notificationSvc, appLogger)
	billingSvc := billingService.NewService(invoiceRepo, customerRepo, planRepo, gateway, smsSvc, notificationSvc, appLogger)

	// Handlers
	h := handler.NewHandler()
	m := metrics.NewMetrics("subscriber_api", "http")
	r := router.NewRouter(
		authSvc,
		authHandler.NewHandler(authSvc),
		healthHandler.NewHandler(db),
		chatHandler.NewHandler(chatSvc),
		notificationHandler.NewHandler(notificationSvc),
		customerHandler.NewHandler(customerSvc),
		billingHandler.NewHandler(billingSvc),
		h,
		m,
		router.Config{
			RateLimit:      100,
			RateBurst:      200,
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CatalogTTL:     time.Minute,
			CORSConfig:     middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming endpoints hold the connection open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}
