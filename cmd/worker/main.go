package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/wipay/subscriber-api/internal/config"
	"github.com/wipay/subscriber-api/internal/email"
	"github.com/wipay/subscriber-api/internal/repository/postgres"
	"github.com/wipay/subscriber-api/pkg/logger"
	"github.com/wipay/subscriber-api/pkg/metrics"
	"github.com/wipay/subscriber-api/pkg/sms"
	"github.com/wipay/subscriber-api/pkg/worker"
)

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Fatal(err, "Health check server failed")
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var dispatchCfg worker.DispatcherConfig
	if err := envconfig.Process("", &dispatchCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to load dispatcher config")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	notificationRepo := postgres.NewNotificationRepository(db)
	userRepo := postgres.NewUserRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	mailer := email.NewSMTPService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	smsSvc := sms.NewService(sms.NewHTTPProvider(sms.HTTPProviderConfig{
		Endpoint: cfg.SMS.BaseURL,
		APIKey:   cfg.SMS.APIKey,
		SenderID: cfg.SMS.SenderID,
	}), cfg.SMS.CountryCode, appLogger)

	dispatcher := worker.NewDispatcher(
		notificationRepo,
		userRepo,
		customerRepo,
		mailer,
		smsSvc,
		dispatchCfg,
		appLogger,
		metrics.NewMetrics("subscriber_api", "dispatcher"),
	)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	dispatcher.Start(ctx)
}
