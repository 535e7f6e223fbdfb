package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wipay/subscriber-api/internal/email"
	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/repository"
	"github.com/wipay/subscriber-api/pkg/logger"
	"github.com/wipay/subscriber-api/pkg/metrics"
	"github.com/wipay/subscriber-api/pkg/sms"
)

type DispatcherConfig struct {
	BatchSize     int           `envconfig:"DISPATCH_BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `envconfig:"DISPATCH_POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `envconfig:"DISPATCH_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"DISPATCH_RETRY_DELAY" default:"2s"`
}

// Dispatcher drains undelivered notifications and forwards them by email,
// plus SMS when the user account is linked to a customer record. In-app
// delivery already happened when the notification was created; this covers
// users who are not connected.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	customers     repository.CustomerRepository
	mailer        email.Service
	sms           *sms.Service
	config        DispatcherConfig
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewDispatcher(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	customers repository.CustomerRepository,
	mailer email.Service,
	smsSvc *sms.Service,
	config DispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &Dispatcher{
		notifications: notifications,
		users:         users,
		customers:     customers,
		mailer:        mailer,
		sms:           smsSvc,
		config:        config,
		logger:        logger,
		metrics:       metrics,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("Starting notification dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Shutting down notification dispatcher")
			return
		case <-ticker.C:
			if err := d.processBatch(ctx); err != nil {
				d.logger.Error(err, "Failed to process notification batch")
			}
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	pending, err := d.notifications.ListUndelivered(ctx, d.config.BatchSize)
	if err != nil {
		d.metrics.DatabaseOperations.WithLabelValues("list_undelivered", "error").Inc()
		return fmt.Errorf("failed to list undelivered notifications: %w", err)
	}
	d.metrics.DatabaseOperations.WithLabelValues("list_undelivered", "success").Inc()
	d.metrics.DispatchQueueSize.Set(float64(len(pending)))

	for _, notification := range pending {
		if err := d.dispatch(ctx, notification); err != nil {
			d.logger.Error(err, "Failed to dispatch notification",
				"notification_id", notification.ID.String(),
				"category", string(notification.Category))
			continue
		}
	}

	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, notification *model.Notification) error {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	user, err := d.users.Get(ctx, notification.UserID)
	if err != nil {
		// An orphaned notification would block the queue forever, so it is
		// marked delivered and skipped.
		d.logger.Warn("Dropping notification for unknown user",
			"notification_id", notification.ID.String(),
			"user_id", notification.UserID.String())
		return d.notifications.MarkDelivered(ctx, notification.ID)
	}

	err = d.retry(func() error {
		return d.mailer.SendNotification(ctx, user.Email, notification.Title, notification.Message)
	}, "email")

	if err != nil {
		d.metrics.DispatchFailed.Inc()
		return err
	}

	if err := d.sendText(ctx, user, notification); err != nil {
		// The email already went out; requeueing here would resend it on
		// every poll, so a failed text is only logged.
		d.logger.Warn("Failed to deliver notification text",
			"notification_id", notification.ID.String(),
			"user_id", user.ID.String(),
			"error", err.Error())
	}

	d.metrics.DispatchProcessed.Inc()
	if err := d.notifications.MarkDelivered(ctx, notification.ID); err != nil {
		d.logger.Error(err, "Failed to mark notification delivered",
			"notification_id", notification.ID.String())
		return err
	}

	return nil
}

// sendText forwards the notification to the phone of the customer record
// linked to the user account. Accounts without a linked customer have no
// phone on file and get email only.
func (d *Dispatcher) sendText(ctx context.Context, user *model.User, notification *model.Notification) error {
	if user.CustomerID == nil {
		return nil
	}

	customer, err := d.customers.Get(ctx, *user.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to load customer %s: %w", user.CustomerID.String(), err)
	}

	text := fmt.Sprintf("%s: %s", notification.Title, notification.Message)
	return d.retry(func() error {
		return d.sms.Send(ctx, customer.Phone, text)
	}, "sms")
}

func (d *Dispatcher) retry(fn func() error, channel string) error {
	var err error
	for i := 0; i < d.config.RetryAttempts; i++ {
		if i > 0 {
			d.metrics.DispatchRetries.WithLabelValues(channel).Inc()
			time.Sleep(d.config.RetryDelay)
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
