package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/realtime"
	"github.com/wipay/subscriber-api/internal/repository"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
	"github.com/wipay/subscriber-api/pkg/logger"
)

// Service owns per-user notification lists and their derived counts. Counts
// are always recomputed from the store, never patched incrementally, so the
// list view and the counts view cannot drift apart.
type Service struct {
	repo      repository.NotificationRepository
	hub       *realtime.Hub
	publisher *realtime.Publisher
	logger    *logger.Logger
}

func NewService(repo repository.NotificationRepository, hub *realtime.Hub, publisher *realtime.Publisher, logger *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		hub:       hub,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, category model.NotificationCategory, typ model.NotificationType, title, message string) (*model.Notification, error) {
	if userID == uuid.Nil {
		return nil, apperrors.Validation("user ID is required")
	}
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}
	if message == "" {
		return nil, apperrors.Validation("message is required")
	}

	notification := &model.Notification{
		UserID:   userID,
		Category: category,
		Type:     typ,
		Title:    title,
		Message:  message,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	s.broadcast(ctx, userID)
	return notification, nil
}

// Typed constructors. Message text is built deterministically from the
// supplied parameters so the same event always renders the same record.

func (s *Service) NotifyTokenGenerated(ctx context.Context, userID uuid.UUID, token, planName string) (*model.Notification, error) {
	return s.Create(ctx, userID, model.NotificationCategoryToken, model.NotificationTypeSuccess,
		"Token generated",
		fmt.Sprintf("Your token %s for plan %s is ready", token, planName))
}

func (s *Service) NotifyPayment(ctx context.Context, userID uuid.UUID, amount float64, currency string, success bool, reason string) (*model.Notification, error) {
	if success {
		return s.Create(ctx, userID, model.NotificationCategoryPayment, model.NotificationTypeSuccess,
			"Payment received",
			fmt.Sprintf("Your payment of %.2f %s was received", amount, currency))
	}
	return s.Create(ctx, userID, model.NotificationCategoryPayment, model.NotificationTypeError,
		"Payment failed",
		fmt.Sprintf("Your payment of %.2f %s failed: %s", amount, currency, reason))
}

func (s *Service) NotifySupportMessage(ctx context.Context, userID uuid.UUID, subject, senderName string) (*model.Notification, error) {
	return s.Create(ctx, userID, model.NotificationCategorySupport, model.NotificationTypeInfo,
		"New support message",
		fmt.Sprintf("%s replied in %q", senderName, subject))
}

func (s *Service) NotifySubscriptionChanged(ctx context.Context, userID uuid.UUID, planName string) (*model.Notification, error) {
	return s.Create(ctx, userID, model.NotificationCategoryBilling, model.NotificationTypeInfo,
		"Subscription updated",
		fmt.Sprintf("Your subscription is now on plan %s", planName))
}

func (s *Service) NotifySystem(ctx context.Context, userID uuid.UUID, title, message string) (*model.Notification, error) {
	return s.Create(ctx, userID, model.NotificationCategoryGeneral, model.NotificationTypeInfo, title, message)
}

func (s *Service) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.broadcast(ctx, notification.UserID)
	return nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	s.broadcast(ctx, userID)
	return nil
}

func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.broadcast(ctx, notification.UserID)
	return nil
}

// Delete removes an archived notification. The archived-only guard lives in
// the store delete itself, so a concurrent unarchive cannot slip through.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.broadcast(ctx, notification.UserID)
	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
	return s.repo.List(ctx, userID, opts)
}

func (s *Service) Counts(ctx context.Context, userID uuid.UUID) (*model.NotificationCounts, error) {
	return s.repo.Counts(ctx, userID)
}

// SubscribeToList delivers the current list immediately, then a fresh list on
// every change to the user's notification set.
func (s *Service) SubscribeToList(ctx context.Context, userID uuid.UUID, opts model.ListOptions, fn func([]*model.Notification)) (realtime.CancelFunc, error) {
	return realtime.Stream(ctx, s.hub, s.logger,
		func(ctx context.Context) ([]*model.Notification, error) {
			return s.repo.List(ctx, userID, opts)
		},
		fn,
		realtime.TopicNotifications(userID),
	)
}

// SubscribeToCounts recomputes the projection from the same underlying set
// the list subscription reads, firing on every create, read, archive and
// delete for the user.
func (s *Service) SubscribeToCounts(ctx context.Context, userID uuid.UUID, fn func(*model.NotificationCounts)) (realtime.CancelFunc, error) {
	return realtime.Stream(ctx, s.hub, s.logger,
		func(ctx context.Context) (*model.NotificationCounts, error) {
			return s.repo.Counts(ctx, userID)
		},
		fn,
		realtime.TopicNotifications(userID),
	)
}

func (s *Service) broadcast(ctx context.Context, userID uuid.UUID) {
	if err := s.publisher.Publish(ctx, realtime.TopicNotifications(userID)); err != nil {
		s.logger.Error(err, "failed to publish notification change", "user_id", userID.String())
	}
}
