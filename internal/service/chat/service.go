package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/realtime"
	"github.com/wipay/subscriber-api/internal/repository"
	"github.com/wipay/subscriber-api/internal/service/notification"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
	"github.com/wipay/subscriber-api/pkg/logger"
)

// Service manages support chat sessions and their message streams. Session
// status moves pending→open only through assignment and open|pending→closed
// through Close; a closed session takes no further writes except read flags.
type Service struct {
	sessions  repository.ChatSessionRepository
	messages  repository.ChatMessageRepository
	notifier  *notification.Service
	hub       *realtime.Hub
	publisher *realtime.Publisher
	logger    *logger.Logger
}

func NewService(
	sessions repository.ChatSessionRepository,
	messages repository.ChatMessageRepository,
	notifier *notification.Service,
	hub *realtime.Hub,
	publisher *realtime.Publisher,
	logger *logger.Logger,
) *Service {
	return &Service{
		sessions:  sessions,
		messages:  messages,
		notifier:  notifier,
		hub:       hub,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID, userName, userEmail, subject string) (*model.ChatSession, error) {
	if userID == uuid.Nil {
		return nil, apperrors.Validation("user ID is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, apperrors.Validation("subject is required")
	}

	session := &model.ChatSession{
		UserID:    userID,
		UserName:  userName,
		UserEmail: userEmail,
		Subject:   subject,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.broadcastSession(ctx, userID)
	return session, nil
}

// AssignToSelf claims a pending session for an admin. The pending-only guard
// is a conditional update at the store, so of two racing admins exactly one
// wins and the other receives an invalid-state error.
func (s *Service) AssignToSelf(ctx context.Context, sessionID, adminID uuid.UUID, adminName string) error {
	if adminID == uuid.Nil {
		return apperrors.Validation("admin ID is required")
	}
	if err := s.sessions.Assign(ctx, sessionID, adminID, adminName); err != nil {
		return err
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Error(err, "failed to load session after assignment", "session_id", sessionID.String())
		return nil
	}
	s.broadcastSession(ctx, session.UserID)
	return nil
}

func (s *Service) Close(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Close(ctx, sessionID); err != nil {
		return err
	}
	s.broadcastSession(ctx, session.UserID)
	return nil
}

func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.ChatSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Append adds a message to a session. Sending into a closed session is
// rejected rather than reopening it. The store transaction bumps the
// session's lastMessageAt and unread count together with the insert.
func (s *Service) Append(ctx context.Context, sessionID, senderID uuid.UUID, senderName string, senderRole model.SenderRole, content string) (*model.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("message content is required")
	}
	if senderRole != model.SenderRoleUser && senderRole != model.SenderRoleAdmin {
		return nil, apperrors.Validation("invalid sender role")
	}

	message := &model.ChatMessage{
		SessionID:  sessionID,
		SenderID:   senderID,
		SenderName: senderName,
		SenderRole: senderRole,
		Content:    content,
	}
	if err := s.messages.Append(ctx, message); err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Error(err, "failed to load session after append", "session_id", sessionID.String())
		return message, nil
	}

	s.broadcastSession(ctx, session.UserID)
	s.broadcastMessages(ctx, sessionID)
	s.notifyCounterpart(ctx, session, message)

	return message, nil
}

// MarkAllRead flips the read flag on every message not sent by the reader and
// resets the session's unread count. Idempotent.
func (s *Service) MarkAllRead(ctx context.Context, sessionID, readerID uuid.UUID) error {
	if err := s.messages.MarkAllRead(ctx, sessionID, readerID); err != nil {
		return err
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Error(err, "failed to load session after mark-all-read", "session_id", sessionID.String())
		return nil
	}
	s.broadcastSession(ctx, session.UserID)
	s.broadcastMessages(ctx, sessionID)
	return nil
}

// SubscribeForUser delivers the user's session list, newest activity first,
// immediately and on every change.
func (s *Service) SubscribeForUser(ctx context.Context, userID uuid.UUID, fn func([]*model.ChatSession)) (realtime.CancelFunc, error) {
	return realtime.Stream(ctx, s.hub, s.logger,
		func(ctx context.Context) ([]*model.ChatSession, error) {
			return s.sessions.ListForUser(ctx, userID)
		},
		fn,
		realtime.TopicUserSessions(userID),
	)
}

// SubscribeAll is the administrative view over every session.
func (s *Service) SubscribeAll(ctx context.Context, fn func([]*model.ChatSession)) (realtime.CancelFunc, error) {
	return realtime.Stream(ctx, s.hub, s.logger,
		func(ctx context.Context) ([]*model.ChatSession, error) {
			return s.sessions.ListAll(ctx)
		},
		fn,
		realtime.TopicSessionsAll,
	)
}

// SubscribeMessages delivers a session's messages in timestamp order, ties
// broken by store insertion order.
func (s *Service) SubscribeMessages(ctx context.Context, sessionID uuid.UUID, fn func([]*model.ChatMessage)) (realtime.CancelFunc, error) {
	return realtime.Stream(ctx, s.hub, s.logger,
		func(ctx context.Context) ([]*model.ChatMessage, error) {
			return s.messages.ListForSession(ctx, sessionID)
		},
		fn,
		realtime.TopicSessionMessages(sessionID),
	)
}

func (s *Service) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*model.ChatMessage, error) {
	return s.messages.ListForSession(ctx, sessionID)
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.ChatSession, error) {
	return s.sessions.ListForUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]*model.ChatSession, error) {
	return s.sessions.ListAll(ctx)
}

// notifyCounterpart raises a support notification for the party that did not
// send the message. Failures are logged; the append has already succeeded.
func (s *Service) notifyCounterpart(ctx context.Context, session *model.ChatSession, message *model.ChatMessage) {
	var recipient uuid.UUID
	switch message.SenderRole {
	case model.SenderRoleAdmin:
		recipient = session.UserID
	case model.SenderRoleUser:
		if session.AdminID == nil {
			return
		}
		recipient = *session.AdminID
	}

	if _, err := s.notifier.NotifySupportMessage(ctx, recipient, session.Subject, message.SenderName); err != nil {
		s.logger.Error(err, "failed to create support notification",
			"session_id", session.ID.String(), "recipient", recipient.String())
	}
}

func (s *Service) broadcastSession(ctx context.Context, userID uuid.UUID) {
	if err := s.publisher.Publish(ctx, realtime.TopicUserSessions(userID), realtime.TopicSessionsAll); err != nil {
		s.logger.Error(err, "failed to publish session change", "user_id", userID.String())
	}
}

func (s *Service) broadcastMessages(ctx context.Context, sessionID uuid.UUID) {
	if err := s.publisher.Publish(ctx, realtime.TopicSessionMessages(sessionID)); err != nil {
		s.logger.Error(err, "failed to publish message change", "session_id", sessionID.String())
	}
}
