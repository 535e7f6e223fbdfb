package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

func (r *chatSessionRepository) Create(ctx context.Context, session *model.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (
			id, user_id, user_name, user_email, subject,
			status, unread_count, last_message_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, now(), now(), now())
		RETURNING last_message_at, created_at, updated_at
	`
	session.ID = uuid.New()
	session.Status = model.SessionStatusPending
	session.UnreadCount = 0

	err := r.db.QueryRowxContext(ctx, query,
		session.ID,
		session.UserID,
		session.UserName,
		session.UserEmail,
		session.Subject,
		session.Status,
	).Scan(&session.LastMessageAt, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *chatSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.ChatSession, error) {
	query := `
		SELECT id, user_id, user_name, user_email, subject, status,
			   admin_id, admin_name, unread_count, last_message_at,
			   created_at, updated_at
		FROM chat_sessions
		WHERE id = $1
	`
	var session model.ChatSession
	err := r.db.GetContext(ctx, &session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("chat session", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &session, nil
}

// Assign is the one operation that must be a single conditional update at the
// store: the status guard in the WHERE clause makes concurrent claims resolve
// to exactly one winner.
func (r *chatSessionRepository) Assign(ctx context.Context, id, adminID uuid.UUID, adminName string) error {
	query := `
		UPDATE chat_sessions
		SET status = $2, admin_id = $3, admin_name = $4, updated_at = now()
		WHERE id = $1 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		id, model.SessionStatusOpen, adminID, adminName, model.SessionStatusPending)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	if rows == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.InvalidState("session is already assigned or closed")
	}
	return nil
}

func (r *chatSessionRepository) Close(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE chat_sessions
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status IN ($3, $4)
	`
	result, err := r.db.ExecContext(ctx, query,
		id, model.SessionStatusClosed, model.SessionStatusPending, model.SessionStatusOpen)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	if rows == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.InvalidState("session is already closed")
	}
	return nil
}

func (r *chatSessionRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.ChatSession, error) {
	query := `
		SELECT id, user_id, user_name, user_email, subject, status,
			   admin_id, admin_name, unread_count, last_message_at,
			   created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY last_message_at DESC
	`
	sessions := []*model.ChatSession{}
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return sessions, nil
}

func (r *chatSessionRepository) ListAll(ctx context.Context) ([]*model.ChatSession, error) {
	query := `
		SELECT id, user_id, user_name, user_email, subject, status,
			   admin_id, admin_name, unread_count, last_message_at,
			   created_at, updated_at
		FROM chat_sessions
		ORDER BY last_message_at DESC
	`
	sessions := []*model.ChatSession{}
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return sessions, nil
}
