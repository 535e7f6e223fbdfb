package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

// Append inserts the message and bumps the parent session inside one
// transaction. The session update carries the closed-session guard, so the
// insert never lands in a closed thread. Timestamps come from the database
// clock, keeping subscriber ordering monotonic across writers.
func (r *chatMessageRepository) Append(ctx context.Context, message *model.ChatMessage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	defer tx.Rollback()

	bump := `
		UPDATE chat_sessions
		SET last_message_at = now(), unread_count = unread_count + 1, updated_at = now()
		WHERE id = $1 AND status <> $2
	`
	result, err := tx.ExecContext(ctx, bump, message.SessionID, model.SessionStatusClosed)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	if rows == 0 {
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)`
		if err := tx.GetContext(ctx, &exists, check, message.SessionID); err != nil {
			return apperrors.StoreUnavailable(err)
		}
		if !exists {
			return apperrors.NotFound("chat session", nil)
		}
		return apperrors.InvalidState("session is closed")
	}

	insert := `
		INSERT INTO chat_messages (
			id, session_id, sender_id, sender_name, sender_role,
			content, is_read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, false, now())
		RETURNING seq, created_at
	`
	message.ID = uuid.New()
	message.IsRead = false

	err = tx.QueryRowxContext(ctx, insert,
		message.ID,
		message.SessionID,
		message.SenderID,
		message.SenderName,
		message.SenderRole,
		message.Content,
	).Scan(&message.Seq, &message.CreatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *chatMessageRepository) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]*model.ChatMessage, error) {
	query := `
		SELECT id, session_id, sender_id, sender_name, sender_role,
			   content, is_read, seq, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	messages := []*model.ChatMessage{}
	if err := r.db.SelectContext(ctx, &messages, query, sessionID); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return messages, nil
}

// MarkAllRead flips the read flag on counterpart messages and resets the
// session's unread count. Both statements are idempotent, so a repeat call is
// a no-op.
func (r *chatMessageRepository) MarkAllRead(ctx context.Context, sessionID, readerID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	defer tx.Rollback()

	flip := `
		UPDATE chat_messages
		SET is_read = true
		WHERE session_id = $1 AND sender_id <> $2 AND is_read = false
	`
	if _, err := tx.ExecContext(ctx, flip, sessionID, readerID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	reset := `UPDATE chat_sessions SET unread_count = 0, updated_at = now() WHERE id = $1`
	result, err := tx.ExecContext(ctx, reset, sessionID)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	if rows == 0 {
		return apperrors.NotFound("chat session", sql.ErrNoRows)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}
