package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, category, type, title, message,
			is_read, is_archived, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, false, false, now())
		RETURNING created_at
	`
	notification.ID = uuid.New()
	notification.IsRead = false
	notification.IsArchived = false

	err := r.db.QueryRowxContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Category,
		notification.Type,
		notification.Title,
		notification.Message,
	).Scan(&notification.CreatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `
		SELECT id, user_id, category, type, title, message,
			   is_read, is_archived, delivered_at, created_at
		FROM notifications
		WHERE id = $1
	`
	var notification model.Notification
	err := r.db.GetContext(ctx, &notification, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("notification", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &notification, nil
}

func (r *notificationRepository) List(ctx context.Context, userID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
	query := `
		SELECT id, user_id, category, type, title, message,
			   is_read, is_archived, delivered_at, created_at
		FROM notifications
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if !opts.IncludeArchived {
		query += " AND is_archived = false"
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}

	notifications := []*model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return notifications, nil
}

// Counts is a single aggregation query over the live set, never an
// incrementally patched counter.
func (r *notificationRepository) Counts(ctx context.Context, userID uuid.UUID) (*model.NotificationCounts, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE NOT is_archived)                AS total,
			count(*) FILTER (WHERE NOT is_archived AND NOT is_read) AS unread,
			count(*) FILTER (WHERE is_archived)                    AS archived
		FROM notifications
		WHERE user_id = $1
	`
	var counts model.NotificationCounts
	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &counts, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return requireRow(result, "notification")
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *notificationRepository) Archive(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET is_archived = true WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return requireRow(result, "notification")
}

// Delete is guarded at the store: only archived notifications are deletable.
func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND is_archived = true`
	result, err := r.db.ExecContext(ctx, query, id)
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
		return apperrors.InvalidState("notification must be archived before deletion")
	}
	return nil
}

func (r *notificationRepository) ListUndelivered(ctx context.Context, limit int) ([]*model.Notification, error) {
	query := `
		SELECT id, user_id, category, type, title, message,
			   is_read, is_archived, delivered_at, created_at
		FROM notifications
		WHERE delivered_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	notifications := []*model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, limit); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET delivered_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return requireRow(result, "notification")
}

func requireRow(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	if rows == 0 {
		return apperrors.NotFound(resource, sql.ErrNoRows)
	}
	return nil
}
