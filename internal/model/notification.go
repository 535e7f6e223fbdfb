package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationCategory string

const (
	NotificationCategoryPayment NotificationCategory = "payment"
	NotificationCategorySupport NotificationCategory = "support"
	NotificationCategoryToken   NotificationCategory = "token"
	NotificationCategoryBilling NotificationCategory = "billing"
	NotificationCategoryGeneral NotificationCategory = "general"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification is a one-way, per-user informational record. Content is
// immutable after creation; only the read and archived flags change. An
// archived notification leaves the active/unread view and may then be deleted.
type Notification struct {
	ID          uuid.UUID            `db:"id" json:"id"`
	UserID      uuid.UUID            `db:"user_id" json:"user_id"`
	Category    NotificationCategory `db:"category" json:"category"`
	Type        NotificationType     `db:"type" json:"type"`
	Title       string               `db:"title" json:"title"`
	Message     string               `db:"message" json:"message"`
	IsRead      bool                 `db:"is_read" json:"is_read"`
	IsArchived  bool                 `db:"is_archived" json:"is_archived"`
	DeliveredAt *time.Time           `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
}

// NotificationCounts is a pure projection over a user's notification set,
// recomputed from the store on every underlying change.
type NotificationCounts struct {
	Total    int `db:"total" json:"total"`
	Unread   int `db:"unread" json:"unread"`
	Archived int `db:"archived" json:"archived"`
}

// ListOptions filters a notification list subscription.
type ListOptions struct {
	IncludeArchived bool
	Limit           int
}
