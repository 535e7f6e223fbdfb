package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
)

// Repositories wrap store failures as StoreUnavailable, missing rows as
// NotFound and failed conditional updates as InvalidState (pkg/errors), so
// services surface the taxonomy without re-querying.

type ChatSessionRepository interface {
	Create(ctx context.Context, session *model.ChatSession) error
	Get(ctx context.Context, id uuid.UUID) (*model.ChatSession, error)
	// Assign is an atomic check-and-set: it succeeds only while the session
	// is still pending, so two racing admins resolve to exactly one winner.
	Assign(ctx context.Context, id, adminID uuid.UUID, adminName string) error
	Close(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.ChatSession, error)
	ListAll(ctx context.Context) ([]*model.ChatSession, error)
}

type ChatMessageRepository interface {
	// Append inserts the message and bumps the session's lastMessageAt and
	// unread count in one transaction. It fails with InvalidState when the
	// session is closed. The store assigns the timestamp and sequence.
	Append(ctx context.Context, message *model.ChatMessage) error
	ListForSession(ctx context.Context, sessionID uuid.UUID) ([]*model.ChatMessage, error)
	MarkAllRead(ctx context.Context, sessionID, readerID uuid.UUID) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	List(ctx context.Context, userID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error)
	Counts(ctx context.Context, userID uuid.UUID) (*model.NotificationCounts, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID) error
	// Delete fails with InvalidState unless the notification is archived.
	Delete(ctx context.Context, id uuid.UUID) error
	ListUndelivered(ctx context.Context, limit int) ([]*model.Notification, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Get(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	Update(ctx context.Context, customer *model.Customer) error
	List(ctx context.Context) ([]*model.Customer, error)
}

type ServicePlanRepository interface {
	Create(ctx context.Context, plan *model.ServicePlan) error
	Get(ctx context.Context, id uuid.UUID) (*model.ServicePlan, error)
	ListActive(ctx context.Context) ([]*model.ServicePlan, error)
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	GetActiveForCustomer(ctx context.Context, customerID uuid.UUID) (*model.Subscription, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus) error
	ChangePlan(ctx context.Context, id, planID uuid.UUID) error
}

type EquipmentRepository interface {
	Create(ctx context.Context, eq *model.Equipment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error)
	// Assign succeeds only while the unit is in stock.
	Assign(ctx context.Context, id, customerID uuid.UUID) error
	Return(ctx context.Context, id uuid.UUID) error
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Equipment, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Invoice, error)
	// MarkPending records the payment reference while the gateway confirms.
	MarkPending(ctx context.Context, id uuid.UUID, paymentRef string) error
	MarkPaid(ctx context.Context, id uuid.UUID) error
	MarkUnpaid(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
