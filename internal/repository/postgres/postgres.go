package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/wipay/subscriber-api/internal/repository"
)

type chatSessionRepository struct {
	db *sqlx.DB
}

type chatMessageRepository struct {
	db *sqlx.DB
}

type notificationRepository struct {
	db *sqlx.DB
}

type customerRepository struct {
	db *sqlx.DB
}

type servicePlanRepository struct {
	db *sqlx.DB
}

type subscriptionRepository struct {
	db *sqlx.DB
}

type equipmentRepository struct {
	db *sqlx.DB
}

type invoiceRepository struct {
	db *sqlx.DB
}

type userRepository struct {
	db *sqlx.DB
}

func NewChatSessionRepository(db *sqlx.DB) repository.ChatSessionRepository {
	return &chatSessionRepository{db: db}
}

func NewChatMessageRepository(db *sqlx.DB) repository.ChatMessageRepository {
	return &chatMessageRepository{db: db}
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func NewCustomerRepository(db *sqlx.DB) repository.CustomerRepository {
	return &customerRepository{db: db}
}

func NewServicePlanRepository(db *sqlx.DB) repository.ServicePlanRepository {
	return &servicePlanRepository{db: db}
}

func NewSubscriptionRepository(db *sqlx.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func NewEquipmentRepository(db *sqlx.DB) repository.EquipmentRepository {
	return &equipmentRepository{db: db}
}

func NewInvoiceRepository(db *sqlx.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}
