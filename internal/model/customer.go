package model

import (
	"time"

	"github.com/google/uuid"
)

type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "active"
	CustomerStatusSuspended CustomerStatus = "suspended"
	CustomerStatusInactive  CustomerStatus = "inactive"
)

type Customer struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Phone     string         `db:"phone" json:"phone"`
	Address   string         `db:"address" json:"address"`
	Status    CustomerStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ServicePlan is a catalog entry (bandwidth tier plus monthly price).
type ServicePlan struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SpeedMbps    int       `db:"speed_mbps" json:"speed_mbps"`
	MonthlyPrice float64   `db:"monthly_price" json:"monthly_price"`
	Currency     string    `db:"currency" json:"currency"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type Subscription struct {
	ID         uuid.UUID          `db:"id" json:"id"`
	CustomerID uuid.UUID          `db:"customer_id" json:"customer_id"`
	PlanID     uuid.UUID          `db:"plan_id" json:"plan_id"`
	Status     SubscriptionStatus `db:"status" json:"status"`
	StartedAt  time.Time          `db:"started_at" json:"started_at"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

type EquipmentStatus string

const (
	EquipmentStatusInStock  EquipmentStatus = "in_stock"
	EquipmentStatusDeployed EquipmentStatus = "deployed"
	EquipmentStatusFaulty   EquipmentStatus = "faulty"
	EquipmentStatusRetired  EquipmentStatus = "retired"
)

// Equipment tracks routers and ONUs issued to customers.
type Equipment struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	SerialNumber string          `db:"serial_number" json:"serial_number"`
	Model        string          `db:"model" json:"model"`
	Status       EquipmentStatus `db:"status" json:"status"`
	CustomerID   *uuid.UUID      `db:"customer_id" json:"customer_id,omitempty"`
	AssignedAt   *time.Time      `db:"assigned_at" json:"assigned_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
