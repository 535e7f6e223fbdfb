package model

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusUnpaid  InvoiceStatus = "unpaid"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

type Invoice struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	CustomerID uuid.UUID     `db:"customer_id" json:"customer_id"`
	PlanID     *uuid.UUID    `db:"plan_id" json:"plan_id,omitempty"`
	Amount     float64       `db:"amount" json:"amount"`
	Currency   string        `db:"currency" json:"currency"`
	Status     InvoiceStatus `db:"status" json:"status"`
	DueDate    time.Time     `db:"due_date" json:"due_date"`
	PaymentRef *string       `db:"payment_ref" json:"payment_ref,omitempty"`
	PaidAt     *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}
