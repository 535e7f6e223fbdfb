package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, customer_id, plan_id, amount, currency, status, due_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`
	invoice.ID = uuid.New()

	err := r.db.QueryRowxContext(ctx, query,
		invoice.ID,
		invoice.CustomerID,
		invoice.PlanID,
		invoice.Amount,
		invoice.Currency,
		invoice.Status,
		invoice.DueDate,
	).Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	query := `
		SELECT id, customer_id, plan_id, amount, currency, status, due_date,
			   payment_ref, paid_at, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`
	var invoice model.Invoice
	err := r.db.GetContext(ctx, &invoice, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("invoice", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Invoice, error) {
	query := `
		SELECT id, customer_id, plan_id, amount, currency, status, due_date,
			   payment_ref, paid_at, created_at, updated_at
		FROM invoices
		WHERE customer_id = $1
		ORDER BY due_date DESC
	`
	invoices := []*model.Invoice{}
	if err := r.db.SelectContext(ctx, &invoices, query, customerID); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return invoices, nil
}

// MarkPending records the gateway reference and is guarded so an already paid
// invoice cannot re-enter the payment flow.
func (r *invoiceRepository) MarkPending(ctx context.Context, id uuid.UUID, paymentRef string) error {
	query := `
		UPDATE invoices
		SET status = $2, payment_ref = $3, updated_at = now()
		WHERE id = $1 AND status IN ($4, $5)
	`
	result, err := r.db.ExecContext(ctx, query,
		id, model.InvoiceStatusPending, paymentRef,
		model.InvoiceStatusUnpaid, model.InvoiceStatusOverdue)
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
		return apperrors.InvalidState("invoice is not payable")
	}
	return nil
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE invoices
		SET status = $2, paid_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query,
		id, model.InvoiceStatusPaid, model.InvoiceStatusPending)
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
		return apperrors.InvalidState("invoice has no pending payment")
	}
	return nil
}

func (r *invoiceRepository) MarkUnpaid(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE invoices
		SET status = $2, payment_ref = NULL, updated_at = now()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query,
		id, model.InvoiceStatusUnpaid, model.InvoiceStatusPending)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return requireRow(result, "invoice")
}
