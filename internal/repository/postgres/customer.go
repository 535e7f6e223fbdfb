package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	query := `
		INSERT INTO customers (
			id, name, email, phone, address, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`
	customer.ID = uuid.New()

	err := r.db.QueryRowxContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.Status,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *customerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	query := `
		SELECT id, name, email, phone, address, status, created_at, updated_at
		FROM customers
		WHERE id = $1
	`
	var customer model.Customer
	err := r.db.GetContext(ctx, &customer, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("customer", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &customer, nil
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	query := `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, address = $5, status = $6, updated_at = now()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.Status,
	)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return requireRow(result, "customer")
}

func (r *customerRepository) List(ctx context.Context) ([]*model.Customer, error) {
	query := `
		SELECT id, name, email, phone, address, status, created_at, updated_at
		FROM customers
		ORDER BY created_at DESC
	`
	customers := []*model.Customer{}
	if err := r.db.SelectContext(ctx, &customers, query); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return customers, nil
}
