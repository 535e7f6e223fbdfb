package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

func (r *equipmentRepository) Create(ctx context.Context, eq *model.Equipment) error {
	query := `
		INSERT INTO equipment (
			id, serial_number, model, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at
	`
	eq.ID = uuid.New()

	err := r.db.QueryRowxContext(ctx, query,
		eq.ID,
		eq.SerialNumber,
		eq.Model,
		eq.Status,
	).Scan(&eq.CreatedAt, &eq.UpdatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *equipmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	query := `
		SELECT id, serial_number, model, status, customer_id, assigned_at,
			   created_at, updated_at
		FROM equipment
		WHERE id = $1
	`
	var eq model.Equipment
	err := r.db.GetContext(ctx, &eq, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("equipment", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &eq, nil
}

// Assign uses the same conditional-update shape as session assignment so a
// unit can never be issued to two customers.
func (r *equipmentRepository) Assign(ctx context.Context, id, customerID uuid.UUID) error {
	query := `
		UPDATE equipment
		SET status = $2, customer_id = $3, assigned_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		id, model.EquipmentStatusDeployed, customerID, model.EquipmentStatusInStock)
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
		return apperrors.InvalidState("equipment is not in stock")
	}
	return nil
}

func (r *equipmentRepository) Return(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE equipment
		SET status = $2, customer_id = NULL, assigned_at = NULL, updated_at = now()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query,
		id, model.EquipmentStatusInStock, model.EquipmentStatusDeployed)
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
		return apperrors.InvalidState("equipment is not deployed")
	}
	return nil
}

func (r *equipmentRepository) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Equipment, error) {
	query := `
		SELECT id, serial_number, model, status, customer_id, assigned_at,
			   created_at, updated_at
		FROM equipment
		WHERE customer_id = $1
		ORDER BY assigned_at DESC
	`
	items := []*model.Equipment{}
	if err := r.db.SelectContext(ctx, &items, query, customerID); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return items, nil
}
