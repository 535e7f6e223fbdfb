package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

func (r *servicePlanRepository) Create(ctx context.Context, plan *model.ServicePlan) error {
	query := `
		INSERT INTO service_plans (
			id, name, speed_mbps, monthly_price, currency, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`
	plan.ID = uuid.New()

	err := r.db.QueryRowxContext(ctx, query,
		plan.ID,
		plan.Name,
		plan.SpeedMbps,
		plan.MonthlyPrice,
		plan.Currency,
		plan.IsActive,
	).Scan(&plan.CreatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *servicePlanRepository) Get(ctx context.Context, id uuid.UUID) (*model.ServicePlan, error) {
	query := `
		SELECT id, name, speed_mbps, monthly_price, currency, is_active, created_at
		FROM service_plans
		WHERE id = $1
	`
	var plan model.ServicePlan
	err := r.db.GetContext(ctx, &plan, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("service plan", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &plan, nil
}

func (r *servicePlanRepository) ListActive(ctx context.Context) ([]*model.ServicePlan, error) {
	query := `
		SELECT id, name, speed_mbps, monthly_price, currency, is_active, created_at
		FROM service_plans
		WHERE is_active = true
		ORDER BY monthly_price ASC
	`
	plans := []*model.ServicePlan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return plans, nil
}
