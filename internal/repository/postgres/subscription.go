package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
)

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, customer_id, plan_id, status, started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, now(), now(), now())
		RETURNING started_at, created_at, updated_at
	`
	sub.ID = uuid.New()

	err := r.db.QueryRowxContext(ctx, query,
		sub.ID,
		sub.CustomerID,
		sub.PlanID,
		sub.Status,
	).Scan(&sub.StartedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *subscriptionRepository) GetActiveForCustomer(ctx context.Context, customerID uuid.UUID) (*model.Subscription, error) {
	query := `
		SELECT id, customer_id, plan_id, status, started_at, created_at, updated_at
		FROM subscriptions
		WHERE customer_id = $1 AND status = $2
		ORDER BY started_at DESC
		LIMIT 1
	`
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, query, customerID, model.SubscriptionStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("subscription", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus) error {
	query := `UPDATE subscriptions SET status = $2, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return requireRow(result, "subscription")
}

func (r *subscriptionRepository) ChangePlan(ctx context.Context, id, planID uuid.UUID) error {
	query := `UPDATE subscriptions SET plan_id = $2, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, planID)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return requireRow(result, "subscription")
}
