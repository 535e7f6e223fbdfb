package customer

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/repository"
	"github.com/wipay/subscriber-api/internal/service/notification"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
	"github.com/wipay/subscriber-api/pkg/logger"
	"github.com/wipay/subscriber-api/pkg/momo"
)

type Service struct {
	customers     repository.CustomerRepository
	plans         repository.ServicePlanRepository
	subscriptions repository.SubscriptionRepository
	equipment     repository.EquipmentRepository
	notifier      *notification.Service
	logger        *logger.Logger
}

func NewService(
	customers repository.CustomerRepository,
	plans repository.ServicePlanRepository,
	subscriptions repository.SubscriptionRepository,
	equipment repository.EquipmentRepository,
	notifier *notification.Service,
	logger *logger.Logger,
) *Service {
	return &Service{
		customers:     customers,
		plans:         plans,
		subscriptions: subscriptions,
		equipment:     equipment,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *Service) CreateCustomer(ctx context.Context, name, email, phone, address string) (*model.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validation("name is required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.Validation("email is required")
	}
	if !momo.ValidateNumber(phone) {
		return nil, apperrors.Validation("phone number is not a valid mobile number")
	}

	customer := &model.Customer{
		Name:    name,
		Email:   strings.ToLower(email),
		Phone:   momo.Normalize(phone),
		Address: address,
		Status:  model.CustomerStatusActive,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return s.customers.Get(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	return s.customers.List(ctx)
}

func (s *Service) UpdateCustomer(ctx context.Context, customer *model.Customer) error {
	if customer.Phone != "" {
		if !momo.ValidateNumber(customer.Phone) {
			return apperrors.Validation("phone number is not a valid mobile number")
		}
		customer.Phone = momo.Normalize(customer.Phone)
	}
	return s.customers.Update(ctx, customer)
}

func (s *Service) CreatePlan(ctx context.Context, name string, speedMbps int, monthlyPrice float64, currency string) (*model.ServicePlan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validation("plan name is required")
	}
	if speedMbps <= 0 {
		return nil, apperrors.Validation("speed must be positive")
	}
	if monthlyPrice <= 0 {
		return nil, apperrors.Validation("monthly price must be positive")
	}

	plan := &model.ServicePlan{
		Name:         name,
		SpeedMbps:    speedMbps,
		MonthlyPrice: monthlyPrice,
		Currency:     currency,
		IsActive:     true,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]*model.ServicePlan, error) {
	return s.plans.ListActive(ctx)
}

// Subscribe starts a subscription on the given plan. A customer holds at most
// one active subscription; an existing one must be changed, not duplicated.
func (s *Service) Subscribe(ctx context.Context, customerID, planID, actingUserID uuid.UUID) (*model.Subscription, error) {
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, apperrors.InvalidState("plan is no longer offered")
	}

	if existing, err := s.subscriptions.GetActiveForCustomer(ctx, customerID); err == nil && existing != nil {
		return nil, apperrors.InvalidState("customer already has an active subscription")
	} else if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	sub := &model.Subscription{
		CustomerID: customerID,
		PlanID:     planID,
		Status:     model.SubscriptionStatusActive,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.notifySubscription(ctx, actingUserID, plan.Name)
	return sub, nil
}

// ChangePlan moves the customer's active subscription to another plan.
func (s *Service) ChangePlan(ctx context.Context, customerID, planID, actingUserID uuid.UUID) (*model.Subscription, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, apperrors.InvalidState("plan is no longer offered")
	}

	sub, err := s.subscriptions.GetActiveForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if sub.PlanID == planID {
		return sub, nil
	}

	if err := s.subscriptions.ChangePlan(ctx, sub.ID, planID); err != nil {
		return nil, err
	}
	sub.PlanID = planID

	s.notifySubscription(ctx, actingUserID, plan.Name)
	return sub, nil
}

func (s *Service) CancelSubscription(ctx context.Context, customerID uuid.UUID) error {
	sub, err := s.subscriptions.GetActiveForCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	return s.subscriptions.UpdateStatus(ctx, sub.ID, model.SubscriptionStatusCancelled)
}

func (s *Service) AddEquipment(ctx context.Context, serialNumber, equipmentModel string) (*model.Equipment, error) {
	if strings.TrimSpace(serialNumber) == "" {
		return nil, apperrors.Validation("serial number is required")
	}

	eq := &model.Equipment{
		SerialNumber: serialNumber,
		Model:        equipmentModel,
		Status:       model.EquipmentStatusInStock,
	}
	if err := s.equipment.Create(ctx, eq); err != nil {
		return nil, err
	}
	return eq, nil
}

// AssignEquipment hands an in-stock unit to a customer. The in-stock guard is
// enforced by the store update, so two concurrent assignments of the same unit
// resolve to one winner.
func (s *Service) AssignEquipment(ctx context.Context, equipmentID, customerID uuid.UUID) error {
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return err
	}
	return s.equipment.Assign(ctx, equipmentID, customerID)
}

func (s *Service) ReturnEquipment(ctx context.Context, equipmentID uuid.UUID) error {
	return s.equipment.Return(ctx, equipmentID)
}

func (s *Service) ListEquipmentForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Equipment, error) {
	return s.equipment.ListForCustomer(ctx, customerID)
}

func (s *Service) notifySubscription(ctx context.Context, actingUserID uuid.UUID, planName string) {
	if actingUserID == uuid.Nil {
		return
	}
	if _, err := s.notifier.NotifySubscriptionChanged(ctx, actingUserID, planName); err != nil {
		s.logger.Error(err, "failed to record subscription notification", "user_id", actingUserID.String())
	}
}
