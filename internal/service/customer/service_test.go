package customer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/realtime"
	"github.com/wipay/subscriber-api/internal/service/notification"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
	"github.com/wipay/subscriber-api/pkg/logger"
	"github.com/wipay/subscriber-api/pkg/messaging/memory"
)

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*model.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[uuid.UUID]*model.Customer)}
}

func (f *fakeCustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = uuid.New()
	copied := *c
	f.customers[c.ID] = &copied
	return nil
}

func (f *fakeCustomerRepo) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, apperrors.NotFound("customer", nil)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[c.ID]; !ok {
		return apperrors.NotFound("customer", nil)
	}
	copied := *c
	f.customers[c.ID] = &copied
	return nil
}

func (f *fakeCustomerRepo) List(ctx context.Context) ([]*model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Customer
	for _, c := range f.customers {
		copied := *c
		result = append(result, &copied)
	}
	return result, nil
}

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*model.ServicePlan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[uuid.UUID]*model.ServicePlan)}
}

func (f *fakePlanRepo) Create(ctx context.Context, p *model.ServicePlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New()
	copied := *p
	f.plans[p.ID] = &copied
	return nil
}

func (f *fakePlanRepo) Get(ctx context.Context, id uuid.UUID) (*model.ServicePlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, apperrors.NotFound("plan", nil)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePlanRepo) ListActive(ctx context.Context) ([]*model.ServicePlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.ServicePlan
	for _, p := range f.plans {
		if p.IsActive {
			copied := *p
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakePlanRepo) deactivate(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.plans[id]; ok {
		p.IsActive = false
	}
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*model.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uuid.UUID]*model.Subscription)}
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub.ID = uuid.New()
	sub.StartedAt = time.Now()
	copied := *sub
	f.subs[sub.ID] = &copied
	return nil
}

func (f *fakeSubscriptionRepo) GetActiveForCustomer(ctx context.Context, customerID uuid.UUID) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.CustomerID == customerID && sub.Status == model.SubscriptionStatusActive {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("subscription", nil)
}

func (f *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return apperrors.NotFound("subscription", nil)
	}
	sub.Status = status
	return nil
}

func (f *fakeSubscriptionRepo) ChangePlan(ctx context.Context, id, planID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return apperrors.NotFound("subscription", nil)
	}
	sub.PlanID = planID
	return nil
}

type fakeEquipmentRepo struct {
	mu    sync.Mutex
	units map[uuid.UUID]*model.Equipment
}

func newFakeEquipmentRepo() *fakeEquipmentRepo {
	return &fakeEquipmentRepo{units: make(map[uuid.UUID]*model.Equipment)}
}

func (f *fakeEquipmentRepo) Create(ctx context.Context, eq *model.Equipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eq.ID = uuid.New()
	copied := *eq
	f.units[eq.ID] = &copied
	return nil
}

func (f *fakeEquipmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	eq, ok := f.units[id]
	if !ok {
		return nil, apperrors.NotFound("equipment", nil)
	}
	copied := *eq
	return &copied, nil
}

func (f *fakeEquipmentRepo) Assign(ctx context.Context, id, customerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eq, ok := f.units[id]
	if !ok {
		return apperrors.NotFound("equipment", nil)
	}
	if eq.Status != model.EquipmentStatusInStock {
		return apperrors.InvalidState("equipment is not in stock")
	}
	now := time.Now()
	eq.Status = model.EquipmentStatusDeployed
	eq.CustomerID = &customerID
	eq.AssignedAt = &now
	return nil
}

func (f *fakeEquipmentRepo) Return(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eq, ok := f.units[id]
	if !ok {
		return apperrors.NotFound("equipment", nil)
	}
	eq.Status = model.EquipmentStatusInStock
	eq.CustomerID = nil
	eq.AssignedAt = nil
	return nil
}

func (f *fakeEquipmentRepo) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Equipment
	for _, eq := range f.units {
		if eq.CustomerID != nil && *eq.CustomerID == customerID {
			copied := *eq
			result = append(result, &copied)
		}
	}
	return result, nil
}

type notificationRecorder struct {
	mu      sync.Mutex
	created []*model.Notification
}

func (r *notificationRecorder) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.New()
	copied := *n
	r.created = append(r.created, &copied)
	return nil
}

func (r *notificationRecorder) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, apperrors.NotFound("notification", nil)
}

func (r *notificationRecorder) List(ctx context.Context, userID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
	return nil, nil
}

func (r *notificationRecorder) Counts(ctx context.Context, userID uuid.UUID) (*model.NotificationCounts, error) {
	return &model.NotificationCounts{}, nil
}

func (r *notificationRecorder) MarkRead(ctx context.Context, id uuid.UUID) error { return nil }

func (r *notificationRecorder) MarkAllRead(ctx context.Context, userID uuid.UUID) error { return nil }

func (r *notificationRecorder) Archive(ctx context.Context, id uuid.UUID) error { return nil }

func (r *notificationRecorder) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *notificationRecorder) MarkDelivered(ctx context.Context, id uuid.UUID) error { return nil }

func (r *notificationRecorder) ListUndelivered(ctx context.Context, limit int) ([]*model.Notification, error) {
	return nil, nil
}

type fixture struct {
	svc           *Service
	customers     *fakeCustomerRepo
	plans         *fakePlanRepo
	subscriptions *fakeSubscriptionRepo
	equipment     *fakeEquipmentRepo
	notifications *notificationRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })

	hub := realtime.NewHub()
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	publisher := realtime.NewPublisher(broker)
	recorder := &notificationRecorder{}
	notifier := notification.NewService(recorder, hub, publisher, log)

	customers := newFakeCustomerRepo()
	plans := newFakePlanRepo()
	subscriptions := newFakeSubscriptionRepo()
	equipment := newFakeEquipmentRepo()

	return &fixture{
		svc:           NewService(customers, plans, subscriptions, equipment, notifier, log),
		customers:     customers,
		plans:         plans,
		subscriptions: subscriptions,
		equipment:     equipment,
		notifications: recorder,
	}
}

func (f *fixture) seedCustomer(t *testing.T) *model.Customer {
	t.Helper()
	c, err := f.svc.CreateCustomer(context.Background(), "John Deng", "john@example.com", "0912345678", "Juba")
	require.NoError(t, err)
	return c
}

func (f *fixture) seedPlan(t *testing.T, name string) *model.ServicePlan {
	t.Helper()
	p, err := f.svc.CreatePlan(context.Background(), name, 10, 8000, "SSP")
	require.NoError(t, err)
	return p
}

func TestCreateCustomerNormalizesPhone(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.CreateCustomer(context.Background(), "John Deng", "John@Example.com", "0912345678", "Juba")
	require.NoError(t, err)

	assert.Equal(t, "+211912345678", c.Phone)
	assert.Equal(t, "john@example.com", c.Email)
	assert.Equal(t, model.CustomerStatusActive, c.Status)
}

func TestCreateCustomerRejectsInvalidPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateCustomer(context.Background(), "John Deng", "john@example.com", "12345", "Juba")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSubscribeCreatesActiveSubscription(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	p := f.seedPlan(t, "Home 10Mbps")

	sub, err := f.svc.Subscribe(context.Background(), c.ID, p.ID, uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, c.ID, sub.CustomerID)
	assert.Equal(t, p.ID, sub.PlanID)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
}

func TestSubscribeRejectsSecondActiveSubscription(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	p := f.seedPlan(t, "Home 10Mbps")
	other := f.seedPlan(t, "Home 20Mbps")

	_, err := f.svc.Subscribe(context.Background(), c.ID, p.ID, uuid.Nil)
	require.NoError(t, err)

	_, err = f.svc.Subscribe(context.Background(), c.ID, other.ID, uuid.Nil)
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestSubscribeRejectsInactivePlan(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	p := f.seedPlan(t, "Home 10Mbps")
	f.plans.deactivate(p.ID)

	_, err := f.svc.Subscribe(context.Background(), c.ID, p.ID, uuid.Nil)
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestSubscribeNotifiesActingUser(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	p := f.seedPlan(t, "Home 10Mbps")
	userID := uuid.New()

	_, err := f.svc.Subscribe(context.Background(), c.ID, p.ID, userID)
	require.NoError(t, err)

	f.notifications.mu.Lock()
	defer f.notifications.mu.Unlock()
	require.Len(t, f.notifications.created, 1)
	assert.Equal(t, userID, f.notifications.created[0].UserID)
	assert.Contains(t, f.notifications.created[0].Message, "Home 10Mbps")
}

func TestChangePlanMovesSubscription(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	p := f.seedPlan(t, "Home 10Mbps")
	upgrade := f.seedPlan(t, "Home 20Mbps")

	_, err := f.svc.Subscribe(context.Background(), c.ID, p.ID, uuid.Nil)
	require.NoError(t, err)

	sub, err := f.svc.ChangePlan(context.Background(), c.ID, upgrade.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, upgrade.ID, sub.PlanID)

	active, err := f.subscriptions.GetActiveForCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, upgrade.ID, active.PlanID)
}

func TestChangePlanToSamePlanIsNoOp(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	p := f.seedPlan(t, "Home 10Mbps")

	_, err := f.svc.Subscribe(context.Background(), c.ID, p.ID, uuid.Nil)
	require.NoError(t, err)

	sub, err := f.svc.ChangePlan(context.Background(), c.ID, p.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, p.ID, sub.PlanID)

	f.notifications.mu.Lock()
	defer f.notifications.mu.Unlock()
	assert.Empty(t, f.notifications.created)
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	p := f.seedPlan(t, "Home 10Mbps")

	_, err := f.svc.Subscribe(context.Background(), c.ID, p.ID, uuid.Nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelSubscription(context.Background(), c.ID))

	_, err = f.subscriptions.GetActiveForCustomer(context.Background(), c.ID)
	assert.True(t, apperrors.IsNotFound(err))

	// A cancelled subscription frees the customer to subscribe again.
	_, err = f.svc.Subscribe(context.Background(), c.ID, p.ID, uuid.Nil)
	assert.NoError(t, err)
}

func TestAssignEquipmentInStockOnly(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)
	other := f.seedCustomer(t)

	eq, err := f.svc.AddEquipment(context.Background(), "SN-001", "ONU-X200")
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignEquipment(context.Background(), eq.ID, c.ID))

	// Already deployed, so a second assignment loses.
	err = f.svc.AssignEquipment(context.Background(), eq.ID, other.ID)
	assert.True(t, apperrors.IsInvalidState(err))

	units, err := f.svc.ListEquipmentForCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, model.EquipmentStatusDeployed, units[0].Status)
}

func TestReturnEquipmentRestocks(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t)

	eq, err := f.svc.AddEquipment(context.Background(), "SN-001", "ONU-X200")
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignEquipment(context.Background(), eq.ID, c.ID))

	require.NoError(t, f.svc.ReturnEquipment(context.Background(), eq.ID))

	got, err := f.equipment.Get(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentStatusInStock, got.Status)
	assert.Nil(t, got.CustomerID)
}

func TestAssignEquipmentUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	eq, err := f.svc.AddEquipment(context.Background(), "SN-001", "ONU-X200")
	require.NoError(t, err)

	err = f.svc.AssignEquipment(context.Background(), eq.ID, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
