package billing

import (
	"context"
	"errors"
	"io"
	"strings"
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
	"github.com/wipay/subscriber-api/pkg/momo"
	"github.com/wipay/subscriber-api/pkg/sms"
)

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*model.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	copied := *inv
	f.invoices[inv.ID] = &copied
	return nil
}

func (f *fakeInvoiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, apperrors.NotFound("invoice", nil)
	}
	copied := *inv
	return &copied, nil
}

func (f *fakeInvoiceRepo) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Invoice
	for _, inv := range f.invoices {
		if inv.CustomerID == customerID {
			copied := *inv
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeInvoiceRepo) MarkPending(ctx context.Context, id uuid.UUID, paymentRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return apperrors.NotFound("invoice", nil)
	}
	if inv.Status != model.InvoiceStatusUnpaid && inv.Status != model.InvoiceStatusOverdue {
		return apperrors.InvalidState("invoice is not payable")
	}
	inv.Status = model.InvoiceStatusPending
	inv.PaymentRef = &paymentRef
	return nil
}

func (f *fakeInvoiceRepo) MarkPaid(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return apperrors.NotFound("invoice", nil)
	}
	if inv.Status != model.InvoiceStatusPending {
		return apperrors.InvalidState("invoice has no pending payment")
	}
	inv.Status = model.InvoiceStatusPaid
	now := time.Now()
	inv.PaidAt = &now
	return nil
}

func (f *fakeInvoiceRepo) MarkUnpaid(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return apperrors.NotFound("invoice", nil)
	}
	inv.Status = model.InvoiceStatusUnpaid
	inv.PaymentRef = nil
	return nil
}

type fakeCustomerRepo struct {
	customers map[uuid.UUID]*model.Customer
}

func (f *fakeCustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	c.ID = uuid.New()
	f.customers[c.ID] = c
	return nil
}

func (f *fakeCustomerRepo) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, apperrors.NotFound("customer", nil)
	}
	return c, nil
}

func (f *fakeCustomerRepo) Update(ctx context.Context, c *model.Customer) error { return nil }

func (f *fakeCustomerRepo) List(ctx context.Context) ([]*model.Customer, error) { return nil, nil }

type fakePlanRepo struct {
	plans map[uuid.UUID]*model.ServicePlan
}

func (f *fakePlanRepo) Create(ctx context.Context, p *model.ServicePlan) error {
	p.ID = uuid.New()
	f.plans[p.ID] = p
	return nil
}

func (f *fakePlanRepo) Get(ctx context.Context, id uuid.UUID) (*model.ServicePlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, apperrors.NotFound("service plan", nil)
	}
	return p, nil
}

func (f *fakePlanRepo) ListActive(ctx context.Context) ([]*model.ServicePlan, error) {
	return nil, nil
}

type scriptedGateway struct {
	mu       sync.Mutex
	requests []momo.PaymentRequest
	status   momo.PaymentResult
	payErr   error
}

func (g *scriptedGateway) RequestToPay(ctx context.Context, req momo.PaymentRequest) (*momo.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.payErr != nil {
		return nil, g.payErr
	}
	g.requests = append(g.requests, req)
	return &momo.PaymentResult{ReferenceID: uuid.New().String(), Status: momo.StatusPending}, nil
}

func (g *scriptedGateway) GetStatus(ctx context.Context, referenceID string) (*momo.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	result := g.status
	result.ReferenceID = referenceID
	return &result, nil
}

type captureSMS struct {
	mu   sync.Mutex
	sent []struct{ to, message string }
}

func (c *captureSMS) Send(ctx context.Context, to, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, struct{ to, message string }{to, message})
	return nil
}

type notificationRecorder struct {
	mu    sync.Mutex
	items []*model.Notification
}

func (r *notificationRecorder) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.New()
	copied := *n
	r.items = append(r.items, &copied)
	return nil
}

func (r *notificationRecorder) all() []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Notification(nil), r.items...)
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

func (r *notificationRecorder) ListUndelivered(ctx context.Context, limit int) ([]*model.Notification, error) {
	return nil, nil
}

func (r *notificationRecorder) MarkDelivered(ctx context.Context, id uuid.UUID) error { return nil }

type fixture struct {
	svc           *Service
	invoices      *fakeInvoiceRepo
	customers     *fakeCustomerRepo
	plans         *fakePlanRepo
	gateway       *scriptedGateway
	sms           *captureSMS
	notifications *notificationRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})

	recorder := &notificationRecorder{}
	notifier := notification.NewService(recorder, realtime.NewHub(), realtime.NewPublisher(broker), log)

	invoices := newFakeInvoiceRepo()
	customers := &fakeCustomerRepo{customers: make(map[uuid.UUID]*model.Customer)}
	plans := &fakePlanRepo{plans: make(map[uuid.UUID]*model.ServicePlan)}
	gateway := &scriptedGateway{}
	capture := &captureSMS{}
	smsSvc := sms.NewService(capture, "+211", log)

	return &fixture{
		svc:           NewService(invoices, customers, plans, gateway, smsSvc, notifier, log),
		invoices:      invoices,
		customers:     customers,
		plans:         plans,
		gateway:       gateway,
		sms:           capture,
		notifications: recorder,
	}
}

func (f *fixture) seed(t *testing.T) (*model.Customer, *model.ServicePlan, *model.Invoice) {
	t.Helper()
	ctx := context.Background()

	customer := &model.Customer{Name: "Jane", Email: "jane@example.com", Phone: "+211912345678"}
	require.NoError(t, f.customers.Create(ctx, customer))

	plan := &model.ServicePlan{Name: "Home 10Mbps", SpeedMbps: 10, MonthlyPrice: 150, Currency: "SSP", IsActive: true}
	require.NoError(t, f.plans.Create(ctx, plan))

	invoice, err := f.svc.CreateInvoice(ctx, customer.ID, &plan.ID, 150, "SSP", time.Now().Add(14*24*time.Hour))
	require.NoError(t, err)
	return customer, plan, invoice
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateInvoice(ctx, uuid.New(), nil, 0, "SSP", time.Now())
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.CreateInvoice(ctx, uuid.New(), nil, 100, "", time.Now())
	assert.True(t, apperrors.IsValidation(err))

	// Unknown customer.
	_, err = f.svc.CreateInvoice(ctx, uuid.New(), nil, 100, "SSP", time.Now())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRequestPaymentRejectsInvalidPhone(t *testing.T) {
	f := newFixture(t)
	_, _, invoice := f.seed(t)

	_, err := f.svc.RequestPayment(context.Background(), invoice.ID, "0812345678")
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, f.gateway.requests)
}

func TestRequestPaymentMarksPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, invoice := f.seed(t)

	result, err := f.svc.RequestPayment(ctx, invoice.ID, "0912345678")
	require.NoError(t, err)
	assert.Equal(t, momo.StatusPending, result.Status)

	// The gateway sees the canonical MSISDN.
	require.Len(t, f.gateway.requests, 1)
	assert.Equal(t, "+211912345678", f.gateway.requests[0].Phone)

	got, err := f.svc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, got.Status)
	require.NotNil(t, got.PaymentRef)
	assert.Equal(t, result.ReferenceID, *got.PaymentRef)
}

func TestRequestPaymentRejectsWrongState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, invoice := f.seed(t)

	_, err := f.svc.RequestPayment(ctx, invoice.ID, "0912345678")
	require.NoError(t, err)

	// A second request while one is in flight.
	_, err = f.svc.RequestPayment(ctx, invoice.ID, "0912345678")
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestRequestPaymentGatewayFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, invoice := f.seed(t)
	f.gateway.payErr = errors.New("gateway unreachable")

	_, err := f.svc.RequestPayment(ctx, invoice.ID, "0912345678")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPaymentFailed))

	got, err := f.svc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusUnpaid, got.Status)
}

func TestConfirmPaymentSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, plan, invoice := f.seed(t)
	actingUser := uuid.New()

	_, err := f.svc.RequestPayment(ctx, invoice.ID, "0912345678")
	require.NoError(t, err)

	f.gateway.status = momo.PaymentResult{Status: momo.StatusSuccessful, Amount: 150, Currency: "SSP"}

	result, err := f.svc.ConfirmPayment(ctx, invoice.ID, actingUser)
	require.NoError(t, err)
	assert.Equal(t, momo.StatusSuccessful, result.Status)

	got, err := f.svc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	// Payment and token notifications for the acting user.
	notifications := f.notifications.all()
	require.Len(t, notifications, 2)
	assert.Equal(t, model.NotificationCategoryPayment, notifications[0].Category)
	assert.Equal(t, model.NotificationCategoryToken, notifications[1].Category)
	assert.Contains(t, notifications[1].Message, plan.Name)

	// SMS receipt with the token goes to the customer's phone.
	require.Len(t, f.sms.sent, 1)
	assert.Equal(t, "+211912345678", f.sms.sent[0].to)
	assert.Contains(t, f.sms.sent[0].message, "token")
}

func TestConfirmPaymentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, invoice := f.seed(t)
	actingUser := uuid.New()

	_, err := f.svc.RequestPayment(ctx, invoice.ID, "0912345678")
	require.NoError(t, err)

	f.gateway.status = momo.PaymentResult{Status: momo.StatusFailed, Reason: "insufficient funds"}

	_, err = f.svc.ConfirmPayment(ctx, invoice.ID, actingUser)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPaymentFailed))
	assert.True(t, strings.Contains(err.Error(), "insufficient funds"))

	// The invoice returns to unpaid so the payer can retry.
	got, err := f.svc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusUnpaid, got.Status)
	assert.Nil(t, got.PaymentRef)

	notifications := f.notifications.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationTypeError, notifications[0].Type)
	assert.Empty(t, f.sms.sent)
}

func TestConfirmPaymentStillPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, invoice := f.seed(t)

	_, err := f.svc.RequestPayment(ctx, invoice.ID, "0912345678")
	require.NoError(t, err)

	f.gateway.status = momo.PaymentResult{Status: momo.StatusPending}

	result, err := f.svc.ConfirmPayment(ctx, invoice.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, momo.StatusPending, result.Status)

	got, err := f.svc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, got.Status)
	assert.Empty(t, f.notifications.all())
}

func TestConfirmPaymentWithoutRequest(t *testing.T) {
	f := newFixture(t)
	_, _, invoice := f.seed(t)

	_, err := f.svc.ConfirmPayment(context.Background(), invoice.ID, uuid.New())
	assert.True(t, apperrors.IsInvalidState(err))
}
