package billing

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/internal/repository"
	"github.com/wipay/subscriber-api/internal/service/notification"
	apperrors "github.com/wipay/subscriber-api/pkg/errors"
	"github.com/wipay/subscriber-api/pkg/logger"
	"github.com/wipay/subscriber-api/pkg/momo"
	"github.com/wipay/subscriber-api/pkg/sms"
)

// Service runs the invoice payment flow: request-to-pay against the mobile
// money gateway, then a confirmation step that settles the invoice, issues the
// access token and notifies the payer.
type Service struct {
	invoices  repository.InvoiceRepository
	customers repository.CustomerRepository
	plans     repository.ServicePlanRepository
	gateway   momo.Gateway
	sms       *sms.Service
	notifier  *notification.Service
	logger    *logger.Logger
}

func NewService(
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	plans repository.ServicePlanRepository,
	gateway momo.Gateway,
	smsSvc *sms.Service,
	notifier *notification.Service,
	logger *logger.Logger,
) *Service {
	return &Service{
		invoices:  invoices,
		customers: customers,
		plans:     plans,
		gateway:   gateway,
		sms:       smsSvc,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *Service) CreateInvoice(ctx context.Context, customerID uuid.UUID, planID *uuid.UUID, amount float64, currency string, dueDate time.Time) (*model.Invoice, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}
	if currency == "" {
		return nil, apperrors.Validation("currency is required")
	}
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		CustomerID: customerID,
		PlanID:     planID,
		Amount:     amount,
		Currency:   currency,
		Status:     model.InvoiceStatusUnpaid,
		DueDate:    dueDate,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.invoices.Get(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, customerID uuid.UUID) ([]*model.Invoice, error) {
	return s.invoices.ListForCustomer(ctx, customerID)
}

// RequestPayment submits a request-to-pay for an unpaid invoice. The invoice
// moves to pending with the gateway reference recorded; settlement happens in
// ConfirmPayment once the payer has approved on their handset.
func (s *Service) RequestPayment(ctx context.Context, invoiceID uuid.UUID, rawPhone string) (*momo.PaymentResult, error) {
	if !momo.ValidateNumber(rawPhone) {
		return nil, apperrors.Validation("phone number is not a valid mobile money number")
	}
	phone := momo.Normalize(rawPhone)

	invoice, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return nil, apperrors.InvalidState("invoice is already paid")
	}
	if invoice.Status == model.InvoiceStatusPending {
		return nil, apperrors.InvalidState("a payment for this invoice is already in progress")
	}

	result, err := s.gateway.RequestToPay(ctx, momo.PaymentRequest{
		Amount:     invoice.Amount,
		Currency:   invoice.Currency,
		Phone:      phone,
		ExternalID: invoice.ID.String(),
		Message:    fmt.Sprintf("Invoice %s", invoice.ID),
	})
	if err != nil {
		return nil, apperrors.PaymentFailed("", err)
	}

	if err := s.invoices.MarkPending(ctx, invoiceID, result.ReferenceID); err != nil {
		return nil, err
	}

	s.logger.Info("payment requested",
		"invoice_id", invoiceID.String(),
		"reference_id", result.ReferenceID)
	return result, nil
}

// ConfirmPayment polls the gateway for the pending payment and settles the
// invoice. On success the invoice is marked paid, an access token is issued
// and sent by SMS, and the acting user is notified. On failure the invoice
// returns to unpaid so the payer can retry. A still-pending payment is
// returned as-is without touching the invoice.
func (s *Service) ConfirmPayment(ctx context.Context, invoiceID, actingUserID uuid.UUID) (*momo.PaymentResult, error) {
	invoice, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != model.InvoiceStatusPending || invoice.PaymentRef == nil {
		return nil, apperrors.InvalidState("no payment in progress for this invoice")
	}

	result, err := s.gateway.GetStatus(ctx, *invoice.PaymentRef)
	if err != nil {
		return nil, apperrors.PaymentFailed("", err)
	}

	switch result.Status {
	case momo.StatusSuccessful:
		if err := s.invoices.MarkPaid(ctx, invoiceID); err != nil {
			return nil, err
		}
		s.settle(ctx, invoice, actingUserID)
		return result, nil

	case momo.StatusFailed:
		if err := s.invoices.MarkUnpaid(ctx, invoiceID); err != nil {
			return nil, err
		}
		if _, nerr := s.notifier.NotifyPayment(ctx, actingUserID, invoice.Amount, invoice.Currency, false, result.Reason); nerr != nil {
			s.logger.Error(nerr, "failed to record payment failure notification", "invoice_id", invoiceID.String())
		}
		return nil, apperrors.PaymentFailed(result.Reason, nil)

	default:
		return result, nil
	}
}

// settle performs the post-payment side effects. They are best-effort: the
// invoice is already paid, so a failed notification or SMS is logged rather
// than rolled back.
func (s *Service) settle(ctx context.Context, invoice *model.Invoice, actingUserID uuid.UUID) {
	if _, err := s.notifier.NotifyPayment(ctx, actingUserID, invoice.Amount, invoice.Currency, true, ""); err != nil {
		s.logger.Error(err, "failed to record payment notification", "invoice_id", invoice.ID.String())
	}

	planName := "your plan"
	if invoice.PlanID != nil {
		if plan, err := s.plans.Get(ctx, *invoice.PlanID); err == nil {
			planName = plan.Name
		}
	}

	token := generateToken()
	if _, err := s.notifier.NotifyTokenGenerated(ctx, actingUserID, token, planName); err != nil {
		s.logger.Error(err, "failed to record token notification", "invoice_id", invoice.ID.String())
	}

	customer, err := s.customers.Get(ctx, invoice.CustomerID)
	if err != nil {
		s.logger.Error(err, "failed to load customer for receipt", "customer_id", invoice.CustomerID.String())
		return
	}
	receipt := fmt.Sprintf("Payment of %.2f %s received. Your token: %s", invoice.Amount, invoice.Currency, token)
	if err := s.sms.Send(ctx, customer.Phone, receipt); err != nil {
		s.logger.Error(err, "failed to send receipt sms", "customer_id", customer.ID.String())
	}
}

// generateToken returns a 12-digit voucher code in XXXX-XXXX-XXXX form.
func generateToken() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		return uuid.New().String()
	}
	digits := make([]byte, 0, 14)
	for i, b := range buf {
		if i > 0 && i%4 == 0 {
			digits = append(digits, '-')
		}
		digits = append(digits, '0'+b%10)
	}
	return string(digits)
}
