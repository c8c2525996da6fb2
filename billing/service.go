package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hostelflow/audit"
	"hostelflow/notification"
)

// PaymentMethod recorded on receipts; settlement always arrives via Paystack
// regardless of the channel the payer used (card, mobile_money, ...).
const PaymentMethod = "paystack"

// AuditRecorder captures the audit trail write the settlement performs.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// NotificationWriter captures the student notification write.
type NotificationWriter interface {
	Create(ctx context.Context, n notification.Notification) error
}

// Service owns invoice settlement. It holds no per-request state; everything
// mutable lives in the database.
type Service struct {
	repo          Repository
	auditLog      AuditRecorder
	notifications NotificationWriter
	errorLog      *log.Logger
	idGenerator   func() string
	now           func() time.Time
}

// NewService wires the settlement service. A nil logger falls back to the
// standard logger so enrichment failures are never silently dropped.
func NewService(repo Repository, auditLog AuditRecorder, notifications NotificationWriter, errorLog *log.Logger) *Service {
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Service{
		repo:          repo,
		auditLog:      auditLog,
		notifications: notifications,
		errorLog:      errorLog,
		idGenerator:   func() string { return uuid.NewString() },
		now:           time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ConfirmPayment applies a verified charge.success event to the invoice and
// its dependent records. It is safe to call any number of times, sequentially
// or concurrently, for the same event: the conditional update inside
// MarkInvoicePaid is the only serialization point, and only the winning call
// produces the receipt, audit entry, and notification.
//
// A non-nil error means the durable transition did not commit and the
// gateway should redeliver. Enrichment failures after the transition are
// returned in the result and logged, never as an overall error.
func (s *Service) ConfirmPayment(ctx context.Context, params SettlementParams) (SettlementResult, error) {
	if params.InvoiceID == "" {
		return SettlementResult{}, fmt.Errorf("billing: missing invoice id")
	}
	if params.Reference == "" {
		return SettlementResult{}, fmt.Errorf("billing: missing gateway reference")
	}

	// Advisory pre-check. Catches replays and unknown invoices cheaply; the
	// conditional update below still decides races it cannot see.
	invoice, err := s.repo.GetInvoice(ctx, params.InvoiceID)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			return SettlementResult{Outcome: OutcomeUnknownInvoice}, nil
		}
		return SettlementResult{}, err
	}
	if invoice.Status == InvoiceStatusPaid {
		return SettlementResult{Outcome: OutcomeAlreadyProcessed}, nil
	}

	paidAt := s.now().UTC()
	invoice, err = s.repo.MarkInvoicePaid(ctx, MarkPaidParams{
		InvoiceID:        params.InvoiceID,
		GatewayReference: params.Reference,
		PaidAt:           paidAt,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			return SettlementResult{Outcome: OutcomeAlreadyProcessed}, nil
		}
		if errors.Is(err, ErrInvoiceNotFound) {
			return SettlementResult{Outcome: OutcomeUnknownInvoice}, nil
		}
		return SettlementResult{}, err
	}

	studentID := params.StudentID
	if studentID == "" {
		studentID = invoice.StudentID
	}

	amountPaid := float64(params.Amount) / 100
	if params.Amount != invoice.Amount*100 {
		s.errorLog.Printf("billing: settlement amount mismatch for invoice %s: expected %d, gateway settled %.2f (ref %s)",
			invoice.ID, invoice.Amount, amountPaid, params.Reference)
	}

	result := SettlementResult{Outcome: OutcomeProcessed}

	// The invoice transition above has committed; from here on the gateway
	// must see success. Each step runs independently so one failure cannot
	// starve the rest, and every failure is captured for operators.
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"receipt", func(ctx context.Context) error {
			return s.repo.CreateReceipt(ctx, Receipt{
				ID:               s.idGenerator(),
				InvoiceID:        invoice.ID,
				StudentID:        studentID,
				AmountPaid:       amountPaid,
				PaymentMethod:    PaymentMethod,
				GatewayReference: params.Reference,
				PaymentChannel:   params.Channel,
				PaidAt:           paidAt,
			})
		}},
		{"audit", func(ctx context.Context) error {
			return s.auditLog.Record(ctx, audit.Entry{
				ID:         s.idGenerator(),
				EntityType: "invoice",
				EntityID:   invoice.ID,
				Action:     audit.ActionPaymentConfirmed,
				ActorID:    studentID,
				Metadata: map[string]any{
					"reference":   params.Reference,
					"amount":      params.Amount,
					"channel":     params.Channel,
					"payer_email": params.PayerEmail,
				},
			})
		}},
		{"notification", func(ctx context.Context) error {
			return s.notifications.Create(ctx, notification.Notification{
				ID:        s.idGenerator(),
				StudentID: studentID,
				Title:     "Payment received",
				Message:   fmt.Sprintf("Your payment of GHS %.2f was received (ref %s). Thank you!", amountPaid, params.Reference),
			})
		}},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			s.errorLog.Printf("billing: settlement enrichment %s failed for invoice %s (ref %s): %v",
				step.name, invoice.ID, params.Reference, err)
			result.Failures = append(result.Failures, StepFailure{Step: step.name, Err: err})
		}
	}

	return result, nil
}

// InvoicesForStudent lists a student's invoices for the portal.
func (s *Service) InvoicesForStudent(ctx context.Context, studentID string) ([]Invoice, error) {
	if studentID == "" {
		return nil, fmt.Errorf("billing: missing student id")
	}
	return s.repo.ListInvoicesForStudent(ctx, studentID)
}

// ReceiptsForStudent lists a student's receipts for the portal.
func (s *Service) ReceiptsForStudent(ctx context.Context, studentID string) ([]Receipt, error) {
	if studentID == "" {
		return nil, fmt.Errorf("billing: missing student id")
	}
	return s.repo.ListReceiptsForStudent(ctx, studentID)
}
