package agreement

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"hostelflow/audit"
	"hostelflow/billing"
)

// AgreementReader abstracts repository reads for testability.
type AgreementReader interface {
	GetByID(ctx context.Context, id string) (Agreement, error)
	ListForStudent(ctx context.Context, studentID string) ([]Agreement, error)
}

// InvoiceIssuer is the billing write this service performs.
type InvoiceIssuer interface {
	CreateInvoice(ctx context.Context, invoice billing.Invoice) (billing.Invoice, error)
}

// AuditRecorder captures the issuance audit write.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Service exposes rental agreements and lets managers issue invoices
// against them.
type Service struct {
	repo        AgreementReader
	invoices    InvoiceIssuer
	auditLog    AuditRecorder
	errorLog    *log.Logger
	idGenerator func() string
}

// NewService wires the agreement service. A nil logger falls back to the
// standard logger so audit failures are never silently dropped.
func NewService(repo AgreementReader, invoices InvoiceIssuer, auditLog AuditRecorder, errorLog *log.Logger) *Service {
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Service{
		repo:        repo,
		invoices:    invoices,
		auditLog:    auditLog,
		errorLog:    errorLog,
		idGenerator: func() string { return uuid.NewString() },
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) GetByID(ctx context.Context, id string) (Agreement, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]Agreement, error) {
	return s.repo.ListForStudent(ctx, studentID)
}

// IssueInvoice creates a pending invoice for the agreement's rental period.
// The audit write is best-effort: a pending invoice without an audit row is
// recoverable, a rolled-back invoice is a lost billing cycle.
func (s *Service) IssueInvoice(ctx context.Context, params IssueInvoiceParams) (billing.Invoice, error) {
	if params.AgreementID == "" {
		return billing.Invoice{}, fmt.Errorf("agreement: missing agreement id")
	}
	if params.Period == "" {
		return billing.Invoice{}, fmt.Errorf("agreement: missing billing period")
	}

	ag, err := s.repo.GetByID(ctx, params.AgreementID)
	if err != nil {
		return billing.Invoice{}, err
	}
	if ag.Status != StatusActive {
		return billing.Invoice{}, fmt.Errorf("agreement: cannot invoice %s agreement %s", ag.Status, ag.ID)
	}

	amount := params.Amount
	if amount == 0 {
		amount = ag.MonthlyAmount
	}
	if amount < 0 {
		return billing.Invoice{}, fmt.Errorf("agreement: invalid invoice amount %d", amount)
	}

	invoice, err := s.invoices.CreateInvoice(ctx, billing.Invoice{
		ID:          s.idGenerator(),
		StudentID:   ag.StudentID,
		AgreementID: ag.ID,
		Amount:      amount,
		Status:      billing.InvoiceStatusPending,
		Description: fmt.Sprintf("Rent for %s, room %s", params.Period, ag.Room),
	})
	if err != nil {
		return billing.Invoice{}, err
	}

	// The invoice insert above has committed; surfacing an audit failure
	// now would make the caller retry and issue a duplicate.
	if err := s.auditLog.Record(ctx, audit.Entry{
		ID:         s.idGenerator(),
		EntityType: "invoice",
		EntityID:   invoice.ID,
		Action:     audit.ActionInvoiceIssued,
		ActorID:    params.IssuedBy,
		Metadata: map[string]any{
			"agreement_id": ag.ID,
			"period":       params.Period,
			"amount":       amount,
		},
	}); err != nil {
		s.errorLog.Printf("agreement: invoice %s issued but audit failed: %v", invoice.ID, err)
	}

	return invoice, nil
}
