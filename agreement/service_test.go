package agreement

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"hostelflow/audit"
	"hostelflow/billing"
)

func discardLog() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func activeAgreement() Agreement {
	return Agreement{
		ID:            "AGR-1",
		StudentID:     "S1",
		Room:          "B12",
		MonthlyAmount: 5000,
		StartDate:     time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:        StatusActive,
	}
}

func TestIssueInvoice_DefaultsToMonthlyAmount(t *testing.T) {
	reader := &stubReader{agreement: activeAgreement()}
	issuer := &stubIssuer{}
	auditLog := &stubAudit{}
	svc := NewService(reader, issuer, auditLog, discardLog()).WithIDGenerator(func() string { return "fixed-id" })

	invoice, err := svc.IssueInvoice(context.Background(), IssueInvoiceParams{
		AgreementID: "AGR-1",
		Period:      "2025-09",
		IssuedBy:    "manager-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice.Amount != 5000 {
		t.Fatalf("expected monthly amount 5000, got %d", invoice.Amount)
	}
	if invoice.Status != billing.InvoiceStatusPending {
		t.Fatalf("expected pending invoice, got %s", invoice.Status)
	}
	if !strings.Contains(invoice.Description, "2025-09") || !strings.Contains(invoice.Description, "B12") {
		t.Fatalf("unexpected description: %q", invoice.Description)
	}

	if len(auditLog.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditLog.entries))
	}
	if auditLog.entries[0].Action != audit.ActionInvoiceIssued || auditLog.entries[0].ActorID != "manager-1" {
		t.Fatalf("unexpected audit entry: %+v", auditLog.entries[0])
	}
}

func TestIssueInvoice_OverrideAmount(t *testing.T) {
	svc := NewService(&stubReader{agreement: activeAgreement()}, &stubIssuer{}, &stubAudit{}, discardLog())

	invoice, err := svc.IssueInvoice(context.Background(), IssueInvoiceParams{
		AgreementID: "AGR-1",
		Period:      "2025-09",
		Amount:      2500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice.Amount != 2500 {
		t.Fatalf("expected override amount 2500, got %d", invoice.Amount)
	}
}

func TestIssueInvoice_RejectsInactiveAgreement(t *testing.T) {
	ag := activeAgreement()
	ag.Status = StatusTerminated
	issuer := &stubIssuer{}
	svc := NewService(&stubReader{agreement: ag}, issuer, &stubAudit{}, discardLog())

	if _, err := svc.IssueInvoice(context.Background(), IssueInvoiceParams{AgreementID: "AGR-1", Period: "2025-09"}); err == nil {
		t.Fatal("expected error for terminated agreement")
	}
	if len(issuer.created) != 0 {
		t.Fatal("no invoice may be created for an inactive agreement")
	}
}

func TestIssueInvoice_UnknownAgreement(t *testing.T) {
	svc := NewService(&stubReader{err: ErrNotFound}, &stubIssuer{}, &stubAudit{}, discardLog())

	if _, err := svc.IssueInvoice(context.Background(), IssueInvoiceParams{AgreementID: "missing", Period: "2025-09"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// The invoice insert commits before the audit write. Surfacing an audit
// failure would make the manager retry and issue a duplicate pending
// invoice for the same period.
func TestIssueInvoice_AuditFailureStillIssues(t *testing.T) {
	issuer := &stubIssuer{}
	var logged bytes.Buffer
	svc := NewService(&stubReader{agreement: activeAgreement()}, issuer,
		&stubAudit{err: errors.New("audit down")}, log.New(&logged, "", 0))

	invoice, err := svc.IssueInvoice(context.Background(), IssueInvoiceParams{
		AgreementID: "AGR-1",
		Period:      "2025-09",
		IssuedBy:    "manager-1",
	})
	if err != nil {
		t.Fatalf("audit failure must not surface as an error, got %v", err)
	}
	if invoice.Amount != 5000 || invoice.Status != billing.InvoiceStatusPending {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}
	if len(issuer.created) != 1 {
		t.Fatalf("expected exactly one created invoice, got %d", len(issuer.created))
	}
	if !strings.Contains(logged.String(), "audit down") {
		t.Errorf("expected the audit failure in the error log, got %q", logged.String())
	}
}

type stubReader struct {
	agreement Agreement
	err       error
}

func (s *stubReader) GetByID(_ context.Context, _ string) (Agreement, error) {
	if s.err != nil {
		return Agreement{}, s.err
	}
	return s.agreement, nil
}

func (s *stubReader) ListForStudent(_ context.Context, _ string) ([]Agreement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []Agreement{s.agreement}, nil
}

type stubIssuer struct {
	created []billing.Invoice
	err     error
}

func (s *stubIssuer) CreateInvoice(_ context.Context, invoice billing.Invoice) (billing.Invoice, error) {
	if s.err != nil {
		return billing.Invoice{}, s.err
	}
	s.created = append(s.created, invoice)
	return invoice, nil
}

type stubAudit struct {
	entries []audit.Entry
	err     error
}

func (s *stubAudit) Record(_ context.Context, entry audit.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}
