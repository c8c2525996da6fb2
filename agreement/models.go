package agreement

import "time"

// Status is the lifecycle of a rental agreement.
type Status string

const (
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
	StatusExpired    Status = "expired"
)

// Agreement mirrors the agreements table: a student renting a room for a
// period at a monthly rate. Billing issues invoices against it but never
// mutates it.
type Agreement struct {
	ID            string
	StudentID     string
	Room          string
	MonthlyAmount int64
	StartDate     time.Time
	EndDate       time.Time
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IssueInvoiceParams drives invoice issuance from an agreement.
type IssueInvoiceParams struct {
	AgreementID string
	// Period is a human label for the billed rental period, e.g. "2025-09".
	Period string
	// Amount overrides the agreement's monthly amount when non-zero
	// (pro-rated first month, penalty, etc.).
	Amount int64
	// IssuedBy is the manager performing the issuance, recorded in the
	// audit trail.
	IssuedBy string
}
