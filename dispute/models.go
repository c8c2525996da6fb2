package dispute

import "time"

// Status represents the lifecycle of a dispute record.
type Status string

const (
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
)

// Record mirrors the disputes table: a student contesting one of their
// invoices (wrong amount, already paid offline, etc.).
type Record struct {
	ID         string
	InvoiceID  string
	StudentID  string
	Reason     string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}
