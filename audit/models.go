package audit

import "time"

// Actions recorded by this package. The log is append-only; rows are never
// updated or deleted.
const (
	ActionPaymentConfirmed = "payment_confirmed"
	ActionInvoiceIssued    = "invoice_issued"
	ActionDisputeResolved  = "dispute_resolved"
)

// Entry is one append-only audit fact about an entity, with a metadata bag
// kept for forensic traceability.
type Entry struct {
	ID         string
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	Metadata   map[string]any
	CreatedAt  time.Time
}
