package billing

import "time"

// InvoiceStatus is the lifecycle of a rental invoice. Once paid, an invoice
// is never transitioned again by this package.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// Invoice mirrors the invoices table. Amount is the expected rent in whole
// currency units (GHS); the gateway reports settled amounts in pesewas.
type Invoice struct {
	ID               string
	StudentID        string
	AgreementID      string
	Amount           int64
	Status           InvoiceStatus
	Description      string
	GatewayReference *string
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Receipt is the immutable proof-of-payment row, created at most once per
// invoice. AmountPaid is in major units, converted from the gateway's
// minor-unit figure.
type Receipt struct {
	ID               string
	InvoiceID        string
	StudentID        string
	AmountPaid       float64
	PaymentMethod    string
	GatewayReference string
	PaymentChannel   string
	PaidAt           time.Time
	CreatedAt        time.Time
}

// SettlementParams is the charge data extracted from a verified
// charge.success event. Amount is in minor units.
type SettlementParams struct {
	InvoiceID  string
	StudentID  string
	Reference  string
	Amount     int64
	Channel    string
	PayerEmail string
}

// SettlementOutcome classifies what a delivery did.
type SettlementOutcome string

const (
	// OutcomeProcessed: this delivery won the transition and settled the invoice.
	OutcomeProcessed SettlementOutcome = "processed"
	// OutcomeAlreadyProcessed: the invoice was already paid, either before
	// this delivery or by a concurrent one that won the conditional update.
	OutcomeAlreadyProcessed SettlementOutcome = "already_processed"
	// OutcomeUnknownInvoice: no invoice exists for the correlation key.
	OutcomeUnknownInvoice SettlementOutcome = "unknown_invoice"
)

// StepFailure records a best-effort enrichment step that failed after the
// invoice transition committed. These are reported to operators, never to
// the gateway.
type StepFailure struct {
	Step string
	Err  error
}

// SettlementResult is what ConfirmPayment reports back to the transport
// layer. Failures lists enrichment steps that need operator remediation.
type SettlementResult struct {
	Outcome  SettlementOutcome
	Failures []StepFailure
}

// MarkPaidParams drives the conditional invoice transition.
type MarkPaidParams struct {
	InvoiceID        string
	GatewayReference string
	PaidAt           time.Time
}
