package paystack

// Event types delivered by the Paystack webhook. Only charge.success drives
// settlement; everything else is acknowledged and dropped.
const (
	EventChargeSuccess = "charge.success"
)

// SignatureHeader carries the HMAC-SHA512 digest of the raw request body.
const SignatureHeader = "x-paystack-signature"

// Event is the decoded webhook envelope. It lives only for the duration of a
// single request and is never persisted.
type Event struct {
	Type string    `json:"event"`
	Data EventData `json:"data"`
}

// EventData carries the charge payload fields the settlement flow consumes.
// Amount is in minor currency units (pesewas).
type EventData struct {
	Reference string   `json:"reference"`
	Amount    int64    `json:"amount"`
	Channel   string   `json:"channel"`
	Metadata  Metadata `json:"metadata"`
	Customer  Customer `json:"customer"`
}

// Metadata is the pass-through bag set when the charge was initialized; it
// holds the correlation keys back into the billing domain.
type Metadata struct {
	InvoiceID string `json:"invoice_id"`
	StudentID string `json:"student_id"`
}

type Customer struct {
	Email string `json:"email"`
}

// AmountMajor converts the minor-unit charge amount to major currency units.
func (d EventData) AmountMajor() float64 {
	return float64(d.Amount) / 100
}
