package paystack

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedEvent signals the body is not valid JSON for the envelope.
	ErrMalformedEvent = errors.New("paystack: malformed event")
	// ErrMissingInvoiceID signals a charge.success event without the
	// invoice_id correlation key. The body parsed fine, so this is distinct
	// from ErrMalformedEvent and maps to a different response.
	ErrMissingInvoiceID = errors.New("paystack: missing invoice_id in metadata")
)

// ParseEvent decodes and classifies a webhook body. Events other than
// charge.success are returned as-is so the caller can acknowledge them
// without enumerating every event kind Paystack may send. For charge.success
// the invoice correlation key is required.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if ev.Type != EventChargeSuccess {
		return ev, nil
	}

	if ev.Data.Metadata.InvoiceID == "" {
		return Event{}, ErrMissingInvoiceID
	}

	return ev, nil
}
