package actors

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"hostelflow/billing"
)

// Target is one seeded invoice the actors deliver against. Reference is the
// canonical gateway reference for the invoice, shared by every duplicate
// delivery.
type Target struct {
	InvoiceID string
	StudentID string
	Reference string
	Amount    int64
}

// Counters aggregates outcomes across all actors.
type Counters struct {
	Processed        atomic.Int64
	AlreadyProcessed atomic.Int64
	UnknownInvoice   atomic.Int64
	StepFailures     atomic.Int64
	Errors           atomic.Int64
}

// Deliverer simulates Paystack delivering charge.success webhooks. It picks
// random targets and confirms them until the context ends, so concurrent
// deliverers naturally produce duplicate and racing deliveries for the same
// invoice.
type Deliverer struct {
	ID       int
	Service  *billing.Service
	Targets  []Target
	Counters *Counters
	Rand     *rand.Rand
}

func (d *Deliverer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		t := d.Targets[d.Rand.Intn(len(d.Targets))]
		d.deliver(ctx, t)
	}
}

// Replayer hammers a single hot target, the worst case for the conditional
// update: every delivery after the first must classify as already processed.
type Replayer struct {
	ID       int
	Service  *billing.Service
	Target   Target
	Counters *Counters
	Interval time.Duration
}

func (r *Replayer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	d := Deliverer{ID: r.ID, Service: r.Service, Counters: r.Counters}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.deliver(ctx, r.Target)
		}
	}
}

func (d *Deliverer) deliver(ctx context.Context, t Target) {
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := d.Service.ConfirmPayment(callCtx, billing.SettlementParams{
		InvoiceID:  t.InvoiceID,
		StudentID:  t.StudentID,
		Reference:  t.Reference,
		Amount:     t.Amount * 100,
		Channel:    "mobile_money",
		PayerEmail: "stress@hostelflow.test",
	})
	if err != nil {
		// The run is being torn down, not a settlement failure.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		d.Counters.Errors.Add(1)
		return
	}

	switch result.Outcome {
	case billing.OutcomeProcessed:
		d.Counters.Processed.Add(1)
	case billing.OutcomeAlreadyProcessed:
		d.Counters.AlreadyProcessed.Add(1)
	case billing.OutcomeUnknownInvoice:
		d.Counters.UnknownInvoice.Add(1)
	}
	d.Counters.StepFailures.Add(int64(len(result.Failures)))
}
