package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the settlement invariants checked during stress runs. A
// missing receipt for a paid invoice is tolerated (enrichment is
// best-effort under chaos); a duplicate or orphaned receipt never is.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_duplicate_receipt",
			SQL: `SELECT invoice_id, COUNT(*) FROM receipts
                  GROUP BY invoice_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_receipt_without_paid_invoice",
			SQL: `SELECT r.id FROM receipts r
                  JOIN invoices i ON i.id = r.invoice_id
                  WHERE i.status <> 'paid'`,
		},
		{
			Name: "O3_paid_invoice_missing_settlement_fields",
			SQL: `SELECT id FROM invoices
                  WHERE status = 'paid'
                    AND (gateway_reference IS NULL OR paid_at IS NULL)`,
		},
		{
			Name: "O4_receipt_reference_mismatch",
			SQL: `SELECT r.id FROM receipts r
                  JOIN invoices i ON i.id = r.invoice_id
                  WHERE i.gateway_reference IS NOT NULL
                    AND r.gateway_reference <> i.gateway_reference`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample
// row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
