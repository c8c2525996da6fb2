package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInvoiceNotFound signals no invoice row exists for the identifier.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrAlreadyPaid signals the conditional transition found the invoice
	// already in the paid state.
	ErrAlreadyPaid = errors.New("billing: invoice already paid")
	// ErrDuplicateReceipt signals a second receipt insert for the same
	// invoice hit the uniqueness guardrail.
	ErrDuplicateReceipt = errors.New("billing: receipt already exists for invoice")
)

// Repository is the data access the settlement service requires.
type Repository interface {
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	MarkInvoicePaid(ctx context.Context, params MarkPaidParams) (Invoice, error)
	CreateReceipt(ctx context.Context, receipt Receipt) error
	ListInvoicesForStudent(ctx context.Context, studentID string) ([]Invoice, error)
	ListReceiptsForStudent(ctx context.Context, studentID string) ([]Receipt, error)
	CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed billing repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const invoiceColumns = `id, student_id, agreement_id, amount, status, description, gateway_reference, paid_at, created_at, updated_at`

// GetInvoice fetches an invoice by primary key.
func (r *PGRepository) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	const selectSQL = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1
	`

	inv, err := scanInvoice(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, fmt.Errorf("billing: get invoice: %w", err)
	}

	return inv, nil
}

// MarkInvoicePaid performs the settlement's durability boundary: a single
// conditional update that only succeeds while the invoice is not yet paid.
// Two concurrent deliveries for the same invoice serialize here; the loser
// gets ErrAlreadyPaid and must not create a receipt.
func (r *PGRepository) MarkInvoicePaid(ctx context.Context, params MarkPaidParams) (Invoice, error) {
	const updateSQL = `
		UPDATE invoices
		SET status = 'paid',
		    gateway_reference = $2,
		    paid_at = $3,
		    updated_at = now()
		WHERE id = $1 AND status <> 'paid'
		RETURNING ` + invoiceColumns

	inv, err := scanInvoice(r.pool.QueryRow(ctx, updateSQL, params.InvoiceID, params.GatewayReference, params.PaidAt))
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("billing: mark invoice paid: %w", err)
	}

	// Zero rows: either the invoice does not exist or it is already paid.
	// Classify so the caller can answer the gateway without a retry loop.
	var status InvoiceStatus
	if err := r.pool.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1`, params.InvoiceID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, fmt.Errorf("billing: classify failed transition: %w", err)
	}
	if status == InvoiceStatusPaid {
		return Invoice{}, ErrAlreadyPaid
	}
	return Invoice{}, fmt.Errorf("billing: invoice %s in status %q not transitioned", params.InvoiceID, status)
}

// CreateReceipt inserts the immutable proof-of-payment row. The unique index
// on invoice_id backs the at-most-once guarantee.
func (r *PGRepository) CreateReceipt(ctx context.Context, receipt Receipt) error {
	const insertSQL = `
		INSERT INTO receipts (id, invoice_id, student_id, amount_paid, payment_method, gateway_reference, payment_channel, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, insertSQL,
		receipt.ID,
		receipt.InvoiceID,
		receipt.StudentID,
		receipt.AmountPaid,
		receipt.PaymentMethod,
		receipt.GatewayReference,
		receipt.PaymentChannel,
		receipt.PaidAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReceipt
		}
		return fmt.Errorf("billing: create receipt: %w", err)
	}

	return nil
}

// CreateInvoice inserts a pending invoice, normally issued from a rental
// agreement by a manager.
func (r *PGRepository) CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error) {
	const insertSQL = `
		INSERT INTO invoices (id, student_id, agreement_id, amount, status, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + invoiceColumns

	created, err := scanInvoice(r.pool.QueryRow(ctx, insertSQL,
		invoice.ID,
		invoice.StudentID,
		invoice.AgreementID,
		invoice.Amount,
		invoice.Status,
		invoice.Description,
	))
	if err != nil {
		return Invoice{}, fmt.Errorf("billing: create invoice: %w", err)
	}

	return created, nil
}

// ListInvoicesForStudent returns the student's invoices, newest first.
func (r *PGRepository) ListInvoicesForStudent(ctx context.Context, studentID string) ([]Invoice, error) {
	const selectSQL = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, selectSQL, studentID)
	if err != nil {
		return nil, fmt.Errorf("billing: list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("billing: scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate invoices: %w", err)
	}

	return invoices, nil
}

// ListReceiptsForStudent returns the student's receipts, newest first.
func (r *PGRepository) ListReceiptsForStudent(ctx context.Context, studentID string) ([]Receipt, error) {
	const selectSQL = `
		SELECT id, invoice_id, student_id, amount_paid, payment_method, gateway_reference, payment_channel, paid_at, created_at
		FROM receipts
		WHERE student_id = $1
		ORDER BY paid_at DESC
	`

	rows, err := r.pool.Query(ctx, selectSQL, studentID)
	if err != nil {
		return nil, fmt.Errorf("billing: list receipts: %w", err)
	}
	defer rows.Close()

	receipts := []Receipt{}
	for rows.Next() {
		var rec Receipt
		if err := rows.Scan(
			&rec.ID,
			&rec.InvoiceID,
			&rec.StudentID,
			&rec.AmountPaid,
			&rec.PaymentMethod,
			&rec.GatewayReference,
			&rec.PaymentChannel,
			&rec.PaidAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("billing: scan receipt: %w", err)
		}
		receipts = append(receipts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate receipts: %w", err)
	}

	return receipts, nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv       Invoice
		reference *string
	)
	err := row.Scan(
		&inv.ID,
		&inv.StudentID,
		&inv.AgreementID,
		&inv.Amount,
		&inv.Status,
		&inv.Description,
		&reference,
		&inv.PaidAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return Invoice{}, err
	}

	inv.GatewayReference = reference
	return inv, nil
}
