package dispute

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the dispute or its invoice does not exist.
	ErrNotFound = errors.New("dispute: not found")
	// ErrForbidden signals the invoice belongs to a different student.
	ErrForbidden = errors.New("dispute: invoice does not belong to student")
	// ErrBadStatus signals the dispute is not in a state the operation accepts.
	ErrBadStatus = errors.New("dispute: invalid status for operation")
)

// Repository handles dispute persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const disputeColumns = `id, invoice_id, student_id, reason, status, created_at, updated_at, resolved_at`

// Create opens an under_review dispute for one of the student's invoices.
// The ownership check and insert share a transaction so the invoice cannot
// be reassigned in between.
func (r *Repository) Create(ctx context.Context, studentID, invoiceID, reason string) (Record, error) {
	if studentID == "" || invoiceID == "" {
		return Record{}, fmt.Errorf("dispute: student id and invoice id required")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner string
	if err := tx.QueryRow(ctx, `SELECT student_id FROM invoices WHERE id = $1`, invoiceID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: check invoice: %w", err)
	}
	if owner != studentID {
		return Record{}, ErrForbidden
	}

	const insertSQL = `
		INSERT INTO disputes (invoice_id, student_id, reason, status)
		VALUES ($1, $2, $3, 'under_review')
		RETURNING ` + disputeColumns

	rec, err := scanRecord(tx.QueryRow(ctx, insertSQL, invoiceID, studentID, reason))
	if err != nil {
		return Record{}, fmt.Errorf("dispute: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit: %w", err)
	}

	return rec, nil
}

// ListForStudent returns the student's disputes, newest first.
func (r *Repository) ListForStudent(ctx context.Context, studentID string) ([]Record, error) {
	const selectSQL = `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, selectSQL, studentID)
	if err != nil {
		return nil, fmt.Errorf("dispute: list: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}

	return records, nil
}

// Resolve moves an under_review dispute to resolved. The status guard in the
// WHERE clause makes concurrent resolutions idempotent at the row level.
func (r *Repository) Resolve(ctx context.Context, disputeID string) (Record, error) {
	const updateSQL = `
		UPDATE disputes
		SET status = 'resolved',
		    resolved_at = now(),
		    updated_at = now()
		WHERE id = $1 AND status = 'under_review'
		RETURNING ` + disputeColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, updateSQL, disputeID))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("dispute: resolve: %w", err)
	}

	var status Status
	if err := r.pool.QueryRow(ctx, `SELECT status FROM disputes WHERE id = $1`, disputeID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: classify resolve: %w", err)
	}
	return Record{}, ErrBadStatus
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.InvoiceID,
		&rec.StudentID,
		&rec.Reason,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.ResolvedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
