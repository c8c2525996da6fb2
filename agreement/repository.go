package agreement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no agreement row exists for the identifier.
var ErrNotFound = errors.New("agreement: not found")

// Repository provides read access to rental agreements.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agreementColumns = `id, student_id, room, monthly_amount, start_date, end_date, status, created_at, updated_at`

// GetByID fetches an agreement by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Agreement, error) {
	const selectSQL = `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE id = $1
	`

	ag, err := scanAgreement(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, ErrNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: get by id: %w", err)
	}

	return ag, nil
}

// ListForStudent returns a student's agreements, newest first.
func (r *Repository) ListForStudent(ctx context.Context, studentID string) ([]Agreement, error) {
	const selectSQL = `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, selectSQL, studentID)
	if err != nil {
		return nil, fmt.Errorf("agreement: list for student: %w", err)
	}
	defer rows.Close()

	agreements := []Agreement{}
	for rows.Next() {
		ag, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("agreement: scan: %w", err)
		}
		agreements = append(agreements, ag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agreement: iterate: %w", err)
	}

	return agreements, nil
}

func scanAgreement(row pgx.Row) (Agreement, error) {
	var ag Agreement
	err := row.Scan(
		&ag.ID,
		&ag.StudentID,
		&ag.Room,
		&ag.MonthlyAmount,
		&ag.StartDate,
		&ag.EndDate,
		&ag.Status,
		&ag.CreatedAt,
		&ag.UpdatedAt,
	)
	if err != nil {
		return Agreement{}, err
	}
	return ag, nil
}
