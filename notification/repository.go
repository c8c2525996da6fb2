package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the notification does not exist or belongs to another
// student.
var ErrNotFound = errors.New("notification: not found")

// Repository handles notification persistence.
type Repository interface {
	Create(ctx context.Context, n Notification) error
	ListForStudent(ctx context.Context, studentID string) ([]Notification, error)
	MarkRead(ctx context.Context, studentID, id string) (Notification, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts an unread notification.
func (r *PGRepository) Create(ctx context.Context, n Notification) error {
	if n.StudentID == "" {
		return fmt.Errorf("notification: missing student id")
	}

	const insertSQL = `
		INSERT INTO notifications (id, student_id, title, message, is_read)
		VALUES ($1, $2, $3, $4, false)
	`

	if _, err := r.pool.Exec(ctx, insertSQL, n.ID, n.StudentID, n.Title, n.Message); err != nil {
		return fmt.Errorf("notification: insert: %w", err)
	}

	return nil
}

// ListForStudent returns the student's notifications, newest first.
func (r *PGRepository) ListForStudent(ctx context.Context, studentID string) ([]Notification, error) {
	const selectSQL = `
		SELECT id, student_id, title, message, is_read, created_at
		FROM notifications
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, selectSQL, studentID)
	if err != nil {
		return nil, fmt.Errorf("notification: list: %w", err)
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.StudentID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notification: scan: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: iterate: %w", err)
	}

	return items, nil
}

// MarkRead flips is_read for one of the student's own notifications.
func (r *PGRepository) MarkRead(ctx context.Context, studentID, id string) (Notification, error) {
	const updateSQL = `
		UPDATE notifications
		SET is_read = true
		WHERE id = $1 AND student_id = $2
		RETURNING id, student_id, title, message, is_read, created_at
	`

	var n Notification
	err := r.pool.QueryRow(ctx, updateSQL, id, studentID).Scan(&n.ID, &n.StudentID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, fmt.Errorf("notification: mark read: %w", err)
	}

	return n, nil
}
