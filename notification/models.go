package notification

import "time"

// Notification is a user-facing message for a student. IsRead starts false;
// this package owns the read lifecycle afterwards.
type Notification struct {
	ID        string
	StudentID string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
