package notification

import "context"

// Service is a thin guard over the repository for the portal handlers.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]Notification, error) {
	return s.repo.ListForStudent(ctx, studentID)
}

func (s *Service) MarkRead(ctx context.Context, studentID, id string) (Notification, error) {
	return s.repo.MarkRead(ctx, studentID, id)
}
