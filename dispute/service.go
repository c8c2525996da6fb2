package dispute

import (
	"context"
	"log"

	"github.com/google/uuid"

	"hostelflow/audit"
)

// Store abstracts the repository for testability.
type Store interface {
	Create(ctx context.Context, studentID, invoiceID, reason string) (Record, error)
	ListForStudent(ctx context.Context, studentID string) ([]Record, error)
	Resolve(ctx context.Context, disputeID string) (Record, error)
}

// AuditRecorder captures the resolution audit write.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type Service struct {
	repo        Store
	auditLog    AuditRecorder
	errorLog    *log.Logger
	idGenerator func() string
}

func NewService(repo Store, auditLog AuditRecorder, errorLog *log.Logger) *Service {
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Service{
		repo:        repo,
		auditLog:    auditLog,
		errorLog:    errorLog,
		idGenerator: func() string { return uuid.NewString() },
	}
}

func (s *Service) Create(ctx context.Context, studentID, invoiceID, reason string) (Record, error) {
	return s.repo.Create(ctx, studentID, invoiceID, reason)
}

func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]Record, error) {
	return s.repo.ListForStudent(ctx, studentID)
}

// Resolve closes a dispute on behalf of a manager and records who did it.
// The audit write is best-effort: the dispute row is already resolved, and a
// retry would only hit ErrBadStatus.
func (s *Service) Resolve(ctx context.Context, managerID, disputeID string) (Record, error) {
	rec, err := s.repo.Resolve(ctx, disputeID)
	if err != nil {
		return Record{}, err
	}

	if err := s.auditLog.Record(ctx, audit.Entry{
		ID:         s.idGenerator(),
		EntityType: "dispute",
		EntityID:   rec.ID,
		Action:     audit.ActionDisputeResolved,
		ActorID:    managerID,
		Metadata: map[string]any{
			"invoice_id": rec.InvoiceID,
			"student_id": rec.StudentID,
		},
	}); err != nil {
		s.errorLog.Printf("dispute: %s resolved but audit failed: %v", rec.ID, err)
	}

	return rec, nil
}
