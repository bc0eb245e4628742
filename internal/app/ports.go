package app

import (
	"context"

	"course-ledger-service/internal/domain"
)

// CourseStructureProvider resolves the shape of a course. Unknown courses yield domain.ErrCourseNotFound.
type CourseStructureProvider interface {
	GetCourseStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error)
}

// StructureInvalidator is implemented by structure providers that cache.
type StructureInvalidator interface {
	Invalidate(ctx context.Context, courseID string) error
}

// ProgressStore reads learner progress. A missing record is reported with found=false, not an error.
type ProgressStore interface {
	GetProgress(ctx context.Context, courseID, learnerID string) (progress *domain.CourseProgress, found bool, err error)
}

// LearnerDirectory returns display snapshots. Unknown learners yield domain.ErrLearnerNotFound.
type LearnerDirectory interface {
	GetLearnerSnapshot(ctx context.Context, learnerID string) (domain.LearnerSnapshot, error)
}

// CertificateStore persists certificates. Certificates are never removed, so it has no Delete.
type CertificateStore interface {
	Create(ctx context.Context, cert *domain.Certificate) error
	Update(ctx context.Context, cert *domain.Certificate) error
	Get(ctx context.Context, certificateID string) (*domain.Certificate, error)
	FindByLearner(ctx context.Context, courseID, learnerID string) (*domain.Certificate, bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]*domain.Certificate, error)
	CourseIDs(ctx context.Context) ([]string, error)
}

// EventSink receives ledger events. Implementations must not block for long and never fail the caller.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}
