package retry

import (
	"context"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
)

// Structures retries course structure lookups.
type Structures struct {
	next   app.CourseStructureProvider
	policy Policy
}

func NewStructures(next app.CourseStructureProvider, policy Policy) *Structures {
	return &Structures{next: next, policy: policy}
}

func (s *Structures) GetCourseStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	return Do(ctx, s.policy, func() (*domain.CourseStructure, error) {
		return s.next.GetCourseStructure(ctx, courseID)
	})
}

// Invalidate forwards to the wrapped provider when it caches.
func (s *Structures) Invalidate(ctx context.Context, courseID string) error {
	inv, ok := s.next.(app.StructureInvalidator)
	if !ok {
		return nil
	}
	_, err := Do(ctx, s.policy, func() (struct{}, error) {
		return struct{}{}, inv.Invalidate(ctx, courseID)
	})
	return err
}

// Progress retries progress reads.
type Progress struct {
	next   app.ProgressStore
	policy Policy
}

func NewProgress(next app.ProgressStore, policy Policy) *Progress {
	return &Progress{next: next, policy: policy}
}

type progressRead struct {
	progress *domain.CourseProgress
	found    bool
}

func (p *Progress) GetProgress(ctx context.Context, courseID, learnerID string) (*domain.CourseProgress, bool, error) {
	read, err := Do(ctx, p.policy, func() (progressRead, error) {
		progress, found, err := p.next.GetProgress(ctx, courseID, learnerID)
		return progressRead{progress: progress, found: found}, err
	})
	return read.progress, read.found, err
}

// Learners retries learner snapshot lookups.
type Learners struct {
	next   app.LearnerDirectory
	policy Policy
}

func NewLearners(next app.LearnerDirectory, policy Policy) *Learners {
	return &Learners{next: next, policy: policy}
}

func (l *Learners) GetLearnerSnapshot(ctx context.Context, learnerID string) (domain.LearnerSnapshot, error) {
	return Do(ctx, l.policy, func() (domain.LearnerSnapshot, error) {
		return l.next.GetLearnerSnapshot(ctx, learnerID)
	})
}

// Certificates retries certificate store calls. Writes are safe to repeat: Create is keyed
// by (course, learner) and Update overwrites the same timestamps.
type Certificates struct {
	next   app.CertificateStore
	policy Policy
}

func NewCertificates(next app.CertificateStore, policy Policy) *Certificates {
	return &Certificates{next: next, policy: policy}
}

func (c *Certificates) Create(ctx context.Context, cert *domain.Certificate) error {
	_, err := Do(ctx, c.policy, func() (struct{}, error) {
		return struct{}{}, c.next.Create(ctx, cert)
	})
	return err
}

func (c *Certificates) Update(ctx context.Context, cert *domain.Certificate) error {
	_, err := Do(ctx, c.policy, func() (struct{}, error) {
		return struct{}{}, c.next.Update(ctx, cert)
	})
	return err
}

func (c *Certificates) Get(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	return Do(ctx, c.policy, func() (*domain.Certificate, error) {
		return c.next.Get(ctx, certificateID)
	})
}

type certificateRead struct {
	cert  *domain.Certificate
	found bool
}

func (c *Certificates) FindByLearner(ctx context.Context, courseID, learnerID string) (*domain.Certificate, bool, error) {
	read, err := Do(ctx, c.policy, func() (certificateRead, error) {
		cert, found, err := c.next.FindByLearner(ctx, courseID, learnerID)
		return certificateRead{cert: cert, found: found}, err
	})
	return read.cert, read.found, err
}

func (c *Certificates) ListByCourse(ctx context.Context, courseID string) ([]*domain.Certificate, error) {
	return Do(ctx, c.policy, func() ([]*domain.Certificate, error) {
		return c.next.ListByCourse(ctx, courseID)
	})
}

func (c *Certificates) CourseIDs(ctx context.Context) ([]string, error) {
	return Do(ctx, c.policy, func() ([]string, error) {
		return c.next.CourseIDs(ctx)
	})
}

var (
	_ app.CourseStructureProvider = (*Structures)(nil)
	_ app.StructureInvalidator    = (*Structures)(nil)
	_ app.ProgressStore           = (*Progress)(nil)
	_ app.LearnerDirectory        = (*Learners)(nil)
	_ app.CertificateStore        = (*Certificates)(nil)
)
