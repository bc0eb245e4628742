package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"course-ledger-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Ledger owns certificate records and decides issuance, regeneration and invalidation
// from aggregated learner progress.
type Ledger struct {
	structures   CourseStructureProvider
	progress     ProgressStore
	learners     LearnerDirectory
	certificates CertificateStore
	events       EventSink

	now         func() time.Time
	newID       func() string
	concurrency int
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mostly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithEvents sets the sink receiving ledger events.
func WithEvents(sink EventSink) Option {
	return func(l *Ledger) {
		if sink != nil {
			l.events = sink
		}
	}
}

// WithConcurrency bounds how many certificates a sweep evaluates at once.
func WithConcurrency(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithIDGenerator replaces the certificate ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

func NewLedger(structures CourseStructureProvider, progress ProgressStore, learners LearnerDirectory, certificates CertificateStore, opts ...Option) *Ledger {
	l := &Ledger{
		structures:   structures,
		progress:     progress,
		learners:     learners,
		certificates: certificates,
		events:       discardSink{},
		now:          time.Now,
		newID:        uuid.NewString,
		concurrency:  1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// EvaluateAndIssue aggregates progress for one learner and applies the certificate decision:
// issue on first completion, refresh timestamps while complete, report invalid (keeping the record)
// after a regression, or do nothing.
func (l *Ledger) EvaluateAndIssue(ctx context.Context, courseID, learnerID string) (domain.CertificateDecision, error) {
	if err := domain.ValidateID("courseId", courseID); err != nil {
		return domain.CertificateDecision{}, err
	}
	if err := domain.ValidateID("learnerId", learnerID); err != nil {
		return domain.CertificateDecision{}, err
	}

	structure, err := l.structures.GetCourseStructure(ctx, courseID)
	if err != nil {
		return domain.CertificateDecision{}, fmt.Errorf("load course %s: %w", courseID, err)
	}
	progress, _, err := l.progress.GetProgress(ctx, courseID, learnerID)
	if err != nil {
		return domain.CertificateDecision{}, fmt.Errorf("load progress: %w", err)
	}
	result := Aggregate(structure, progress)

	existing, found, err := l.certificates.FindByLearner(ctx, courseID, learnerID)
	if err != nil {
		return domain.CertificateDecision{}, fmt.Errorf("find certificate: %w", err)
	}

	decision := domain.CertificateDecision{
		CourseID:  courseID,
		LearnerID: learnerID,
		Action:    domain.ActionNone,
		Progress:  result,
	}

	switch {
	case found && result.Complete():
		refreshed, err := l.refresh(ctx, existing)
		if err != nil {
			return domain.CertificateDecision{}, err
		}
		decision.Action = domain.ActionRegenerated
		decision.Certificate = refreshed
	case found:
		decision.Action = domain.ActionInvalidated
		decision.Certificate = existing
	case result.Complete():
		cert, action, err := l.issue(ctx, courseID, learnerID)
		if err != nil {
			return domain.CertificateDecision{}, err
		}
		decision.Action = action
		decision.Certificate = cert
	}
	decision.Status = domain.StatusFor(decision.Certificate, result.Percent)

	switch decision.Action {
	case domain.ActionIssued:
		l.emit(ctx, domain.EventCertificateIssued, decision.Certificate, result.Percent, "", "certificate issued")
	case domain.ActionRegenerated:
		l.emit(ctx, domain.EventCertificateRegenerated, decision.Certificate, result.Percent, "", "course still completed")
	case domain.ActionInvalidated:
		l.emit(ctx, domain.EventCertificateInvalidated, decision.Certificate, result.Percent, "", invalidMessage(result.Percent))
	}
	return decision, nil
}

func (l *Ledger) issue(ctx context.Context, courseID, learnerID string) (*domain.Certificate, domain.Action, error) {
	learner, err := l.learners.GetLearnerSnapshot(ctx, learnerID)
	if err != nil {
		return nil, "", fmt.Errorf("load learner %s: %w", learnerID, err)
	}
	now := l.now()
	cert := &domain.Certificate{
		CertificateID:      l.newID(),
		CourseID:           courseID,
		LearnerID:          learnerID,
		LearnerName:        learner.DisplayName(),
		LearnerEmail:       learner.Email,
		IssuedDate:         now,
		CompletionDate:     now,
		OriginalIssuedDate: now,
		UpdatedAt:          now,
	}
	err = l.certificates.Create(ctx, cert)
	if errors.Is(err, domain.ErrCertificateExists) {
		existing, found, ferr := l.certificates.FindByLearner(ctx, courseID, learnerID)
		if ferr != nil || !found {
			return nil, "", fmt.Errorf("create certificate: %w", err)
		}
		// Our own insert landed on an earlier attempt whose reply was lost.
		if existing.CertificateID == cert.CertificateID {
			return existing, domain.ActionIssued, nil
		}
		// Lost a race with a concurrent issuance for the same pair.
		refreshed, err := l.refresh(ctx, existing)
		return refreshed, domain.ActionRegenerated, err
	}
	if err != nil {
		return nil, "", fmt.Errorf("create certificate: %w", err)
	}
	return cert, domain.ActionIssued, nil
}

func (l *Ledger) refresh(ctx context.Context, cert *domain.Certificate) (*domain.Certificate, error) {
	now := l.now()
	updated := *cert
	updated.IssuedDate = now
	updated.CompletionDate = now
	updated.UpdatedAt = now
	if updated.OriginalIssuedDate.IsZero() {
		updated.OriginalIssuedDate = cert.IssuedDate
	}
	if err := l.certificates.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update certificate %s: %w", cert.CertificateID, err)
	}
	return &updated, nil
}

// SweepCourse re-evaluates every certificate of a course. Failures on individual certificates are
// captured as error results and never abort the sweep. If ctx is cancelled the results gathered so
// far are returned together with the context error.
func (l *Ledger) SweepCourse(ctx context.Context, courseID string, trigger domain.SweepTrigger) (*domain.SweepReport, error) {
	if err := domain.ValidateID("courseId", courseID); err != nil {
		return nil, err
	}
	trigger, err := domain.ParseTrigger(string(trigger))
	if err != nil {
		return nil, err
	}

	startedAt := l.now()
	structure, err := l.structures.GetCourseStructure(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("sweep course %s: %w", courseID, err)
	}
	certs, err := l.certificates.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list certificates for %s: %w", courseID, err)
	}

	// Each slot is written by exactly one goroutine; nil means the record was never reached.
	outcomes := make([]*domain.SweepResult, len(certs))
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, cert := range certs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := l.sweepRecord(ctx, structure, cert, trigger)
			outcomes[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.SweepReport{
		CourseID:          courseID,
		CourseName:        structure.CourseName,
		TriggerType:       trigger,
		TotalCertificates: len(certs),
		TotalCourseItems:  structure.TotalItems(),
		StartedAt:         startedAt,
		Results:           make([]domain.SweepResult, 0, len(certs)),
	}
	for _, res := range outcomes {
		if res == nil {
			continue
		}
		switch res.Action {
		case domain.ActionRegenerated:
			report.RegeneratedCount++
		case domain.ActionInvalidated:
			report.InvalidatedCount++
		case domain.ActionError:
			report.ErroredCount++
		}
		report.Results = append(report.Results, *res)
	}
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].CertificateID < report.Results[j].CertificateID
	})
	report.FinishedAt = l.now()

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		report.Message = fmt.Sprintf("Certificate regeneration cancelled after %d of %d certificates.", len(report.Results), len(certs))
		return report, err
	}

	report.Success = true
	report.Message = fmt.Sprintf("Certificate regeneration completed. %d regenerated, %d invalidated, %d errored out of %d total certificates.",
		report.RegeneratedCount, report.InvalidatedCount, report.ErroredCount, report.TotalCertificates)
	l.events.Emit(ctx, domain.Event{
		Type:       domain.EventSweepCompleted,
		CourseID:   courseID,
		Trigger:    trigger,
		Message:    report.Message,
		OccurredAt: report.FinishedAt,
	})
	return report, nil
}

func (l *Ledger) sweepRecord(ctx context.Context, structure *domain.CourseStructure, cert *domain.Certificate, trigger domain.SweepTrigger) domain.SweepResult {
	res := domain.SweepResult{
		CertificateID: cert.CertificateID,
		LearnerID:     cert.LearnerID,
		StudentName:   domain.UnknownLearner,
	}

	learner, err := l.learners.GetLearnerSnapshot(ctx, cert.LearnerID)
	if err != nil {
		return l.recordError(ctx, res, cert, trigger, err)
	}
	res.StudentName = learner.DisplayName()
	res.Email = learner.Email

	progress, err := l.requireProgress(ctx, cert)
	if err != nil {
		return l.recordError(ctx, res, cert, trigger, err)
	}
	result := Aggregate(structure, progress)
	res.CurrentProgress = result.Percent

	if result.Complete() {
		refreshed, err := l.refresh(ctx, cert)
		if err != nil {
			return l.recordError(ctx, res, cert, trigger, err)
		}
		res.Action = domain.ActionRegenerated
		res.Message = "Certificate regenerated - course still completed"
		l.emit(ctx, domain.EventCertificateRegenerated, refreshed, result.Percent, trigger, res.Message)
		return res
	}

	res.Action = domain.ActionInvalidated
	res.Message = invalidMessage(result.Percent)
	l.emit(ctx, domain.EventCertificateInvalidated, cert, result.Percent, trigger, res.Message)
	return res
}

func (l *Ledger) recordError(ctx context.Context, res domain.SweepResult, cert *domain.Certificate, trigger domain.SweepTrigger, err error) domain.SweepResult {
	rerr := &domain.RecordError{CertificateID: cert.CertificateID, LearnerID: cert.LearnerID, Err: err}
	res.Action = domain.ActionError
	res.Message = "Error processing certificate: " + rerr.Err.Error()
	l.emit(ctx, domain.EventRecordError, cert, res.CurrentProgress, trigger, rerr.Error())
	return res
}

// requireProgress treats a missing progress record for an existing certificate as an error.
func (l *Ledger) requireProgress(ctx context.Context, cert *domain.Certificate) (*domain.CourseProgress, error) {
	progress, found, err := l.progress.GetProgress(ctx, cert.CourseID, cert.LearnerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("learner %s: %w", cert.LearnerID, domain.ErrProgressNotFound)
	}
	return progress, nil
}

// CheckNeeds classifies every certificate of a course as valid or needing regeneration
// without writing anything.
func (l *Ledger) CheckNeeds(ctx context.Context, courseID string) (*domain.StatusReport, error) {
	if err := domain.ValidateID("courseId", courseID); err != nil {
		return nil, err
	}
	structure, err := l.structures.GetCourseStructure(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("check course %s: %w", courseID, err)
	}
	certs, err := l.certificates.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list certificates for %s: %w", courseID, err)
	}

	report := &domain.StatusReport{
		CourseID:          courseID,
		CourseName:        structure.CourseName,
		TotalCertificates: len(certs),
		TotalCourseItems:  structure.TotalItems(),
		Details: domain.StatusDetails{
			Valid:             []domain.StatusEntry{},
			NeedsRegeneration: []domain.StatusEntry{},
			Errors:            []domain.StatusEntry{},
		},
	}

	for _, cert := range certs {
		entry := domain.StatusEntry{
			CertificateID: cert.CertificateID,
			LearnerID:     cert.LearnerID,
			StudentName:   domain.UnknownLearner,
			IssuedDate:    cert.IssuedDate,
			LastUpdated:   cert.UpdatedAt,
		}
		learner, err := l.learners.GetLearnerSnapshot(ctx, cert.LearnerID)
		if err != nil {
			entry.Reason = err.Error()
			report.Details.Errors = append(report.Details.Errors, entry)
			continue
		}
		entry.StudentName = learner.DisplayName()
		entry.Email = learner.Email

		progress, err := l.requireProgress(ctx, cert)
		if err != nil {
			entry.Reason = err.Error()
			report.Details.Errors = append(report.Details.Errors, entry)
			continue
		}
		result := Aggregate(structure, progress)
		entry.CurrentProgress = result.Percent
		if result.Complete() {
			report.Details.Valid = append(report.Details.Valid, entry)
			continue
		}
		entry.Reason = "Progress dropped to " + formatPercent(result.Percent) + "%"
		report.Details.NeedsRegeneration = append(report.Details.NeedsRegeneration, entry)
	}

	report.ValidCertificates = len(report.Details.Valid)
	report.NeedsRegeneration = len(report.Details.NeedsRegeneration)
	report.Errored = len(report.Details.Errors)
	return report, nil
}

// StructureChanged drops any cached structure for the course and runs an automatic sweep,
// so certificates follow edits that change the item count.
func (l *Ledger) StructureChanged(ctx context.Context, courseID string) (*domain.SweepReport, error) {
	if err := domain.ValidateID("courseId", courseID); err != nil {
		return nil, err
	}
	if inv, ok := l.structures.(StructureInvalidator); ok {
		if err := inv.Invalidate(ctx, courseID); err != nil {
			return nil, fmt.Errorf("invalidate structure %s: %w", courseID, err)
		}
	}
	return l.SweepCourse(ctx, courseID, domain.TriggerAutomatic)
}

// Certificate returns one certificate with its status derived from current progress.
func (l *Ledger) Certificate(ctx context.Context, certificateID string) (domain.CertificateView, error) {
	if err := domain.ValidateID("certificateId", certificateID); err != nil {
		return domain.CertificateView{}, err
	}
	cert, err := l.certificates.Get(ctx, certificateID)
	if err != nil {
		return domain.CertificateView{}, err
	}
	structure, err := l.structures.GetCourseStructure(ctx, cert.CourseID)
	if err != nil {
		return domain.CertificateView{}, fmt.Errorf("load course %s: %w", cert.CourseID, err)
	}
	return l.view(ctx, structure, cert)
}

// Certificates lists a course's certificates with derived statuses.
func (l *Ledger) Certificates(ctx context.Context, courseID string) ([]domain.CertificateView, error) {
	if err := domain.ValidateID("courseId", courseID); err != nil {
		return nil, err
	}
	structure, err := l.structures.GetCourseStructure(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course %s: %w", courseID, err)
	}
	certs, err := l.certificates.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list certificates for %s: %w", courseID, err)
	}
	views := make([]domain.CertificateView, 0, len(certs))
	for _, cert := range certs {
		view, err := l.view(ctx, structure, cert)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// CourseIDs lists every course that holds at least one certificate.
func (l *Ledger) CourseIDs(ctx context.Context) ([]string, error) {
	return l.certificates.CourseIDs(ctx)
}

func (l *Ledger) view(ctx context.Context, structure *domain.CourseStructure, cert *domain.Certificate) (domain.CertificateView, error) {
	progress, _, err := l.progress.GetProgress(ctx, cert.CourseID, cert.LearnerID)
	if err != nil {
		return domain.CertificateView{}, fmt.Errorf("load progress: %w", err)
	}
	result := Aggregate(structure, progress)
	return domain.CertificateView{
		Certificate: *cert,
		Status:      domain.StatusFor(cert, result.Percent),
		Percent:     result.Percent,
	}, nil
}

func (l *Ledger) emit(ctx context.Context, typ domain.EventType, cert *domain.Certificate, percent float64, trigger domain.SweepTrigger, msg string) {
	l.events.Emit(ctx, domain.Event{
		Type:          typ,
		CourseID:      cert.CourseID,
		LearnerID:     cert.LearnerID,
		CertificateID: cert.CertificateID,
		Percent:       percent,
		Trigger:       trigger,
		Message:       msg,
		OccurredAt:    l.now(),
	})
}

func invalidMessage(percent float64) string {
	return "Certificate no longer valid - current progress: " + formatPercent(percent) + "%"
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
