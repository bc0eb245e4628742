package scheduler

import (
	"context"
	"log/slog"
	"time"

	"course-ledger-service/internal/domain"
)

// CourseSweeper is the slice of the ledger the scheduler drives.
type CourseSweeper interface {
	CourseIDs(ctx context.Context) ([]string, error)
	SweepCourse(ctx context.Context, courseID string, trigger domain.SweepTrigger) (*domain.SweepReport, error)
}

// Sweeper periodically re-evaluates every course that holds certificates.
type Sweeper struct {
	ledger   CourseSweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(ledger CourseSweeper, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{ledger: ledger, interval: interval, logger: logger}
}

// Start runs the sweep loop in a goroutine until ctx is done. The returned channel closes when it exits.
func (s *Sweeper) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx)
	}()
	return done
}

func (s *Sweeper) run(ctx context.Context) {
	s.logger.Info("sweep worker started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// first pass right away
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps every known course once. A failing course is logged and skipped.
func (s *Sweeper) RunOnce(ctx context.Context) {
	courseIDs, err := s.ledger.CourseIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list courses for sweep", "error", err)
		return
	}
	if len(courseIDs) == 0 {
		s.logger.Debug("no certificates to sweep")
		return
	}

	for _, courseID := range courseIDs {
		if ctx.Err() != nil {
			return
		}
		report, err := s.ledger.SweepCourse(ctx, courseID, domain.TriggerAutomatic)
		if err != nil {
			s.logger.Error("course sweep failed", "error", err, "course_id", courseID)
			continue
		}
		s.logger.Info("course swept",
			"course_id", courseID,
			"total", report.TotalCertificates,
			"regenerated", report.RegeneratedCount,
			"invalidated", report.InvalidatedCount,
			"errored", report.ErroredCount,
		)
	}
}
