package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"course-ledger-service/internal/domain"
	"course-ledger-service/internal/infra/memory"
)

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), NoDelay(3), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected success on third attempt, got %d %v", got, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), NoDelay(2), func() (struct{}, error) {
		calls++
		return struct{}{}, errors.New("timeout")
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected failure after 2 attempts, calls=%d err=%v", calls, err)
	}
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	for _, perm := range []error{
		domain.ErrCourseNotFound,
		fmt.Errorf("wrapped: %w", domain.ErrLearnerNotFound),
		domain.ErrCertificateExists,
		context.Canceled,
	} {
		calls := 0
		_, err := Do(context.Background(), NoDelay(5), func() (int, error) {
			calls++
			return 0, perm
		})
		if !errors.Is(err, perm) {
			t.Fatalf("expected %v to be returned unwrapped, got %v", perm, err)
		}
		if calls != 1 {
			t.Fatalf("expected a single attempt for %v, got %d", perm, calls)
		}
	}
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, Exponential(5, 0, 0), func() (int, error) {
		calls++
		return 0, errors.New("flaky")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one attempt then stop, calls=%d err=%v", calls, err)
	}
}

func TestProgressDecoratorPreservesFound(t *testing.T) {
	store := memory.NewProgressStore()
	store.CompleteVideo("course-1", "u1", "v1")
	wrapped := NewProgress(&flakyProgress{next: store, failures: 2}, NoDelay(3))

	p, found, err := wrapped.GetProgress(context.Background(), "course-1", "u1")
	if err != nil || !found || p.CompletedCount() != 1 {
		t.Fatalf("expected progress after retries, got %+v found=%v err=%v", p, found, err)
	}

	_, found, err = wrapped.GetProgress(context.Background(), "course-1", "nobody")
	if err != nil || found {
		t.Fatalf("expected absent progress, found=%v err=%v", found, err)
	}
}

func TestStructuresForwardInvalidate(t *testing.T) {
	loader := memory.NewStaticStructureLoader(map[string]domain.CourseStructure{
		"course-1": {CourseID: "course-1", Sections: []domain.Section{{ID: "s1", SubItems: []domain.SubItem{{ID: "v1"}}}}},
	})
	cache := memory.NewStructureCache(loader, 0)
	wrapped := NewStructures(cache, NoDelay(2))

	if err := wrapped.Invalidate(context.Background(), "course-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := NewStructures(loader, NoDelay(2)).Invalidate(context.Background(), "course-1"); err != nil {
		t.Fatalf("invalidate on uncached provider should be a no-op, got %v", err)
	}
	s, err := wrapped.GetCourseStructure(context.Background(), "course-1")
	if err != nil || s.TotalItems() != 1 {
		t.Fatalf("unexpected structure %+v err=%v", s, err)
	}
}

type flakyProgress struct {
	next     *memory.ProgressStore
	failures int
}

func (f *flakyProgress) GetProgress(ctx context.Context, courseID, learnerID string) (*domain.CourseProgress, bool, error) {
	if f.failures > 0 {
		f.failures--
		return nil, false, errors.New("connection refused")
	}
	return f.next.GetProgress(ctx, courseID, learnerID)
}
