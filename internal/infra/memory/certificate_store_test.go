package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-ledger-service/internal/domain"
)

func TestCertificateStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewCertificateStore()
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cert := &domain.Certificate{CertificateID: "c1", CourseID: "course-1", LearnerID: "u1", IssuedDate: issued}
	if err := store.Create(ctx, cert); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, &domain.Certificate{CertificateID: "c2", CourseID: "course-1", LearnerID: "u1"}); !errors.Is(err, domain.ErrCertificateExists) {
		t.Fatalf("expected duplicate pair to be rejected, got %v", err)
	}

	found, ok, err := store.FindByLearner(ctx, "course-1", "u1")
	if err != nil || !ok || found.CertificateID != "c1" {
		t.Fatalf("expected c1 for pair, got %+v ok=%v err=%v", found, ok, err)
	}

	// Mutating a returned copy must not leak into the store.
	found.IssuedDate = issued.Add(time.Hour)
	again, _ := store.Get(ctx, "c1")
	if !again.IssuedDate.Equal(issued) {
		t.Fatalf("store returned shared state")
	}

	if err := store.Update(ctx, found); err != nil {
		t.Fatalf("update: %v", err)
	}
	if store.Updates() != 1 {
		t.Fatalf("expected 1 update, got %d", store.Updates())
	}
	if err := store.Update(ctx, &domain.Certificate{CertificateID: "nope"}); !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected not found on unknown update, got %v", err)
	}

	_ = store.Create(ctx, &domain.Certificate{CertificateID: "c0", CourseID: "course-1", LearnerID: "u2"})
	_ = store.Create(ctx, &domain.Certificate{CertificateID: "c9", CourseID: "course-2", LearnerID: "u1"})

	list, err := store.ListByCourse(ctx, "course-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].CertificateID != "c0" || list[1].CertificateID != "c1" {
		t.Fatalf("expected [c0 c1], got %+v", list)
	}

	ids, _ := store.CourseIDs(ctx)
	if len(ids) != 2 || ids[0] != "course-1" || ids[1] != "course-2" {
		t.Fatalf("unexpected course ids %v", ids)
	}
}

func TestProgressStoreDedupAndRevoke(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	if _, found, _ := store.GetProgress(ctx, "course-1", "u1"); found {
		t.Fatalf("expected no progress yet")
	}

	store.CompleteVideo("course-1", "u1", "v1")
	store.CompleteVideo("course-1", "u1", "v1")
	store.CompleteQuiz("course-1", "u1", "q1")

	p, found, err := store.GetProgress(ctx, "course-1", "u1")
	if err != nil || !found {
		t.Fatalf("expected progress, err=%v", err)
	}
	if p.CompletedCount() != 2 {
		t.Fatalf("expected 2 completions, got %d", p.CompletedCount())
	}

	store.Revoke("course-1", "u1", "q1")
	p, _, _ = store.GetProgress(ctx, "course-1", "u1")
	if p.CompletedCount() != 1 {
		t.Fatalf("expected 1 completion after revoke, got %d", p.CompletedCount())
	}
}

func TestLearnerDirectory(t *testing.T) {
	dir := NewLearnerDirectory(domain.LearnerSnapshot{LearnerID: "u1", FirstName: "Ada", LastName: "Lovelace"})

	l, err := dir.GetLearnerSnapshot(context.Background(), "u1")
	if err != nil || l.DisplayName() != "Ada Lovelace" {
		t.Fatalf("unexpected snapshot %+v err=%v", l, err)
	}
	dir.Remove("u1")
	if _, err := dir.GetLearnerSnapshot(context.Background(), "u1"); !errors.Is(err, domain.ErrLearnerNotFound) {
		t.Fatalf("expected learner not found, got %v", err)
	}
}
