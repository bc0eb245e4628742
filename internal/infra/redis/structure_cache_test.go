package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-ledger-service/internal/domain"
	"course-ledger-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestStructureCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		StructureLoader: memory.NewStaticStructureLoader(map[string]domain.CourseStructure{
			"course-1": sampleCourse(),
		}),
	}
	cache := NewStructureCache(client, loader, time.Minute)

	first, err := cache.GetCourseStructure(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get structure: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("course:course-1:items") || !mr.Exists("course:course-1:meta") {
		t.Fatalf("expected structure keys in redis")
	}
	if ttl := mr.TTL("course:course-1:items"); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	second, err := cache.GetCourseStructure(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get cached structure: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if second.TotalItems() != first.TotalItems() || second.CourseName != "Go Basics" {
		t.Fatalf("cached structure differs: %+v vs %+v", second, first)
	}
}

func TestStructureCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	static := memory.NewStaticStructureLoader(map[string]domain.CourseStructure{"course-1": sampleCourse()})
	loader := &countingLoader{StructureLoader: static}
	cache := NewStructureCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.GetCourseStructure(ctx, "course-1"); err != nil {
		t.Fatalf("get structure: %v", err)
	}
	edited := sampleCourse()
	edited.Sections[0].SubItems = edited.Sections[0].SubItems[:1]
	static.Put(edited)

	if err := cache.Invalidate(ctx, "course-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("course:course-1:meta") {
		t.Fatalf("expected keys removed")
	}
	structure, err := cache.GetCourseStructure(ctx, "course-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loader.calls != 2 || structure.TotalItems() != 4 {
		t.Fatalf("expected reload with 4 items, calls=%d items=%d", loader.calls, structure.TotalItems())
	}
}

func TestStructureCacheMissingCourse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewStructureCache(newClient(mr), memory.NewStaticStructureLoader(nil), time.Minute)
	if _, err := cache.GetCourseStructure(context.Background(), "nope"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected course not found, got %v", err)
	}
	if mr.Exists("course:nope:meta") {
		t.Fatalf("misses must not be cached")
	}
}

func TestStructureCacheZeroTTLReadsThrough(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	static := memory.NewStaticStructureLoader(map[string]domain.CourseStructure{"course-1": sampleCourse()})
	loader := &countingLoader{StructureLoader: static}
	cache := NewStructureCache(newClient(mr), loader, 0)
	ctx := context.Background()

	if _, err := cache.GetCourseStructure(ctx, "course-1"); err != nil {
		t.Fatalf("get structure: %v", err)
	}
	if mr.Exists("course:course-1:meta") || mr.Exists("course:course-1:items") {
		t.Fatalf("zero ttl must not write keys")
	}

	edited := sampleCourse()
	edited.Sections = append(edited.Sections, domain.Section{ID: "s3", SubItems: []domain.SubItem{{ID: "v4"}}})
	static.Put(edited)

	structure, err := cache.GetCourseStructure(ctx, "course-1")
	if err != nil {
		t.Fatalf("get structure after edit: %v", err)
	}
	if loader.calls != 2 || structure.TotalItems() != 6 {
		t.Fatalf("expected fresh read with 6 items, calls=%d items=%d", loader.calls, structure.TotalItems())
	}
}

type countingLoader struct {
	memory.StructureLoader
	calls int
}

func (l *countingLoader) LoadStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	l.calls++
	return l.StructureLoader.LoadStructure(ctx, courseID)
}

func sampleCourse() domain.CourseStructure {
	return domain.CourseStructure{
		CourseID:   "course-1",
		CourseName: "Go Basics",
		Sections: []domain.Section{
			{ID: "s1", SubItems: []domain.SubItem{{ID: "v1", QuizID: "q1"}, {ID: "v2"}}},
			{ID: "s2", SubItems: []domain.SubItem{{ID: "v3", QuizID: "q3"}}},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
