package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"course-ledger-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// StructureLoader fetches course structure from a backing store (e.g., Postgres).
type StructureLoader interface {
	LoadStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error)
}

// StructureCache caches course structures with TTL to avoid repeated DB hits.
// Invalidate drops an entry after content edits so the next evaluation recounts items.
type StructureCache struct {
	loader StructureLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedStructure
	// gen is bumped by Invalidate; loads started under an older generation are not stored.
	gen map[string]uint64
}

type cachedStructure struct {
	structure *domain.CourseStructure
	expiresAt time.Time
}

func NewStructureCache(loader StructureLoader, ttl time.Duration) *StructureCache {
	return &StructureCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedStructure),
		gen:    make(map[string]uint64),
	}
}

func (c *StructureCache) GetCourseStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	if c.ttl <= 0 {
		return c.loader.LoadStructure(ctx, courseID)
	}
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[courseID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.structure, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(courseID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[courseID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.structure, nil
		}
		gen := c.gen[courseID]
		c.mu.RUnlock()

		structure, err := c.loader.LoadStructure(ctx, courseID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen[courseID] == gen {
			c.cache[courseID] = cachedStructure{
				structure: structure,
				expiresAt: now.Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return structure, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.CourseStructure), nil
}

// Invalidate removes the cached structure for courseID.
func (c *StructureCache) Invalidate(_ context.Context, courseID string) error {
	c.mu.Lock()
	delete(c.cache, courseID)
	c.gen[courseID]++
	c.mu.Unlock()
	c.sf.Forget(courseID)
	return nil
}

func (c *StructureCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticStructureLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticStructureLoader struct {
	mu      sync.RWMutex
	courses map[string]domain.CourseStructure
}

func NewStaticStructureLoader(courses map[string]domain.CourseStructure) *StaticStructureLoader {
	if courses == nil {
		courses = make(map[string]domain.CourseStructure)
	}
	return &StaticStructureLoader{courses: courses}
}

func (l *StaticStructureLoader) LoadStructure(_ context.Context, courseID string) (*domain.CourseStructure, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if course, ok := l.courses[courseID]; ok {
		return &course, nil
	}
	return nil, domain.ErrCourseNotFound
}

// GetCourseStructure lets the loader serve as an uncached provider.
func (l *StaticStructureLoader) GetCourseStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	return l.LoadStructure(ctx, courseID)
}

// Put replaces a course definition, simulating an authoring edit.
func (l *StaticStructureLoader) Put(course domain.CourseStructure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.courses[course.CourseID] = course
}
