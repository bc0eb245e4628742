package redis

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"course-ledger-service/internal/domain"
	"course-ledger-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StructureCache caches course structures in Redis and falls back to a loader on cache miss.
// Sub-items are stored as: HSET course:{courseID}:items {subItemID} {quizID or ""}
// Course metadata as:      HSET course:{courseID}:meta  name {courseName}
// Only what the item count needs is cached, so a cache hit returns the items flattened into one section.
type StructureCache struct {
	client *redis.Client
	loader memory.StructureLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewStructureCache(client *redis.Client, loader memory.StructureLoader, ttl time.Duration) *StructureCache {
	return &StructureCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetCourseStructure serves from Redis when caching is enabled. A TTL of zero or less
// disables caching and every call reads through to the loader.
func (c *StructureCache) GetCourseStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	if c.ttl <= 0 {
		return c.loader.LoadStructure(ctx, courseID)
	}
	if structure, ok := c.fromCache(ctx, courseID); ok {
		return structure, nil
	}

	result, err, _ := c.sf.Do(courseID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if structure, ok := c.fromCache(ctx, courseID); ok {
			return structure, nil
		}

		structure, err := c.loader.LoadStructure(ctx, courseID)
		if err != nil {
			return nil, err
		}

		metaKey, itemsKey := c.metaKey(courseID), c.itemsKey(courseID)
		pipe := c.client.TxPipeline()
		pipe.Del(ctx, metaKey, itemsKey)
		for _, section := range structure.Sections {
			for _, item := range section.SubItems {
				pipe.HSet(ctx, itemsKey, item.ID, item.QuizID)
			}
		}
		pipe.HSet(ctx, metaKey, "name", structure.CourseName)
		ttl := c.ttlWithJitter()
		pipe.Expire(ctx, metaKey, ttl)
		pipe.Expire(ctx, itemsKey, ttl)
		// best-effort: a failed write only costs a reload next time
		_, _ = pipe.Exec(ctx)

		return structure, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.CourseStructure), nil
}

// Invalidate drops the cached structure so the next read reloads it.
func (c *StructureCache) Invalidate(ctx context.Context, courseID string) error {
	c.sf.Forget(courseID)
	return c.client.Del(ctx, c.metaKey(courseID), c.itemsKey(courseID)).Err()
}

func (c *StructureCache) fromCache(ctx context.Context, courseID string) (*domain.CourseStructure, bool) {
	meta, err := c.client.HGetAll(ctx, c.metaKey(courseID)).Result()
	if err != nil || len(meta) == 0 {
		return nil, false
	}
	items, err := c.client.HGetAll(ctx, c.itemsKey(courseID)).Result()
	if err != nil {
		return nil, false
	}
	return buildStructureFromCache(courseID, meta["name"], items), true
}

func (c *StructureCache) metaKey(courseID string) string {
	return "course:" + courseID + ":meta"
}

func (c *StructureCache) itemsKey(courseID string) string {
	return "course:" + courseID + ":items"
}

func buildStructureFromCache(courseID, name string, items map[string]string) *domain.CourseStructure {
	subItems := make([]domain.SubItem, 0, len(items))
	for subItemID, quizID := range items {
		subItems = append(subItems, domain.SubItem{ID: subItemID, QuizID: quizID})
	}
	sort.Slice(subItems, func(i, j int) bool { return subItems[i].ID < subItems[j].ID })

	structure := &domain.CourseStructure{CourseID: courseID, CourseName: name}
	if len(subItems) > 0 {
		structure.Sections = []domain.Section{{ID: "cached", SubItems: subItems}}
	}
	return structure
}

func (c *StructureCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
