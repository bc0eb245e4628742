package memory

import (
	"context"
	"sync"

	"course-ledger-service/internal/domain"
)

// LearnerDirectory is an in-memory implementation of app.LearnerDirectory.
type LearnerDirectory struct {
	mu       sync.RWMutex
	learners map[string]domain.LearnerSnapshot
}

func NewLearnerDirectory(learners ...domain.LearnerSnapshot) *LearnerDirectory {
	d := &LearnerDirectory{learners: make(map[string]domain.LearnerSnapshot, len(learners))}
	for _, l := range learners {
		d.learners[l.LearnerID] = l
	}
	return d
}

func (d *LearnerDirectory) GetLearnerSnapshot(_ context.Context, learnerID string) (domain.LearnerSnapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.learners[learnerID]
	if !ok {
		return domain.LearnerSnapshot{}, domain.ErrLearnerNotFound
	}
	return l, nil
}

func (d *LearnerDirectory) Put(l domain.LearnerSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.learners[l.LearnerID] = l
}

func (d *LearnerDirectory) Remove(learnerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.learners, learnerID)
}
