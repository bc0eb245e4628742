package memory

import (
	"context"
	"sync"

	"course-ledger-service/internal/domain"
)

// ProgressStore keeps learner progress in memory. It doubles as the progress-reporting
// side for demos and tests.
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[pairKey]domain.CourseProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{progress: make(map[pairKey]domain.CourseProgress)}
}

func (s *ProgressStore) GetProgress(_ context.Context, courseID, learnerID string) (*domain.CourseProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[pairKey{courseID, learnerID}]
	if !ok {
		return nil, false, nil
	}
	p.CompletedVideoIDs = append([]string(nil), p.CompletedVideoIDs...)
	p.CompletedQuizIDs = append([]string(nil), p.CompletedQuizIDs...)
	return &p, true, nil
}

// Put replaces the progress record for the pair.
func (s *ProgressStore) Put(p domain.CourseProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[pairKey{p.CourseID, p.LearnerID}] = p
}

// CompleteVideo marks a sub-item video as watched.
func (s *ProgressStore) CompleteVideo(courseID, learnerID, subItemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{courseID, learnerID}
	p := s.progress[key]
	p.CourseID, p.LearnerID = courseID, learnerID
	p.CompletedVideoIDs = appendUnique(p.CompletedVideoIDs, subItemID)
	s.progress[key] = p
}

// CompleteQuiz marks a quiz as passed.
func (s *ProgressStore) CompleteQuiz(courseID, learnerID, quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{courseID, learnerID}
	p := s.progress[key]
	p.CourseID, p.LearnerID = courseID, learnerID
	p.CompletedQuizIDs = appendUnique(p.CompletedQuizIDs, quizID)
	s.progress[key] = p
}

// Revoke removes a completed video or quiz, e.g. after an admin reset.
func (s *ProgressStore) Revoke(courseID, learnerID, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{courseID, learnerID}
	p, ok := s.progress[key]
	if !ok {
		return
	}
	p.CompletedVideoIDs = without(p.CompletedVideoIDs, itemID)
	p.CompletedQuizIDs = without(p.CompletedQuizIDs, itemID)
	s.progress[key] = p
}

// Delete drops the whole progress record.
func (s *ProgressStore) Delete(courseID, learnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, pairKey{courseID, learnerID})
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
