package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-ledger-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore reads course_progress rows. The ledger never writes progress.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) GetProgress(ctx context.Context, courseID, learnerID string) (*domain.CourseProgress, bool, error) {
	progress := &domain.CourseProgress{CourseID: courseID, LearnerID: learnerID}
	err := s.pool.QueryRow(ctx,
		`SELECT completed_videos, completed_quizzes FROM course_progress WHERE course_id=$1 AND learner_id=$2`,
		courseID, learnerID,
	).Scan(&progress.CompletedVideoIDs, &progress.CompletedQuizIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load progress: %w", err)
	}
	return progress, true, nil
}
