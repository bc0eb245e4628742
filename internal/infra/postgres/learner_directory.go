package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-ledger-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type LearnerDirectory struct {
	pool *pgxpool.Pool
}

func NewLearnerDirectory(pool *pgxpool.Pool) *LearnerDirectory {
	return &LearnerDirectory{pool: pool}
}

func (d *LearnerDirectory) GetLearnerSnapshot(ctx context.Context, learnerID string) (domain.LearnerSnapshot, error) {
	snapshot := domain.LearnerSnapshot{LearnerID: learnerID}
	err := d.pool.QueryRow(ctx, `SELECT first_name, last_name, email FROM learners WHERE id=$1`, learnerID).
		Scan(&snapshot.FirstName, &snapshot.LastName, &snapshot.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LearnerSnapshot{}, domain.ErrLearnerNotFound
	}
	if err != nil {
		return domain.LearnerSnapshot{}, fmt.Errorf("load learner: %w", err)
	}
	return snapshot, nil
}
