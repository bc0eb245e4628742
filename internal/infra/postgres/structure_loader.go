package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-ledger-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StructureLoader reads course structures from the authoring tables.
type StructureLoader struct {
	pool *pgxpool.Pool
}

func NewStructureLoader(pool *pgxpool.Pool) *StructureLoader {
	return &StructureLoader{pool: pool}
}

func (l *StructureLoader) LoadStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	structure := &domain.CourseStructure{CourseID: courseID}
	err := l.pool.QueryRow(ctx, `SELECT name FROM courses WHERE id=$1`, courseID).Scan(&structure.CourseName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT s.id, s.name, COALESCE(i.id, ''), COALESCE(i.title, ''), COALESCE(i.quiz_id, '')
		FROM course_sections s
		LEFT JOIN course_sub_items i ON i.section_id = s.id
		WHERE s.course_id = $1
		ORDER BY s.position, s.id, i.position, i.id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sectionID, sectionName string
		var item domain.SubItem
		if err := rows.Scan(&sectionID, &sectionName, &item.ID, &item.Title, &item.QuizID); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		n := len(structure.Sections)
		if n == 0 || structure.Sections[n-1].ID != sectionID {
			structure.Sections = append(structure.Sections, domain.Section{ID: sectionID, Name: sectionName, SubItems: []domain.SubItem{}})
			n++
		}
		if item.ID != "" {
			structure.Sections[n-1].SubItems = append(structure.Sections[n-1].SubItems, item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	return structure, nil
}

// GetCourseStructure lets the loader serve reads directly when caching is disabled.
func (l *StructureLoader) GetCourseStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	return l.LoadStructure(ctx, courseID)
}
