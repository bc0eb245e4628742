package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"course-ledger-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenBun opens a bun handle over pgdriver for the given DSN.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type certificateRow struct {
	bun.BaseModel `bun:"table:certificates"`

	ID                 string    `bun:"id,pk"`
	CourseID           string    `bun:"course_id,notnull"`
	LearnerID          string    `bun:"learner_id,notnull"`
	LearnerName        string    `bun:"learner_name,notnull"`
	LearnerEmail       string    `bun:"learner_email,notnull"`
	IssuedDate         time.Time `bun:"issued_date,notnull"`
	CompletionDate     time.Time `bun:"completion_date,notnull"`
	OriginalIssuedDate time.Time `bun:"original_issued_date,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,notnull"`
}

func rowFromCertificate(c *domain.Certificate) *certificateRow {
	return &certificateRow{
		ID:                 c.CertificateID,
		CourseID:           c.CourseID,
		LearnerID:          c.LearnerID,
		LearnerName:        c.LearnerName,
		LearnerEmail:       c.LearnerEmail,
		IssuedDate:         c.IssuedDate,
		CompletionDate:     c.CompletionDate,
		OriginalIssuedDate: c.OriginalIssuedDate,
		UpdatedAt:          c.UpdatedAt,
	}
}

func (r *certificateRow) certificate() *domain.Certificate {
	return &domain.Certificate{
		CertificateID:      r.ID,
		CourseID:           r.CourseID,
		LearnerID:          r.LearnerID,
		LearnerName:        r.LearnerName,
		LearnerEmail:       r.LearnerEmail,
		IssuedDate:         r.IssuedDate.UTC(),
		CompletionDate:     r.CompletionDate.UTC(),
		OriginalIssuedDate: r.OriginalIssuedDate.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

// CertificateStore persists certificates with bun. The unique (course_id, learner_id) constraint
// backs the one-certificate-per-pair rule.
type CertificateStore struct {
	db *bun.DB
}

func NewCertificateStore(db *bun.DB) *CertificateStore {
	return &CertificateStore{db: db}
}

func (s *CertificateStore) Create(ctx context.Context, cert *domain.Certificate) error {
	_, err := s.db.NewInsert().Model(rowFromCertificate(cert)).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrCertificateExists
	}
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *CertificateStore) Update(ctx context.Context, cert *domain.Certificate) error {
	res, err := s.db.NewUpdate().
		Model(rowFromCertificate(cert)).
		Column("learner_name", "learner_email", "issued_date", "completion_date", "original_issued_date", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrCertificateNotFound
	}
	return nil
}

func (s *CertificateStore) Get(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	row := new(certificateRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", certificateID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return row.certificate(), nil
}

func (s *CertificateStore) FindByLearner(ctx context.Context, courseID, learnerID string) (*domain.Certificate, bool, error) {
	row := new(certificateRow)
	err := s.db.NewSelect().Model(row).
		Where("course_id = ?", courseID).
		Where("learner_id = ?", learnerID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find certificate: %w", err)
	}
	return row.certificate(), true, nil
}

func (s *CertificateStore) ListByCourse(ctx context.Context, courseID string) ([]*domain.Certificate, error) {
	var rows []certificateRow
	if err := s.db.NewSelect().Model(&rows).Where("course_id = ?", courseID).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	certs := make([]*domain.Certificate, 0, len(rows))
	for i := range rows {
		certs = append(certs, rows[i].certificate())
	}
	return certs, nil
}

func (s *CertificateStore) CourseIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*certificateRow)(nil)).
		ColumnExpr("DISTINCT course_id").
		Order("course_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list course ids: %w", err)
	}
	return ids, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
