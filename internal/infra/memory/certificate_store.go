package memory

import (
	"context"
	"sort"
	"sync"

	"course-ledger-service/internal/domain"
)

// CertificateStore is an in-memory implementation of app.CertificateStore.
type CertificateStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.Certificate
	byPair  map[pairKey]string
	updates int
}

type pairKey struct {
	courseID  string
	learnerID string
}

func NewCertificateStore() *CertificateStore {
	return &CertificateStore{
		byID:   make(map[string]domain.Certificate),
		byPair: make(map[pairKey]string),
	}
}

func (s *CertificateStore) Create(_ context.Context, cert *domain.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{cert.CourseID, cert.LearnerID}
	if _, ok := s.byPair[key]; ok {
		return domain.ErrCertificateExists
	}
	if _, ok := s.byID[cert.CertificateID]; ok {
		return domain.ErrCertificateExists
	}
	s.byID[cert.CertificateID] = *cert
	s.byPair[key] = cert.CertificateID
	return nil
}

func (s *CertificateStore) Update(_ context.Context, cert *domain.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[cert.CertificateID]; !ok {
		return domain.ErrCertificateNotFound
	}
	s.byID[cert.CertificateID] = *cert
	s.updates++
	return nil
}

func (s *CertificateStore) Get(_ context.Context, certificateID string) (*domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.byID[certificateID]
	if !ok {
		return nil, domain.ErrCertificateNotFound
	}
	return &cert, nil
}

func (s *CertificateStore) FindByLearner(_ context.Context, courseID, learnerID string) (*domain.Certificate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{courseID, learnerID}]
	if !ok {
		return nil, false, nil
	}
	cert := s.byID[id]
	return &cert, true, nil
}

func (s *CertificateStore) ListByCourse(_ context.Context, courseID string) ([]*domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certs := make([]*domain.Certificate, 0)
	for _, cert := range s.byID {
		if cert.CourseID == courseID {
			cert := cert
			certs = append(certs, &cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].CertificateID < certs[j].CertificateID })
	return certs, nil
}

func (s *CertificateStore) CourseIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, cert := range s.byID {
		seen[cert.CourseID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len reports how many certificates are stored.
func (s *CertificateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Updates reports how many updates were applied, used by tests asserting read-only paths.
func (s *CertificateStore) Updates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}
