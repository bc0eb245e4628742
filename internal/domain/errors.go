package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCourseNotFound is returned when the course structure cannot be resolved.
	ErrCourseNotFound = errors.New("course not found")
	// ErrLearnerNotFound is returned when the learner directory has no snapshot for a learner.
	ErrLearnerNotFound = errors.New("learner not found")
	// ErrProgressNotFound indicates a certificate holder has no progress record.
	ErrProgressNotFound = errors.New("course progress not found")
	// ErrCertificateNotFound is returned when a certificate lookup misses.
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrCertificateExists is returned by stores when a course/learner pair already holds a certificate.
	ErrCertificateExists = errors.New("certificate already exists")
	// ErrInvalidIdentifier marks a malformed course, learner or certificate identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidTrigger marks an unknown sweep trigger type.
	ErrInvalidTrigger = errors.New("invalid trigger type")
)

// ValidationError describes input rejected before any I/O happens.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

// RecordError is a failure isolated to a single certificate during a sweep.
type RecordError struct {
	CertificateID string
	LearnerID     string
	Err           error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("certificate %s: %v", e.CertificateID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrLearnerNotFound) ||
		errors.Is(err, ErrProgressNotFound) ||
		errors.Is(err, ErrCertificateNotFound)
}

// IsValidation reports whether err was produced by input validation.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
