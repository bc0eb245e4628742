package domain

import "time"

// Action names the branch taken for one learner/course evaluation.
type Action string

const (
	ActionIssued      Action = "issued"
	ActionRegenerated Action = "regenerated"
	ActionInvalidated Action = "invalidated"
	ActionNone        Action = "none"
	ActionError       Action = "error"
)

// SweepTrigger records who started a sweep.
type SweepTrigger string

const (
	TriggerManual    SweepTrigger = "manual"
	TriggerAutomatic SweepTrigger = "automatic"
)

// CertificateDecision is the outcome of evaluating a single learner/course pair.
type CertificateDecision struct {
	CourseID    string            `json:"courseId"`
	LearnerID   string            `json:"learnerId"`
	Action      Action            `json:"action"`
	Status      CertificateStatus `json:"status"`
	Progress    PercentResult     `json:"progress"`
	Certificate *Certificate      `json:"certificate,omitempty"`
}

// SweepResult is the per-certificate line of a sweep report.
type SweepResult struct {
	CertificateID   string  `json:"certificateId"`
	LearnerID       string  `json:"learnerId"`
	StudentName     string  `json:"studentName"`
	Email           string  `json:"email,omitempty"`
	Action          Action  `json:"action"`
	CurrentProgress float64 `json:"currentProgress"`
	Message         string  `json:"message"`
}

// SweepReport summarises a batch re-evaluation of one course.
type SweepReport struct {
	Success           bool          `json:"success"`
	Cancelled         bool          `json:"cancelled,omitempty"`
	CourseID          string        `json:"courseId"`
	CourseName        string        `json:"courseName"`
	TriggerType       SweepTrigger  `json:"triggerType"`
	TotalCertificates int           `json:"totalCertificates"`
	RegeneratedCount  int           `json:"regeneratedCount"`
	InvalidatedCount  int           `json:"invalidatedCount"`
	ErroredCount      int           `json:"erroredCount"`
	TotalCourseItems  int           `json:"totalCourseItems"`
	Message           string        `json:"message"`
	StartedAt         time.Time     `json:"startedAt"`
	FinishedAt        time.Time     `json:"finishedAt"`
	Results           []SweepResult `json:"results"`
}

// StatusEntry describes one certificate in a read-only status check.
type StatusEntry struct {
	CertificateID   string    `json:"certificateId"`
	LearnerID       string    `json:"learnerId"`
	StudentName     string    `json:"studentName"`
	Email           string    `json:"email,omitempty"`
	CurrentProgress float64   `json:"currentProgress"`
	IssuedDate      time.Time `json:"issuedDate"`
	LastUpdated     time.Time `json:"lastUpdated"`
	Reason          string    `json:"reason,omitempty"`
}

// StatusDetails splits a status check by classification.
type StatusDetails struct {
	Valid             []StatusEntry `json:"valid"`
	NeedsRegeneration []StatusEntry `json:"needsRegeneration"`
	Errors            []StatusEntry `json:"errors"`
}

// StatusReport is the dry-run view of a course's certificates.
type StatusReport struct {
	CourseID          string        `json:"courseId"`
	CourseName        string        `json:"courseName"`
	TotalCertificates int           `json:"totalCertificates"`
	ValidCertificates int           `json:"validCertificates"`
	NeedsRegeneration int           `json:"needsRegeneration"`
	Errored           int           `json:"errored"`
	TotalCourseItems  int           `json:"totalCourseItems"`
	Details           StatusDetails `json:"details"`
}
