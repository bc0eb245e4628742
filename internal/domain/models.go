package domain

import "time"

// SubItem is the smallest completion unit: one video, optionally paired with a quiz.
type SubItem struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	QuizID string `json:"quizId,omitempty"`
}

// HasQuiz reports whether the sub-item contributes a quiz unit.
func (s SubItem) HasQuiz() bool {
	return s.QuizID != ""
}

// Section groups sub-items in authoring order.
type Section struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	SubItems []SubItem `json:"subItems"`
}

// CourseStructure is the read-only shape of a course used to count completion units.
type CourseStructure struct {
	CourseID   string    `json:"courseId"`
	CourseName string    `json:"courseName"`
	Sections   []Section `json:"sections"`
}

// TotalItems counts one unit per video plus one per attached quiz.
func (c *CourseStructure) TotalItems() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, section := range c.Sections {
		for _, item := range section.SubItems {
			total++
			if item.HasQuiz() {
				total++
			}
		}
	}
	return total
}

// CourseProgress holds a learner's completed videos and passed quizzes for one course.
type CourseProgress struct {
	CourseID          string   `json:"courseId"`
	LearnerID         string   `json:"learnerId"`
	CompletedVideoIDs []string `json:"completedVideos"`
	CompletedQuizIDs  []string `json:"completedQuizzes"`
}

// CompletedCount counts distinct completed videos plus distinct passed quizzes.
func (p *CourseProgress) CompletedCount() int {
	if p == nil {
		return 0
	}
	return countDistinct(p.CompletedVideoIDs) + countDistinct(p.CompletedQuizIDs)
}

func countDistinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// PercentResult is the aggregator output for one learner/course pair.
type PercentResult struct {
	CompletedCount int     `json:"completedCount"`
	TotalItems     int     `json:"totalItems"`
	Percent        float64 `json:"percent"`
}

// Complete reports whether the result satisfies certificate issuance.
func (r PercentResult) Complete() bool {
	return r.Percent >= 100
}

// PercentOf returns completed/total as a percentage rounded half up to two decimals.
// The rounding happens on integer hundredths so halves are never lost to binary floats.
func PercentOf(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	hundredths := (int64(completed)*20000 + int64(total)) / (2 * int64(total))
	return float64(hundredths) / 100
}

// LearnerSnapshot is the display data copied onto certificates.
type LearnerSnapshot struct {
	LearnerID string `json:"learnerId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// DisplayName joins first and last name.
func (l LearnerSnapshot) DisplayName() string {
	switch {
	case l.FirstName == "":
		return l.LastName
	case l.LastName == "":
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// UnknownLearner is the display name used when no snapshot can be read.
const UnknownLearner = "Unknown"

// Certificate is the persisted proof of completion. It never carries a validity flag;
// see StatusFor.
type Certificate struct {
	CertificateID      string    `json:"certificateId"`
	CourseID           string    `json:"courseId"`
	LearnerID          string    `json:"learnerId"`
	LearnerName        string    `json:"learnerName"`
	LearnerEmail       string    `json:"learnerEmail"`
	IssuedDate         time.Time `json:"issuedDate"`
	CompletionDate     time.Time `json:"completionDate"`
	OriginalIssuedDate time.Time `json:"originalIssuedDate"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CertificateStatus is derived from current progress on every read.
type CertificateStatus string

const (
	StatusUnissued CertificateStatus = "unissued"
	StatusValid    CertificateStatus = "valid"
	StatusInvalid  CertificateStatus = "invalid"
)

// StatusFor derives the status of a certificate (nil means none issued) from the current percent.
func StatusFor(cert *Certificate, percent float64) CertificateStatus {
	if cert == nil {
		return StatusUnissued
	}
	if percent >= 100 {
		return StatusValid
	}
	return StatusInvalid
}

// CertificateView pairs a stored certificate with its derived status.
type CertificateView struct {
	Certificate
	Status  CertificateStatus `json:"status"`
	Percent float64           `json:"currentProgress"`
}
