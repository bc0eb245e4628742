package app

import "course-ledger-service/internal/domain"

// Aggregate computes completion for one learner. A nil progress counts as zero completions and
// an empty course is always 0%, never 100%.
func Aggregate(structure *domain.CourseStructure, progress *domain.CourseProgress) domain.PercentResult {
	total := structure.TotalItems()
	completed := progress.CompletedCount()

	result := domain.PercentResult{CompletedCount: completed, TotalItems: total}
	if total == 0 {
		return result
	}
	percent := domain.PercentOf(completed, total)
	// Completion IDs for removed items can push the count past the total.
	if percent > 100 {
		percent = 100
	}
	result.Percent = percent
	return result
}
