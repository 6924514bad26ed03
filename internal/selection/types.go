package selection

import "recap-service/internal/models"

// Quota is the per-category contribution cap for one daily selection.
// Short-term recall is probed more often than distant memory, so the
// immediate bucket is the largest. Shortfall in one bucket is never
// backfilled from another.
type Quota struct {
	Immediate int
	Recent    int
	Remote    int
}

func (q Quota) Total() int {
	return q.Immediate + q.Recent + q.Remote
}

// ForCategory returns the cap for a single category bucket.
func (q Quota) ForCategory(category string) int {
	switch category {
	case models.CategoryImmediate:
		return q.Immediate
	case models.CategoryRecent:
		return q.Recent
	case models.CategoryRemote:
		return q.Remote
	}
	return 0
}

// DefaultQuota is the clinical 4/2/1 split, seven questions per day.
func DefaultQuota() Quota {
	return Quota{Immediate: 4, Recent: 2, Remote: 1}
}

// Criteria describes one selection request.
type Criteria struct {
	Quota      Quota
	ExcludeIDs map[string]bool
}

// Result holds the day's selection. Questions are ordered
// immediate, recent, remote regardless of catalog or fetch order.
type Result struct {
	Questions       []models.Question
	TotalCandidates int
	ByCategory      map[string]int
}

// Empty reports whether no new candidates were available, which is the
// signal for the history-fallback path, not an error.
func (r *Result) Empty() bool {
	return len(r.Questions) == 0
}
