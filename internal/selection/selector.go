package selection

import (
	"math/rand"
	"time"

	"recap-service/internal/models"
)

// CategorySelector picks a daily question set from the catalog using
// fixed per-category quotas.
type CategorySelector struct {
	rand *rand.Rand
	now  func() time.Time
}

func NewCategorySelector() *CategorySelector {
	return &CategorySelector{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
}

// NewCategorySelectorWithSource builds a selector with a fixed random
// source and clock, for deterministic tests.
func NewCategorySelectorWithSource(src rand.Source, now func() time.Time) *CategorySelector {
	return &CategorySelector{rand: rand.New(src), now: now}
}

// Select partitions the catalog into category buckets, excluding questions
// already in the user's active set, inactive questions, and questions whose
// ask interval has not yet elapsed, then takes up to the quota from each
// bucket. The catalog is shuffled first so undersupplied categories do not
// always surface the same early documents. The final order is always
// immediate, recent, remote, no cross-category backfill.
func (s *CategorySelector) Select(catalog []models.Question, criteria *Criteria) *Result {
	shuffled := make([]models.Question, len(catalog))
	copy(shuffled, catalog)
	s.rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	now := s.now()
	buckets := map[string][]models.Question{}
	candidates := 0
	for _, q := range shuffled {
		if q.ID == "" || criteria.ExcludeIDs[q.ID] {
			continue
		}
		if !q.IsActive {
			continue
		}
		if !q.EligibleAt(now) {
			continue
		}
		if !models.ValidCategory(q.Category) {
			continue
		}
		buckets[q.Category] = append(buckets[q.Category], q)
		candidates++
	}

	result := &Result{
		TotalCandidates: candidates,
		ByCategory:      make(map[string]int, len(models.Categories)),
	}
	for _, category := range models.Categories {
		picked := take(buckets[category], criteria.Quota.ForCategory(category))
		result.ByCategory[category] = len(picked)
		result.Questions = append(result.Questions, picked...)
	}
	return result
}

func take(questions []models.Question, n int) []models.Question {
	if n > len(questions) {
		n = len(questions)
	}
	return questions[:n]
}
