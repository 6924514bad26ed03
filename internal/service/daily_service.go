package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"recap-service/internal/models"
	"recap-service/internal/selection"

	"golang.org/x/sync/semaphore"
)

var ErrQuestionNotActive = errors.New("question is not in the user's active set")

// Store interfaces kept small so tests can inject fakes without a live
// MongoDB. The mongo-backed repositories satisfy them.

type CatalogStore interface {
	FindByCategory(ctx context.Context, category string, limit int64) ([]models.Question, error)
}

type ActiveStore interface {
	FindActive(ctx context.Context, userID string) ([]models.Question, error)
	ActiveIDs(ctx context.Context, userID string) (map[string]bool, error)
	UpsertActive(ctx context.Context, userID string, q *models.Question) error
	MarkAnswered(ctx context.Context, userID, questionID string, correct bool) error
}

type ArchiveStore interface {
	EnsureBucket(ctx context.Context, userID string, date time.Time) error
	MoveActiveToArchive(ctx context.Context, userID string, date time.Time) (int, error)
	FetchForDate(ctx context.Context, userID string, date time.Time) ([]models.Question, error)
}

type AnswerStore interface {
	Create(ctx context.Context, answer *models.AnswerSubmission) error
	FindByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]models.AnswerSubmission, error)
}

// DailySelection is what SelectDaily hands back to the UI layer.
type DailySelection struct {
	Questions []models.Question `json:"questions"`
	// FromArchive marks the review fallback: no new candidates were
	// available, so the day's already-archived set is served instead.
	FromArchive bool `json:"from_archive"`
}

// SubmitResult reports the outcome of one answer submission.
type SubmitResult struct {
	QuestionID string `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
}

// DailyService orchestrates the per-user daily lifecycle: ensure the
// day's archive bucket exists, serve a daily selection, record answers,
// and migrate asked questions into dated history.
type DailyService struct {
	catalog  CatalogStore
	active   ActiveStore
	archive  ArchiveStore
	answers  AnswerStore
	selector *selection.CategorySelector
	quota    selection.Quota
	logger   *slog.Logger

	// candidateBuffer pads each category fetch beyond its quota so
	// already-active exclusions still leave enough candidates.
	candidateBuffer int64
	fetchTimeout    time.Duration
	now             func() time.Time

	// one semaphore per user serializes selection against migration so a
	// selection never reads a half-migrated active set
	userLocks sync.Map
}

func NewDailyService(
	catalog CatalogStore,
	active ActiveStore,
	archive ArchiveStore,
	answers AnswerStore,
	logger *slog.Logger,
) *DailyService {
	return &DailyService{
		catalog:         catalog,
		active:          active,
		archive:         archive,
		answers:         answers,
		selector:        selection.NewCategorySelector(),
		quota:           selection.DefaultQuota(),
		logger:          logger,
		candidateBuffer: 10,
		fetchTimeout:    5 * time.Second,
		now:             time.Now,
	}
}

func (s *DailyService) userLock(userID string) *semaphore.Weighted {
	lock, _ := s.userLocks.LoadOrStore(userID, semaphore.NewWeighted(1))
	return lock.(*semaphore.Weighted)
}

// SelectDaily returns the user's question set for today.
//
// If active-set questions remain they are re-served as-is; no new picks
// happen until migration clears the set. Otherwise the three category
// fetches run concurrently (a failed or timed-out fetch degrades that
// bucket to empty), the selector applies the quotas, and the winners are
// merge-written into the active set. An empty selection triggers the
// archive fallback for today instead of an error.
func (s *DailyService) SelectDaily(ctx context.Context, userID string) (*DailySelection, error) {
	lock := s.userLock(userID)
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer lock.Release(1)

	activeSet, err := s.active.FindActive(ctx, userID)
	if err != nil {
		s.logger.Warn("active set fetch failed, treating as empty", "user_id", userID, "error", err)
		activeSet = nil
	}
	if len(activeSet) > 0 {
		return &DailySelection{Questions: activeSet}, nil
	}

	excludeIDs, err := s.active.ActiveIDs(ctx, userID)
	if err != nil {
		s.logger.Warn("active id fetch failed, selecting without exclusions", "user_id", userID, "error", err)
		excludeIDs = map[string]bool{}
	}

	catalog := s.fetchCatalog(ctx)
	result := s.selector.Select(catalog, &selection.Criteria{
		Quota:      s.quota,
		ExcludeIDs: excludeIDs,
	})

	if result.Empty() {
		archived, err := s.archive.FetchForDate(ctx, userID, s.now())
		if err != nil {
			s.logger.Warn("archive fallback fetch failed", "user_id", userID, "error", err)
			return &DailySelection{}, nil
		}
		return &DailySelection{Questions: archived, FromArchive: true}, nil
	}

	for i := range result.Questions {
		q := &result.Questions[i]
		if err := s.active.UpsertActive(ctx, userID, q); err != nil {
			s.logger.Warn("skipping question during active-set write", "user_id", userID, "question_id", q.ID, "error", err)
		}
	}
	return &DailySelection{Questions: result.Questions}, nil
}

// fetchCatalog fans out one capped fetch per category and joins them in
// canonical order (immediate, recent, remote) regardless of which fetch
// finishes first. A failed bucket contributes nothing; it never aborts
// the other two.
func (s *DailyService) fetchCatalog(ctx context.Context) []models.Question {
	buckets := make([][]models.Question, len(models.Categories))
	var wg sync.WaitGroup
	for i, category := range models.Categories {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()

			limit := int64(s.quota.ForCategory(category)) + s.candidateBuffer
			questions, err := s.catalog.FindByCategory(fetchCtx, category, limit)
			if err != nil {
				s.logger.Warn("category fetch failed, bucket degraded to empty", "category", category, "error", err)
				return
			}
			buckets[i] = questions
		}(i, category)
	}
	wg.Wait()

	var catalog []models.Question
	for _, bucket := range buckets {
		catalog = append(catalog, bucket...)
	}
	return catalog
}

// SubmitAnswer checks the chosen answer against the question's accepted
// set, updates the active-set tracking state, and records the submission
// for family-side review.
func (s *DailyService) SubmitAnswer(ctx context.Context, userID, questionID, answer string) (*SubmitResult, error) {
	activeSet, err := s.active.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	var question *models.Question
	for i := range activeSet {
		if activeSet[i].ID == questionID {
			question = &activeSet[i]
			break
		}
	}
	if question == nil {
		return nil, ErrQuestionNotActive
	}

	correct := question.IsCorrectAnswer(answer)
	if err := s.active.MarkAnswered(ctx, userID, questionID, correct); err != nil {
		return nil, err
	}

	submission := &models.AnswerSubmission{
		UserID:      userID,
		QuestionID:  questionID,
		UserAnswer:  answer,
		IsCorrect:   correct,
		Category:    question.Category,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.answers.Create(ctx, submission); err != nil {
		// Tracking state is already updated; a lost submission record only
		// degrades the family-side review view.
		s.logger.Warn("failed to record answer submission", "user_id", userID, "question_id", questionID, "error", err)
	}
	return &SubmitResult{QuestionID: questionID, IsCorrect: correct}, nil
}

// RunDailyMigration ensures today's archive bucket exists, then moves the
// whole active set into it atomically. Nothing to move is a successful
// no-op. Returns the number of questions migrated.
func (s *DailyService) RunDailyMigration(ctx context.Context, userID string) (int, error) {
	lock := s.userLock(userID)
	if err := lock.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer lock.Release(1)

	date := s.now()
	if err := s.archive.EnsureBucket(ctx, userID, date); err != nil {
		return 0, err
	}
	moved, err := s.archive.MoveActiveToArchive(ctx, userID, date)
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		s.logger.Info("migrated active set to archive", "user_id", userID, "moved", moved)
	}
	return moved, nil
}

// GetDailyProgress summarizes the day: the served set (active, or today's
// archive after migration) against the recorded submissions.
func (s *DailyService) GetDailyProgress(ctx context.Context, userID string) (*models.DailyProgress, error) {
	date := s.now()
	questions, err := s.active.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		if questions, err = s.archive.FetchForDate(ctx, userID, date); err != nil {
			return nil, err
		}
	}

	progress := &models.DailyProgress{
		Date:       date.Format("2006-01-02"),
		Total:      len(questions),
		ByCategory: map[string]int{},
	}
	for _, q := range questions {
		progress.ByCategory[q.Category]++
		if q.IsAnswered {
			progress.Answered++
		}
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	submissions, err := s.answers.FindByUserBetween(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		s.logger.Warn("submission fetch failed, correct count omitted", "user_id", userID, "error", err)
		return progress, nil
	}
	seen := map[string]bool{}
	for _, sub := range submissions {
		if sub.IsCorrect && !seen[sub.QuestionID] {
			progress.Correct++
			seen[sub.QuestionID] = true
		}
	}
	return progress, nil
}
