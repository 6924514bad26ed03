package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"recap-service/internal/models"
	"recap-service/internal/repository"
)

// In-memory fakes for the store interfaces.

type fakeCatalog struct {
	byCategory map[string][]models.Question
	failing    map[string]bool
	calls      int
}

func (f *fakeCatalog) FindByCategory(ctx context.Context, category string, limit int64) ([]models.Question, error) {
	f.calls++
	if f.failing[category] {
		return nil, errors.New("store unavailable")
	}
	questions := f.byCategory[category]
	if int64(len(questions)) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

type fakeActive struct {
	mu     sync.Mutex
	byUser map[string]map[string]models.Question
}

func newFakeActive() *fakeActive {
	return &fakeActive{byUser: map[string]map[string]models.Question{}}
}

func (f *fakeActive) FindActive(ctx context.Context, userID string) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var questions []models.Question
	for _, q := range f.byUser[userID] {
		questions = append(questions, q)
	}
	return questions, nil
}

func (f *fakeActive) ActiveIDs(ctx context.Context, userID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := map[string]bool{}
	for id := range f.byUser[userID] {
		ids[id] = true
	}
	return ids, nil
}

func (f *fakeActive) UpsertActive(ctx context.Context, userID string, q *models.Question) error {
	if q.ID == "" {
		return models.ErrMissingID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byUser[userID] == nil {
		f.byUser[userID] = map[string]models.Question{}
	}
	f.byUser[userID][q.ID] = *q
	return nil
}

func (f *fakeActive) MarkAnswered(ctx context.Context, userID, questionID string, correct bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byUser[userID][questionID]
	if !ok {
		return errors.New("not found")
	}
	q.IsAnswered = true
	q.TimesAsked++
	if correct {
		q.TimesAnsweredCorrectly++
	}
	f.byUser[userID][questionID] = q
	return nil
}

type fakeArchive struct {
	mu       sync.Mutex
	active   *fakeActive
	buckets  map[string]bool
	archived map[string][]models.Question
	failMove bool
}

func newFakeArchive(active *fakeActive) *fakeArchive {
	return &fakeArchive{
		active:   active,
		buckets:  map[string]bool{},
		archived: map[string][]models.Question{},
	}
}

func archiveKey(userID string, date time.Time) string {
	return userID + "/" + repository.DayPath(date)
}

func (f *fakeArchive) EnsureBucket(ctx context.Context, userID string, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[archiveKey(userID, date)] = true
	return nil
}

func (f *fakeArchive) MoveActiveToArchive(ctx context.Context, userID string, date time.Time) (int, error) {
	if f.failMove {
		return 0, errors.New("batch commit failed")
	}
	questions, _ := f.active.FindActive(ctx, userID)
	f.mu.Lock()
	key := archiveKey(userID, date)
	f.archived[key] = append(f.archived[key], questions...)
	f.mu.Unlock()

	f.active.mu.Lock()
	delete(f.active.byUser, userID)
	f.active.mu.Unlock()
	return len(questions), nil
}

func (f *fakeArchive) FetchForDate(ctx context.Context, userID string, date time.Time) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.archived[archiveKey(userID, date)], nil
}

type fakeAnswers struct {
	mu          sync.Mutex
	submissions []models.AnswerSubmission
}

func (f *fakeAnswers) Create(ctx context.Context, answer *models.AnswerSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, *answer)
	return nil
}

func (f *fakeAnswers) FindByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]models.AnswerSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnswerSubmission
	for _, sub := range f.submissions {
		if sub.UserID == userID && !sub.SubmittedAt.Before(from) && sub.SubmittedAt.Before(to) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func catalogQuestions(category string, count int) []models.Question {
	questions := make([]models.Question, count)
	for i := 0; i < count; i++ {
		questions[i] = models.Question{
			ID:             fmt.Sprintf("%s-%d", category, i),
			Text:           fmt.Sprintf("question %d", i),
			Category:       category,
			IsActive:       true,
			CorrectAnswers: []string{"yes"},
		}
	}
	return questions
}

func newTestService(catalog *fakeCatalog) (*DailyService, *fakeActive, *fakeArchive, *fakeAnswers) {
	active := newFakeActive()
	archive := newFakeArchive(active)
	answers := &fakeAnswers{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewDailyService(catalog, active, archive, answers, logger)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return s, active, archive, answers
}

func TestSelectDailyNewSelection(t *testing.T) {
	catalog := &fakeCatalog{byCategory: map[string][]models.Question{
		models.CategoryImmediate: catalogQuestions(models.CategoryImmediate, 5),
		models.CategoryRecent:    catalogQuestions(models.CategoryRecent, 3),
		models.CategoryRemote:    catalogQuestions(models.CategoryRemote, 1),
	}}
	s, active, _, _ := newTestService(catalog)

	result, err := s.SelectDaily(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SelectDaily failed: %v", err)
	}
	if result.FromArchive {
		t.Errorf("Expected a fresh selection, got archive fallback")
	}
	if len(result.Questions) != 7 {
		t.Fatalf("Expected 7 questions, got %d", len(result.Questions))
	}

	counts := map[string]int{}
	for _, q := range result.Questions {
		counts[q.Category]++
	}
	if counts[models.CategoryImmediate] != 4 || counts[models.CategoryRecent] != 2 || counts[models.CategoryRemote] != 1 {
		t.Errorf("Unexpected category split: %v", counts)
	}

	// Category order is canonical regardless of fetch completion order.
	lastRank := 0
	rank := map[string]int{models.CategoryImmediate: 1, models.CategoryRecent: 2, models.CategoryRemote: 3}
	for _, q := range result.Questions {
		if rank[q.Category] < lastRank {
			t.Errorf("Questions out of canonical category order")
		}
		lastRank = rank[q.Category]
	}

	// The winners landed in the active set.
	stored, _ := active.FindActive(context.Background(), "user-1")
	if len(stored) != 7 {
		t.Errorf("Expected 7 active questions after selection, got %d", len(stored))
	}
}

func TestSelectDailyReservesActiveSet(t *testing.T) {
	catalog := &fakeCatalog{byCategory: map[string][]models.Question{
		models.CategoryImmediate: catalogQuestions(models.CategoryImmediate, 5),
	}}
	s, active, _, _ := newTestService(catalog)

	existing := catalogQuestions(models.CategoryImmediate, 2)
	for i := range existing {
		if err := active.UpsertActive(context.Background(), "user-1", &existing[i]); err != nil {
			t.Fatal(err)
		}
	}

	result, err := s.SelectDaily(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SelectDaily failed: %v", err)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("Expected the 2 existing active questions, got %d", len(result.Questions))
	}
	if catalog.calls != 0 {
		t.Errorf("Expected no catalog fetches while active set remains, got %d", catalog.calls)
	}
}

func TestSelectDailyFallbackToArchive(t *testing.T) {
	s, _, archive, _ := newTestService(&fakeCatalog{byCategory: map[string][]models.Question{}})

	archived := catalogQuestions(models.CategoryImmediate, 3)
	archive.archived[archiveKey("user-1", s.now())] = archived

	result, err := s.SelectDaily(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SelectDaily failed: %v", err)
	}
	if !result.FromArchive {
		t.Errorf("Expected archive fallback")
	}
	if len(result.Questions) != 3 {
		t.Errorf("Expected 3 archived questions, got %d", len(result.Questions))
	}
}

func TestSelectDailyDegradedOnPartialFetchFailure(t *testing.T) {
	catalog := &fakeCatalog{
		byCategory: map[string][]models.Question{
			models.CategoryImmediate: catalogQuestions(models.CategoryImmediate, 5),
			models.CategoryRecent:    catalogQuestions(models.CategoryRecent, 3),
		},
		failing: map[string]bool{models.CategoryRecent: true},
	}
	s, _, _, _ := newTestService(catalog)

	result, err := s.SelectDaily(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SelectDaily failed: %v", err)
	}
	counts := map[string]int{}
	for _, q := range result.Questions {
		counts[q.Category]++
	}
	if counts[models.CategoryImmediate] != 4 {
		t.Errorf("Expected 4 immediate questions despite failed bucket, got %d", counts[models.CategoryImmediate])
	}
	if counts[models.CategoryRecent] != 0 {
		t.Errorf("Failed bucket should contribute nothing, got %d", counts[models.CategoryRecent])
	}
}

func TestSelectDailyAllFetchesFailNoArchive(t *testing.T) {
	catalog := &fakeCatalog{
		failing: map[string]bool{
			models.CategoryImmediate: true,
			models.CategoryRecent:    true,
			models.CategoryRemote:    true,
		},
	}
	s, _, _, _ := newTestService(catalog)

	result, err := s.SelectDaily(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Expected fail-soft empty selection, got error: %v", err)
	}
	if len(result.Questions) != 0 {
		t.Errorf("Expected no questions, got %d", len(result.Questions))
	}
}

func TestSubmitAnswer(t *testing.T) {
	s, active, _, answers := newTestService(&fakeCatalog{})

	q := models.Question{
		ID:             "q-1",
		Text:           "Did you sleep well?",
		Category:       models.CategoryImmediate,
		IsActive:       true,
		CorrectAnswers: []string{"yes"},
	}
	if err := active.UpsertActive(context.Background(), "user-1", &q); err != nil {
		t.Fatal(err)
	}

	result, err := s.SubmitAnswer(context.Background(), "user-1", "q-1", "yes")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if !result.IsCorrect {
		t.Errorf("Expected correct answer")
	}

	stored := active.byUser["user-1"]["q-1"]
	if !stored.IsAnswered || stored.TimesAsked != 1 || stored.TimesAnsweredCorrectly != 1 {
		t.Errorf("Tracking state not updated: %+v", stored)
	}
	if len(answers.submissions) != 1 || !answers.submissions[0].IsCorrect {
		t.Errorf("Submission not recorded: %+v", answers.submissions)
	}

	wrong, err := s.SubmitAnswer(context.Background(), "user-1", "q-1", "no")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if wrong.IsCorrect {
		t.Errorf("Expected incorrect answer")
	}

	if _, err := s.SubmitAnswer(context.Background(), "user-1", "missing", "yes"); !errors.Is(err, ErrQuestionNotActive) {
		t.Errorf("Expected ErrQuestionNotActive, got %v", err)
	}
}

func TestRunDailyMigrationRoundTrip(t *testing.T) {
	s, active, archive, _ := newTestService(&fakeCatalog{})

	questions := catalogQuestions(models.CategoryImmediate, 3)
	for i := range questions {
		if err := active.UpsertActive(context.Background(), "user-1", &questions[i]); err != nil {
			t.Fatal(err)
		}
	}

	moved, err := s.RunDailyMigration(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RunDailyMigration failed: %v", err)
	}
	if moved != 3 {
		t.Errorf("Expected 3 moved, got %d", moved)
	}

	remaining, _ := active.FindActive(context.Background(), "user-1")
	if len(remaining) != 0 {
		t.Errorf("Active set should be empty after migration, has %d", len(remaining))
	}
	archived, _ := archive.FetchForDate(context.Background(), "user-1", s.now())
	if len(archived) != 3 {
		t.Errorf("Expected 3 archived questions, got %d", len(archived))
	}
	if !archive.buckets[archiveKey("user-1", s.now())] {
		t.Errorf("Bucket marker missing")
	}

	// Nothing left to move: still a successful no-op.
	moved, err = s.RunDailyMigration(context.Background(), "user-1")
	if err != nil || moved != 0 {
		t.Errorf("Expected no-op migration, got moved=%d err=%v", moved, err)
	}
	if len(archive.buckets) != 1 {
		t.Errorf("Expected exactly one bucket marker, got %d", len(archive.buckets))
	}
}

func TestRunDailyMigrationAtomicFailure(t *testing.T) {
	s, active, archive, _ := newTestService(&fakeCatalog{})
	archive.failMove = true

	questions := catalogQuestions(models.CategoryImmediate, 2)
	for i := range questions {
		if err := active.UpsertActive(context.Background(), "user-1", &questions[i]); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := s.RunDailyMigration(context.Background(), "user-1"); err == nil {
		t.Fatalf("Expected migration failure")
	}
	remaining, _ := active.FindActive(context.Background(), "user-1")
	if len(remaining) != 2 {
		t.Errorf("Failed migration must leave active set unchanged, has %d", len(remaining))
	}
	archived, _ := archive.FetchForDate(context.Background(), "user-1", s.now())
	if len(archived) != 0 {
		t.Errorf("Failed migration must add no archive documents, has %d", len(archived))
	}
}

func TestMigrateThenSelectServesArchive(t *testing.T) {
	// Once the whole catalog has been consumed, migrating and selecting
	// again serves the day's archived set for review.
	catalog := &fakeCatalog{byCategory: map[string][]models.Question{}}
	s, active, _, _ := newTestService(catalog)

	questions := catalogQuestions(models.CategoryImmediate, 3)
	for i := range questions {
		if err := active.UpsertActive(context.Background(), "user-1", &questions[i]); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.RunDailyMigration(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}

	result, err := s.SelectDaily(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SelectDaily failed: %v", err)
	}
	if !result.FromArchive {
		t.Errorf("Expected archive fallback after migration exhausted the catalog")
	}
	if len(result.Questions) != 3 {
		t.Errorf("Expected 3 archived questions, got %d", len(result.Questions))
	}
}

func TestGetDailyProgress(t *testing.T) {
	s, active, _, _ := newTestService(&fakeCatalog{})

	questions := catalogQuestions(models.CategoryImmediate, 3)
	for i := range questions {
		if err := active.UpsertActive(context.Background(), "user-1", &questions[i]); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SubmitAnswer(context.Background(), "user-1", "immediateMemory-0", "yes"); err != nil {
		t.Fatal(err)
	}

	progress, err := s.GetDailyProgress(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetDailyProgress failed: %v", err)
	}
	if progress.Total != 3 || progress.Answered != 1 || progress.Correct != 1 {
		t.Errorf("Unexpected progress: %+v", progress)
	}
	if progress.ByCategory[models.CategoryImmediate] != 3 {
		t.Errorf("Unexpected category counts: %v", progress.ByCategory)
	}
}
