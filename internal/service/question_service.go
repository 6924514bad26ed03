package service

import (
	"context"
	"time"

	"recap-service/internal/models"
	"recap-service/internal/repository"
)

type QuestionService struct {
	Repo *repository.QuestionRepository
}

func NewQuestionService(repo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{Repo: repo}
}

func (s *QuestionService) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return s.Repo.FindAll(ctx)
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *QuestionService) CreateQuestion(ctx context.Context, question *models.Question) error {
	if err := question.Validate(); err != nil {
		return err
	}
	question.ApplyDefaults()
	question.IsActive = true
	question.CreatedAt = time.Now().UTC()
	return s.Repo.Create(ctx, question)
}

// ImportQuestions bulk-creates authored questions, skipping invalid ones.
// Returns how many were written and the ids of the skipped records.
func (s *QuestionService) ImportQuestions(ctx context.Context, questions []models.Question) (int, []string, error) {
	valid := make([]models.Question, 0, len(questions))
	var skipped []string
	now := time.Now().UTC()
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			skipped = append(skipped, q.ID)
			continue
		}
		q.ApplyDefaults()
		q.IsActive = true
		q.CreatedAt = now
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return 0, skipped, nil
	}
	if err := s.Repo.CreateMany(ctx, valid); err != nil {
		return 0, skipped, err
	}
	return len(valid), skipped, nil
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, update map[string]any) error {
	return s.Repo.Update(ctx, id, update)
}

func (s *QuestionService) DeactivateQuestion(ctx context.Context, id string) error {
	return s.Repo.Deactivate(ctx, id)
}
