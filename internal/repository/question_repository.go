package repository

import (
	"context"
	"log/slog"

	"recap-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QuestionRepository is the catalog adapter: the master collection of
// authorable questions, category-tagged.
type QuestionRepository struct {
	Col    *mongo.Collection
	logger *slog.Logger
}

func NewQuestionRepository(db *mongo.Database, logger *slog.Logger) *QuestionRepository {
	return &QuestionRepository{Col: db.Collection("questions"), logger: logger}
}

func (r *QuestionRepository) FindAll(ctx context.Context) ([]models.Question, error) {
	cur, err := r.Col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return r.decodeAll(ctx, cur)
}

// FindByCategory runs a field-equality query with a result cap.
func (r *QuestionRepository) FindByCategory(ctx context.Context, category string, limit int64) ([]models.Question, error) {
	opts := options.Find().SetLimit(limit)
	cur, err := r.Col.Find(ctx, bson.M{"category": category}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return r.decodeAll(ctx, cur)
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	_, err := r.Col.InsertOne(ctx, question)
	return err
}

func (r *QuestionRepository) CreateMany(ctx context.Context, questions []models.Question) error {
	docs := make([]interface{}, len(questions))
	for i := range questions {
		docs[i] = questions[i]
	}
	_, err := r.Col.InsertMany(ctx, docs)
	return err
}

func (r *QuestionRepository) Update(ctx context.Context, id string, update bson.M) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	return err
}

// Deactivate soft-deletes a catalog question; inactive questions are
// excluded from selection but survive for existing archives.
func (r *QuestionRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": false}})
	return err
}

// decodeAll drains a cursor, skipping malformed documents instead of
// aborting the whole fetch. A skipped document is logged and nothing more.
func (r *QuestionRepository) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]models.Question, error) {
	var questions []models.Question
	for cur.Next(ctx) {
		var q models.Question
		if err := cur.Decode(&q); err != nil {
			r.logger.Warn("skipping undecodable catalog document", "error", err)
			continue
		}
		if err := q.Validate(); err != nil {
			r.logger.Warn("skipping invalid catalog document", "id", q.ID, "error", err)
			continue
		}
		questions = append(questions, q)
	}
	return questions, cur.Err()
}
