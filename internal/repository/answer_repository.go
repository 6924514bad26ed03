package repository

import (
	"context"
	"time"

	"recap-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnswerRepository stores answer submissions for family-side verification
// and the daily progress summary.
type AnswerRepository struct {
	Col *mongo.Collection
}

func NewAnswerRepository(db *mongo.Database) *AnswerRepository {
	return &AnswerRepository{Col: db.Collection("answers")}
}

func (r *AnswerRepository) Create(ctx context.Context, answer *models.AnswerSubmission) error {
	_, err := r.Col.InsertOne(ctx, answer)
	return err
}

func (r *AnswerRepository) FindByUser(ctx context.Context, userID string) ([]models.AnswerSubmission, error) {
	opts := options.Find().SetSort(bson.M{"submitted_at": -1})
	cur, err := r.Col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var answers []models.AnswerSubmission
	for cur.Next(ctx) {
		var a models.AnswerSubmission
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, cur.Err()
}

// FindByUserBetween returns submissions in [from, to), used to count a
// single day's answers.
func (r *AnswerRepository) FindByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]models.AnswerSubmission, error) {
	filter := bson.M{
		"user_id":      userID,
		"submitted_at": bson.M{"$gte": from, "$lt": to},
	}
	cur, err := r.Col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var answers []models.AnswerSubmission
	for cur.Next(ctx) {
		var a models.AnswerSubmission
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, cur.Err()
}
