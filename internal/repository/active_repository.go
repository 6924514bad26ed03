package repository

import (
	"context"
	"log/slog"

	"recap-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActiveQuestion is one entry of a user's active set: a question currently
// assigned to the user and not yet migrated to archive.
type ActiveQuestion struct {
	ID         string          `bson:"_id"`
	UserID     string          `bson:"user_id"`
	QuestionID string          `bson:"question_id"`
	Question   models.Question `bson:"question"`
}

// ActiveRepository manages the per-user active set. Writes are merge
// semantics: only the fields named in the payload are touched, so a
// concurrent counter bump is never clobbered.
type ActiveRepository struct {
	Col    *mongo.Collection
	logger *slog.Logger
}

func NewActiveRepository(db *mongo.Database, logger *slog.Logger) *ActiveRepository {
	return &ActiveRepository{Col: db.Collection("user_questions"), logger: logger}
}

func activeDocID(userID, questionID string) string {
	return userID + "/" + questionID
}

func (r *ActiveRepository) FindActive(ctx context.Context, userID string) ([]models.Question, error) {
	cur, err := r.Col.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var questions []models.Question
	for cur.Next(ctx) {
		var doc ActiveQuestion
		if err := cur.Decode(&doc); err != nil {
			r.logger.Warn("skipping undecodable active-set document", "user_id", userID, "error", err)
			continue
		}
		doc.Question.ID = doc.QuestionID
		questions = append(questions, doc.Question)
	}
	return questions, cur.Err()
}

// ActiveIDs returns the set of question ids currently in the user's
// active set. Used as the exclusion set during selection.
func (r *ActiveRepository) ActiveIDs(ctx context.Context, userID string) (map[string]bool, error) {
	values, err := r.Col.Distinct(ctx, "question_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids[id] = true
		}
	}
	return ids, nil
}

// UpsertActive merge-writes a selected question into the user's active
// set. Idempotent per (user, question id): re-selecting an already active
// question updates it in place rather than duplicating it. The addedAt
// timestamp comes from the server clock, not the caller's.
func (r *ActiveRepository) UpsertActive(ctx context.Context, userID string, q *models.Question) error {
	if q.ID == "" {
		return models.ErrMissingID
	}

	filter := bson.M{"_id": activeDocID(userID, q.ID)}
	update := bson.M{
		"$set": bson.M{
			"user_id":     userID,
			"question_id": q.ID,
			// Explicit field list, mirroring what the family app shows the
			// patient. Fields outside this list are never overwritten.
			"question.text":                   q.Text,
			"question.category":               q.Category,
			"question.subcategory":            q.Subcategory,
			"question.tag":                    q.Tag,
			"question.answerOptions":          q.AnswerOptions,
			"question.answers":                q.Answers,
			"question.correctAnswers":         q.CorrectAnswers,
			"question.image":                  q.Image,
			"question.audio":                  q.Audio,
			"question.hint":                   q.Hint,
			"question.isAnswered":             q.IsAnswered,
			"question.isActive":               q.IsActive,
			"question.askInterval":            q.AskIntervalSeconds,
			"question.timeFrame":              q.TimeFrame,
			"question.priority":               q.Priority,
			"question.hardness":               q.Hardness,
			"question.confidence":             q.Confidence,
			"question.timesAsked":             q.TimesAsked,
			"question.timesAnsweredCorrectly": q.TimesAnsweredCorrectly,
			"question.lastAsked":              q.LastAsked,
			"question.lastAnsweredCorrectly":  q.LastAnsweredCorrectly,
			"question.questionType":           q.QuestionType,
			"question.createdAt":              q.CreatedAt,
		},
		"$currentDate": bson.M{"question.addedAt": true},
	}
	_, err := r.Col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// MarkAnswered records an answer against an active-set question: flips
// isAnswered, bumps the asked counter, and stamps lastAsked. A correct
// answer additionally bumps the correct counter and lastAnsweredCorrectly.
func (r *ActiveRepository) MarkAnswered(ctx context.Context, userID, questionID string, correct bool) error {
	inc := bson.M{"question.timesAsked": 1}
	dates := bson.M{"question.lastAsked": true}
	if correct {
		inc["question.timesAnsweredCorrectly"] = 1
		dates["question.lastAnsweredCorrectly"] = true
	}
	update := bson.M{
		"$set":         bson.M{"question.isAnswered": true},
		"$inc":         inc,
		"$currentDate": dates,
	}
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": activeDocID(userID, questionID)}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *ActiveRepository) Delete(ctx context.Context, userID, questionID string) error {
	_, err := r.Col.DeleteOne(ctx, bson.M{"_id": activeDocID(userID, questionID)})
	return err
}
