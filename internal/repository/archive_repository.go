package repository

import (
	"context"
	"log/slog"
	"time"

	"recap-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArchivedQuestion is one migrated question in a dated archive bucket.
// The archive is append-only history addressed by
// (user, year, month path, day path, question id).
type ArchivedQuestion struct {
	ID         string          `bson:"_id"`
	UserID     string          `bson:"user_id"`
	Year       string          `bson:"year"`
	MonthPath  string          `bson:"month_path"`
	DayPath    string          `bson:"day_path"`
	QuestionID string          `bson:"question_id"`
	Question   models.Question `bson:"question"`
	ArchivedAt time.Time       `bson:"archived_at"`
}

type ArchiveRepository struct {
	client  *mongo.Client
	Col     *mongo.Collection
	Buckets *mongo.Collection
	active  *mongo.Collection
	logger  *slog.Logger
}

func NewArchiveRepository(db *mongo.Database, logger *slog.Logger) *ArchiveRepository {
	return &ArchiveRepository{
		client:  db.Client(),
		Col:     db.Collection("question_archive"),
		Buckets: db.Collection("archive_buckets"),
		active:  db.Collection("user_questions"),
		logger:  logger,
	}
}

func bucketDocID(userID string, date time.Time) string {
	return userID + "/" + DayPath(date)
}

func archiveDocID(userID string, date time.Time, questionID string) string {
	return userID + "/" + DayPath(date) + "/" + questionID
}

// EnsureBucket creates the day's empty marker document if it does not
// exist yet, so subsequent archive writes have a stable parent.
// Idempotent: $setOnInsert with upsert lets concurrent callers race
// safely, the marker is created exactly once and never overwritten.
func (r *ArchiveRepository) EnsureBucket(ctx context.Context, userID string, date time.Time) error {
	_, err := r.Buckets.UpdateOne(ctx,
		bson.M{"_id": bucketDocID(userID, date)},
		bson.M{"$setOnInsert": bson.M{
			"user_id":    userID,
			"year":       YearPath(date),
			"month_path": MonthPath(date),
			"day_path":   DayPath(date),
			"created_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// MoveActiveToArchive copies every record in the user's active set into
// the dated archive and deletes the active copy, as one transaction.
// All-or-nothing: a failure leaves the active set untouched and adds no
// archive documents. Returns the number of questions moved; zero with a
// nil error means there was nothing to move.
func (r *ArchiveRepository) MoveActiveToArchive(ctx context.Context, userID string, date time.Time) (int, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return 0, err
	}
	defer session.EndSession(ctx)

	moved, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		cur, err := r.active.Find(sc, bson.M{"user_id": userID})
		if err != nil {
			return 0, err
		}
		var docs []ActiveQuestion
		if err := cur.All(sc, &docs); err != nil {
			return 0, err
		}
		if len(docs) == 0 {
			return 0, nil
		}

		now := time.Now().UTC()
		archived := make([]interface{}, 0, len(docs))
		for _, doc := range docs {
			doc.Question.ID = doc.QuestionID
			archived = append(archived, ArchivedQuestion{
				ID:         archiveDocID(userID, date, doc.QuestionID),
				UserID:     userID,
				Year:       YearPath(date),
				MonthPath:  MonthPath(date),
				DayPath:    DayPath(date),
				QuestionID: doc.QuestionID,
				Question:   doc.Question,
				ArchivedAt: now,
			})
		}
		if _, err := r.Col.InsertMany(sc, archived); err != nil {
			return 0, err
		}
		if _, err := r.active.DeleteMany(sc, bson.M{"user_id": userID}); err != nil {
			return 0, err
		}
		return len(docs), nil
	})
	if err != nil {
		return 0, err
	}
	return moved.(int), nil
}

// FetchForDate returns the questions archived for the given day, the
// read side of the review fallback.
func (r *ArchiveRepository) FetchForDate(ctx context.Context, userID string, date time.Time) ([]models.Question, error) {
	cur, err := r.Col.Find(ctx, bson.M{"user_id": userID, "day_path": DayPath(date)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var questions []models.Question
	for cur.Next(ctx) {
		var doc ArchivedQuestion
		if err := cur.Decode(&doc); err != nil {
			r.logger.Warn("skipping undecodable archive document", "user_id", userID, "error", err)
			continue
		}
		doc.Question.ID = doc.QuestionID
		questions = append(questions, doc.Question)
	}
	return questions, cur.Err()
}

// AvailableDates lists the archive bucket days that exist for a user.
func (r *ArchiveRepository) AvailableDates(ctx context.Context, userID string) ([]string, error) {
	values, err := r.Buckets.Distinct(ctx, "day_path", bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	days := make([]string, 0, len(values))
	for _, v := range values {
		if day, ok := v.(string); ok {
			days = append(days, day)
		}
	}
	return days, nil
}
