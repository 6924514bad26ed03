package models

import "time"

// AnswerSubmission records a single answer a patient submitted against an
// active-set question. Family members read these when verifying answers
// and reviewing progress.
type AnswerSubmission struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	QuestionID  string    `bson:"question_id" json:"question_id"`
	UserAnswer  string    `bson:"user_answer" json:"user_answer"`
	IsCorrect   bool      `bson:"is_correct" json:"is_correct"`
	Category    string    `bson:"category" json:"category"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
}

// DailyProgress summarizes a user's day: how many of the served questions
// have been answered, split by memory category.
type DailyProgress struct {
	Date       string         `json:"date"`
	Total      int            `json:"total"`
	Answered   int            `json:"answered"`
	Correct    int            `json:"correct"`
	ByCategory map[string]int `json:"by_category"`
}
