package models

import (
	"strings"
	"time"
)

// Memory categories. The category decides which quota bucket a question
// competes in during daily selection.
const (
	CategoryImmediate = "immediateMemory"
	CategoryRecent    = "recentMemory"
	CategoryRemote    = "remoteMemory"
)

const (
	SubcategoryGeneral = "general"

	TypeSingleCorrect = "singleCorrect"
)

// Categories lists every valid memory category in canonical order
// (immediate, recent, remote).
var Categories = []string{CategoryImmediate, CategoryRecent, CategoryRemote}

// TimeFrame describes the period a question concerns, e.g. "what did you
// do this week".
type TimeFrame struct {
	From time.Time `bson:"from" json:"from"`
	To   time.Time `bson:"to" json:"to"`
}

type Question struct {
	ID                     string     `bson:"_id,omitempty" json:"id"`
	Text                   string     `bson:"text" json:"text"`
	Category               string     `bson:"category" json:"category"`
	Subcategory            string     `bson:"subcategory" json:"subcategory"`
	Tag                    string     `bson:"tag" json:"tag"`
	AnswerOptions          []string   `bson:"answerOptions" json:"answer_options"`
	Answers                []string   `bson:"answers" json:"answers"`
	CorrectAnswers         []string   `bson:"correctAnswers" json:"correct_answers"`
	Image                  string     `bson:"image,omitempty" json:"image,omitempty"`
	Audio                  string     `bson:"audio,omitempty" json:"audio,omitempty"`
	Hint                   string     `bson:"hint,omitempty" json:"hint,omitempty"`
	IsAnswered             bool       `bson:"isAnswered" json:"is_answered"`
	IsActive               bool       `bson:"isActive" json:"is_active"`
	AskIntervalSeconds     int64      `bson:"askInterval" json:"ask_interval_seconds"`
	TimeFrame              TimeFrame  `bson:"timeFrame" json:"time_frame"`
	Priority               int        `bson:"priority" json:"priority"`
	Hardness               int        `bson:"hardness" json:"hardness"`
	Confidence             *int       `bson:"confidence,omitempty" json:"confidence,omitempty"`
	TimesAsked             int        `bson:"timesAsked" json:"times_asked"`
	TimesAnsweredCorrectly int        `bson:"timesAnsweredCorrectly" json:"times_answered_correctly"`
	LastAsked              *time.Time `bson:"lastAsked,omitempty" json:"last_asked,omitempty"`
	LastAnsweredCorrectly  *time.Time `bson:"lastAnsweredCorrectly,omitempty" json:"last_answered_correctly,omitempty"`
	CreatedAt              time.Time  `bson:"createdAt" json:"created_at"`
	AddedAt                *time.Time `bson:"addedAt,omitempty" json:"added_at,omitempty"`
	QuestionType           string     `bson:"questionType" json:"question_type"`
}

// ValidCategory reports whether s is one of the known memory categories.
func ValidCategory(s string) bool {
	switch s {
	case CategoryImmediate, CategoryRecent, CategoryRemote:
		return true
	}
	return false
}

// Validate checks the fields required before a question may enter any
// user-scoped collection. Category and text are mandatory; everything
// else has a usable zero value.
func (q *Question) Validate() error {
	if !ValidCategory(q.Category) {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(q.Text) == "" {
		return ErrMissingText
	}
	return nil
}

// ApplyDefaults fills the free-form enums the authoring UI may leave blank.
func (q *Question) ApplyDefaults() {
	if q.Subcategory == "" {
		q.Subcategory = SubcategoryGeneral
	}
	if q.QuestionType == "" {
		q.QuestionType = TypeSingleCorrect
	}
}

// AskInterval returns the minimum gap before the question may be re-asked.
func (q *Question) AskInterval() time.Duration {
	return time.Duration(q.AskIntervalSeconds) * time.Second
}

// EligibleAt reports whether the question may be asked at the given time,
// honoring the per-question ask interval. A zero interval or a question
// that was never asked is always eligible.
func (q *Question) EligibleAt(now time.Time) bool {
	if q.AskIntervalSeconds <= 0 || q.LastAsked == nil {
		return true
	}
	return now.Sub(*q.LastAsked) >= q.AskInterval()
}

// IsCorrectAnswer checks a submitted answer against the accepted set.
// Matching is case-insensitive and ignores surrounding whitespace;
// insertion order of the accepted set is irrelevant.
func (q *Question) IsCorrectAnswer(answer string) bool {
	answer = strings.TrimSpace(strings.ToLower(answer))
	for _, accepted := range q.CorrectAnswers {
		if strings.TrimSpace(strings.ToLower(accepted)) == answer {
			return true
		}
	}
	return false
}
