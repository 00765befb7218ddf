package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Difficulty labels used as grouping keys in statistics.
const (
	DifficultyEasy   = "Kolay"
	DifficultyMedium = "Orta"
	DifficultyHard   = "Zor"
)

// DefaultUserID is the identity used when a client does not name one.
const DefaultUserID = "default"

// DefaultCategories is the category set offered to players and authors.
var DefaultCategories = []string{
	"Coğrafya", "Kimya", "Bilim", "Günlük", "Spor", "Tarih", "Atasözleri", "Oyunlar", "Yeşilçam",
}

// Difficulties lists the difficulty labels from easiest to hardest.
var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Option is one answer choice of a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is the canonical question shape. Exactly one option is correct.
type Question struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Text        string    `json:"question"`
	Options     []Option  `json:"options"`
	Difficulty  string    `json:"difficulty"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CorrectIndex returns the index of the correct option, or -1.
func (q Question) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// RawQuestion is a stored question record in whatever shape it was written.
// ID is the store key; Data is the record body.
type RawQuestion struct {
	ID   string
	Data json.RawMessage
}

// QuestionFilter narrows a question list. Empty fields match everything.
type QuestionFilter struct {
	Search     string
	Category   string
	Difficulty string
}

// Match reports whether q passes the filter. Search is a case-insensitive
// substring match on the question text.
func (f QuestionFilter) Match(q Question) bool {
	if f.Category != "" && q.Category != f.Category {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	search := strings.TrimSpace(f.Search)
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(q.Text), strings.ToLower(search))
}

// QuestionInput is the authoring payload for adding or editing a question.
type QuestionInput struct {
	Category      string   `json:"category"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Difficulty    string   `json:"difficulty"`
	Explanation   string   `json:"explanation"`
}

// Validate applies the authoring form rules.
func (in QuestionInput) Validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if strings.TrimSpace(in.Question) == "" {
		return &ValidationError{Field: "question", Reason: "required"}
	}
	if len(in.Options) < 2 {
		return &ValidationError{Field: "options", Reason: "at least two options required"}
	}
	for _, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			return &ValidationError{Field: "options", Reason: "every option needs text"}
		}
	}
	if in.CorrectAnswer == "" {
		return &ValidationError{Field: "correctAnswer", Reason: "required"}
	}
	found := false
	for _, opt := range in.Options {
		if opt == in.CorrectAnswer {
			found = true
			break
		}
	}
	if !found {
		return &ValidationError{Field: "correctAnswer", Reason: "must match one of the options"}
	}
	if strings.TrimSpace(in.Explanation) == "" {
		return &ValidationError{Field: "explanation", Reason: "required"}
	}
	return nil
}
