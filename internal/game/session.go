// Package game tracks one quiz play-through from first question to summary.
package game

import (
	"math/rand"

	"bilgi-quiz-service/internal/domain"
)

// State of a game session.
type State int

const (
	NotStarted State = iota
	InProgress
	Finished
	Abandoned
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	case Abandoned:
		return "abandoned"
	default:
		return "not_started"
	}
}

// UnlabeledGroup is the statistics key for questions with no category.
const UnlabeledGroup = "Karışık"

// Outcome describes the resolution of one question.
type Outcome struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      int    `json:"selected"` // -1 when the timer ran out
	Correct       bool   `json:"correct"`
	CorrectIndex  int    `json:"correctIndex"`
	Explanation   string `json:"explanation"`
	TimedOut      bool   `json:"timedOut"`
	Score         int    `json:"score"`
	Finished      bool   `json:"finished"`
}

// Session is a single game. It is not safe for concurrent use.
type Session struct {
	id        string
	userID    string
	questions []domain.Question
	results   []bool
	state     State
	index     int
	score     int
}

// NewSession prepares a game over questions in the given order.
func NewSession(id, userID string, questions []domain.Question) *Session {
	return &Session{
		id:        id,
		userID:    userID,
		questions: questions,
		results:   make([]bool, 0, len(questions)),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) State() State   { return s.state }
func (s *Session) Score() int     { return s.score }
func (s *Session) Total() int     { return len(s.questions) }

// Start moves a new session into play.
func (s *Session) Start() error {
	switch s.state {
	case InProgress:
		return nil
	case Finished, Abandoned:
		return domain.ErrGameFinished
	}
	if len(s.questions) == 0 {
		return domain.ErrNoQuestions
	}
	s.state = InProgress
	return nil
}

// Current returns the question awaiting an answer and its index.
func (s *Session) Current() (domain.Question, int, error) {
	if err := s.playable(); err != nil {
		return domain.Question{}, 0, err
	}
	return s.questions[s.index], s.index, nil
}

// Answer records the option chosen for the current question.
func (s *Session) Answer(option int) (Outcome, error) {
	if err := s.playable(); err != nil {
		return Outcome{}, err
	}
	q := s.questions[s.index]
	if option < 0 || option >= len(q.Options) {
		return Outcome{}, domain.ErrInvalidOption
	}
	return s.resolve(option, q.Options[option].IsCorrect), nil
}

// Timeout resolves the current question as incorrect.
func (s *Session) Timeout() (Outcome, error) {
	if err := s.playable(); err != nil {
		return Outcome{}, err
	}
	return s.resolve(-1, false), nil
}

// Abandon ends the session without a summary. Finished sessions stay finished.
func (s *Session) Abandon() {
	if s.state != Finished {
		s.state = Abandoned
	}
}

// Summary returns the game outcome once the session has finished.
func (s *Session) Summary() (domain.GameSummary, error) {
	if s.state != Finished {
		if s.state == Abandoned {
			return domain.GameSummary{}, domain.ErrGameFinished
		}
		return domain.GameSummary{}, domain.ErrGameNotStarted
	}
	sum := domain.GameSummary{
		Score:             s.score,
		TotalQuestions:    len(s.results),
		CategoryResults:   map[string]domain.Tally{},
		DifficultyResults: map[string]domain.Tally{},
	}
	for i, correct := range s.results {
		q := s.questions[i]
		category := q.Category
		if category == "" {
			category = UnlabeledGroup
		}
		difficulty := q.Difficulty
		if difficulty == "" {
			difficulty = UnlabeledGroup
		}
		bump(sum.CategoryResults, category, correct)
		bump(sum.DifficultyResults, difficulty, correct)
		if correct {
			sum.CorrectAnswers++
		} else {
			sum.IncorrectAnswers++
		}
	}
	return sum, nil
}

func (s *Session) playable() error {
	switch s.state {
	case NotStarted:
		return domain.ErrGameNotStarted
	case Finished, Abandoned:
		return domain.ErrGameFinished
	}
	return nil
}

func (s *Session) resolve(selected int, correct bool) Outcome {
	q := s.questions[s.index]
	if correct {
		s.score++
	}
	s.results = append(s.results, correct)

	out := Outcome{
		QuestionIndex: s.index,
		Selected:      selected,
		Correct:       correct,
		CorrectIndex:  q.CorrectIndex(),
		Explanation:   q.Explanation,
		TimedOut:      selected < 0,
		Score:         s.score,
	}
	if s.index >= len(s.questions)-1 {
		s.state = Finished
		out.Finished = true
	} else {
		s.index++
	}
	return out
}

func bump(m map[string]domain.Tally, label string, correct bool) {
	t := m[label]
	t.Total++
	if correct {
		t.Correct++
	}
	m[label] = t
}

// Select returns up to n questions in random order. The input is not modified.
func Select(questions []domain.Question, n int, rnd *rand.Rand) []domain.Question {
	picked := make([]domain.Question, len(questions))
	copy(picked, questions)
	rnd.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if n > 0 && n < len(picked) {
		picked = picked[:n]
	}
	return picked
}
