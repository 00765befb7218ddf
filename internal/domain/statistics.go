package domain

import "time"

// Tally counts answered and correctly answered questions for one label.
type Tally struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// GameSummary is the outcome of one finished game.
// CorrectAnswers + IncorrectAnswers must equal TotalQuestions; callers own that.
type GameSummary struct {
	Score             int              `json:"score"`
	TotalQuestions    int              `json:"totalQuestions"`
	CorrectAnswers    int              `json:"correctAnswers"`
	IncorrectAnswers  int              `json:"incorrectAnswers"`
	CategoryResults   map[string]Tally `json:"categoryResults"`
	DifficultyResults map[string]Tally `json:"difficultyResults"`
}

// GameRecord is one entry of the recent-games history.
type GameRecord struct {
	Date           time.Time `json:"date"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
}

// UserStatistics is the persistent running tally for one user.
type UserStatistics struct {
	TotalGamesPlayed       int              `json:"totalGamesPlayed"`
	TotalQuestionsAnswered int              `json:"totalQuestionsAnswered"`
	CorrectAnswers         int              `json:"correctAnswers"`
	IncorrectAnswers       int              `json:"incorrectAnswers"`
	CategoryStats          map[string]Tally `json:"categoryStats"`
	DifficultyStats        map[string]Tally `json:"difficultyStats"`
	LastGames              []GameRecord     `json:"lastGames"`
	UpdatedAt              time.Time        `json:"updatedAt,omitempty"`
}

// GameCompleted is published after a game has been folded into statistics.
type GameCompleted struct {
	UserID     string      `json:"userId"`
	GameID     string      `json:"gameId"`
	Summary    GameSummary `json:"summary"`
	Percentage int         `json:"percentage"`
	FinishedAt time.Time   `json:"finishedAt"`
}
