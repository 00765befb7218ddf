// Package stats folds finished games into a user's running statistics.
package stats

import (
	"math"
	"time"

	"bilgi-quiz-service/internal/domain"
)

// HistoryLimit bounds UserStatistics.LastGames.
const HistoryLimit = 10

// New returns the zero-state statistics record.
func New() domain.UserStatistics {
	return domain.UserStatistics{
		CategoryStats:   map[string]domain.Tally{},
		DifficultyStats: map[string]domain.Tally{},
		LastGames:       []domain.GameRecord{},
	}
}

// LoadOrInitialize returns the zero state when stored is nil and the stored
// record otherwise. Missing maps and history are read as empty.
func LoadOrInitialize(stored *domain.UserStatistics) domain.UserStatistics {
	if stored == nil {
		return New()
	}
	s := *stored
	if s.CategoryStats == nil {
		s.CategoryStats = map[string]domain.Tally{}
	}
	if s.DifficultyStats == nil {
		s.DifficultyStats = map[string]domain.Tally{}
	}
	if s.LastGames == nil {
		s.LastGames = []domain.GameRecord{}
	}
	return s
}

// ComputeAccuracy returns round(100*correct/total), or 0 when total is 0.
func ComputeAccuracy(total, correct int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Aggregator merges game summaries. The clock stamps history entries.
type Aggregator struct {
	now func() time.Time
}

func NewAggregator() *Aggregator {
	return NewAggregatorWithClock(time.Now)
}

// NewAggregatorWithClock is used by tests for deterministic history dates.
func NewAggregatorWithClock(now func() time.Time) *Aggregator {
	return &Aggregator{now: now}
}

// Merge folds summary into current and returns a new record; current is not
// modified. Summaries are trusted to satisfy correct+incorrect == total.
func (a *Aggregator) Merge(current domain.UserStatistics, summary domain.GameSummary) domain.UserStatistics {
	next := domain.UserStatistics{
		TotalGamesPlayed:       current.TotalGamesPlayed + 1,
		TotalQuestionsAnswered: current.TotalQuestionsAnswered + summary.TotalQuestions,
		CorrectAnswers:         current.CorrectAnswers + summary.CorrectAnswers,
		IncorrectAnswers:       current.IncorrectAnswers + summary.IncorrectAnswers,
		CategoryStats:          addTallies(current.CategoryStats, summary.CategoryResults),
		DifficultyStats:        addTallies(current.DifficultyStats, summary.DifficultyResults),
		UpdatedAt:              current.UpdatedAt,
	}

	record := domain.GameRecord{
		Date:           a.now().UTC(),
		Score:          summary.Score,
		TotalQuestions: summary.TotalQuestions,
		Percentage:     ComputeAccuracy(summary.TotalQuestions, summary.Score),
	}

	keep := len(current.LastGames)
	if keep > HistoryLimit-1 {
		keep = HistoryLimit - 1
	}
	next.LastGames = make([]domain.GameRecord, 0, keep+1)
	next.LastGames = append(next.LastGames, record)
	next.LastGames = append(next.LastGames, current.LastGames[:keep]...)
	return next
}

func addTallies(base, delta map[string]domain.Tally) map[string]domain.Tally {
	out := make(map[string]domain.Tally, len(base)+len(delta))
	for label, t := range base {
		out[label] = t
	}
	for label, d := range delta {
		t := out[label]
		t.Total += d.Total
		t.Correct += d.Correct
		out[label] = t
	}
	return out
}
