package stats

import (
	"testing"
	"time"

	"bilgi-quiz-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func summary(score, total int, cats, diffs map[string]domain.Tally) domain.GameSummary {
	return domain.GameSummary{
		Score:             score,
		TotalQuestions:    total,
		CorrectAnswers:    score,
		IncorrectAnswers:  total - score,
		CategoryResults:   cats,
		DifficultyResults: diffs,
	}
}

func TestMergeEndToEndScenario(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregatorWithClock(fixedClock(start))

	got := agg.Merge(LoadOrInitialize(nil), domain.GameSummary{
		Score:            8,
		TotalQuestions:   10,
		CorrectAnswers:   8,
		IncorrectAnswers: 2,
		CategoryResults: map[string]domain.Tally{
			"Bilim": {Total: 5, Correct: 4},
			"Spor":  {Total: 5, Correct: 4},
		},
	})

	assert.Equal(t, 1, got.TotalGamesPlayed)
	assert.Equal(t, 10, got.TotalQuestionsAnswered)
	assert.Equal(t, 8, got.CorrectAnswers)
	assert.Equal(t, 2, got.IncorrectAnswers)
	assert.Equal(t, map[string]domain.Tally{
		"Bilim": {Total: 5, Correct: 4},
		"Spor":  {Total: 5, Correct: 4},
	}, got.CategoryStats)
	assert.Empty(t, got.DifficultyStats)
	require.Len(t, got.LastGames, 1)
	assert.Equal(t, domain.GameRecord{
		Date:           start.Add(time.Minute),
		Score:          8,
		TotalQuestions: 10,
		Percentage:     80,
	}, got.LastGames[0])
}

func TestMergeAdditivity(t *testing.T) {
	agg := NewAggregator()
	current := domain.UserStatistics{
		TotalGamesPlayed:       3,
		TotalQuestionsAnswered: 30,
		CorrectAnswers:         20,
		IncorrectAnswers:       10,
		CategoryStats:          map[string]domain.Tally{"Tarih": {Total: 30, Correct: 20}},
		DifficultyStats:        map[string]domain.Tally{domain.DifficultyEasy: {Total: 30, Correct: 20}},
	}
	s1 := summary(3, 4,
		map[string]domain.Tally{"Tarih": {Total: 2, Correct: 1}, "Spor": {Total: 2, Correct: 2}},
		map[string]domain.Tally{domain.DifficultyEasy: {Total: 4, Correct: 3}})
	s2 := summary(1, 2,
		map[string]domain.Tally{"Spor": {Total: 2, Correct: 1}},
		map[string]domain.Tally{domain.DifficultyHard: {Total: 2, Correct: 1}})

	got := agg.Merge(agg.Merge(current, s1), s2)

	assert.Equal(t, current.TotalGamesPlayed+2, got.TotalGamesPlayed)
	assert.Equal(t, 36, got.TotalQuestionsAnswered)
	assert.Equal(t, 24, got.CorrectAnswers)
	assert.Equal(t, 12, got.IncorrectAnswers)
	assert.Equal(t, map[string]domain.Tally{
		"Tarih": {Total: 32, Correct: 21},
		"Spor":  {Total: 4, Correct: 3},
	}, got.CategoryStats)
	assert.Equal(t, map[string]domain.Tally{
		domain.DifficultyEasy: {Total: 34, Correct: 23},
		domain.DifficultyHard: {Total: 2, Correct: 1},
	}, got.DifficultyStats)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	agg := NewAggregator()
	current := LoadOrInitialize(nil)
	current.CategoryStats["Bilim"] = domain.Tally{Total: 1, Correct: 1}
	current.LastGames = append(current.LastGames, domain.GameRecord{Score: 1, TotalQuestions: 1, Percentage: 100})

	_ = agg.Merge(current, summary(1, 1, map[string]domain.Tally{"Bilim": {Total: 1, Correct: 1}}, nil))

	assert.Equal(t, 0, current.TotalGamesPlayed)
	assert.Equal(t, domain.Tally{Total: 1, Correct: 1}, current.CategoryStats["Bilim"])
	assert.Len(t, current.LastGames, 1)
}

func TestMergeHistoryBound(t *testing.T) {
	agg := NewAggregatorWithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	s := New()
	for i := 1; i <= 15; i++ {
		s = agg.Merge(s, summary(i%11, 10, nil, nil))
	}

	require.Len(t, s.LastGames, HistoryLimit)
	assert.Equal(t, 15%11, s.LastGames[0].Score)
	assert.True(t, s.LastGames[0].Date.After(s.LastGames[1].Date))
	assert.Equal(t, 6%11, s.LastGames[HistoryLimit-1].Score)
	assert.Equal(t, 15, s.TotalGamesPlayed)
}

func TestMergeZeroQuestionGame(t *testing.T) {
	got := NewAggregator().Merge(New(), domain.GameSummary{})

	require.Len(t, got.LastGames, 1)
	assert.Equal(t, 0, got.LastGames[0].Percentage)
	assert.Equal(t, 1, got.TotalGamesPlayed)
}

func TestMergeNilMaps(t *testing.T) {
	got := NewAggregator().Merge(domain.UserStatistics{}, summary(1, 1,
		map[string]domain.Tally{"Kimya": {Total: 1, Correct: 1}}, nil))

	assert.Equal(t, domain.Tally{Total: 1, Correct: 1}, got.CategoryStats["Kimya"])
	assert.NotNil(t, got.DifficultyStats)
}

func TestComputeAccuracy(t *testing.T) {
	tests := []struct {
		total, correct, want int
	}{
		{0, 0, 0},
		{10, 7, 70},
		{3, 1, 33},
		{3, 2, 67},
		{8, 1, 13}, // 12.5 rounds up
		{1, 1, 100},
		{-1, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeAccuracy(tt.total, tt.correct), "%d/%d", tt.correct, tt.total)
	}
}

func TestLoadOrInitialize(t *testing.T) {
	zero := LoadOrInitialize(nil)
	assert.Equal(t, New(), zero)

	stored := &domain.UserStatistics{TotalGamesPlayed: 4}
	got := LoadOrInitialize(stored)
	assert.Equal(t, 4, got.TotalGamesPlayed)
	assert.NotNil(t, got.CategoryStats)
	assert.NotNil(t, got.LastGames)
	assert.Nil(t, stored.CategoryStats)
}
