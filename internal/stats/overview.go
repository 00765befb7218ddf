package stats

import (
	"sort"

	"bilgi-quiz-service/internal/domain"
	mstats "github.com/montanaflynn/stats"
)

// LabelAccuracy is one row of the per-category or per-difficulty breakdown.
type LabelAccuracy struct {
	Label    string `json:"label"`
	Total    int    `json:"total"`
	Correct  int    `json:"correct"`
	Accuracy int    `json:"accuracy"`
}

// RecentForm summarises the percentages of the games kept in history.
type RecentForm struct {
	Games  int     `json:"games"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Best   int     `json:"best"`
}

// Overview is the read model behind the statistics screen.
type Overview struct {
	TotalGamesPlayed       int                 `json:"totalGamesPlayed"`
	TotalQuestionsAnswered int                 `json:"totalQuestionsAnswered"`
	CorrectAnswers         int                 `json:"correctAnswers"`
	IncorrectAnswers       int                 `json:"incorrectAnswers"`
	Accuracy               int                 `json:"accuracy"`
	Categories             []LabelAccuracy     `json:"categories"`
	Difficulties           []LabelAccuracy     `json:"difficulties"`
	Recent                 RecentForm          `json:"recent"`
	LastGames              []domain.GameRecord `json:"lastGames"`
}

// Summarize builds the overview for s.
func Summarize(s domain.UserStatistics) Overview {
	s = LoadOrInitialize(&s)
	return Overview{
		TotalGamesPlayed:       s.TotalGamesPlayed,
		TotalQuestionsAnswered: s.TotalQuestionsAnswered,
		CorrectAnswers:         s.CorrectAnswers,
		IncorrectAnswers:       s.IncorrectAnswers,
		Accuracy:               ComputeAccuracy(s.TotalQuestionsAnswered, s.CorrectAnswers),
		Categories:             breakdown(s.CategoryStats),
		Difficulties:           breakdown(s.DifficultyStats),
		Recent:                 recentForm(s.LastGames),
		LastGames:              s.LastGames,
	}
}

func breakdown(tallies map[string]domain.Tally) []LabelAccuracy {
	rows := make([]LabelAccuracy, 0, len(tallies))
	for label, t := range tallies {
		rows = append(rows, LabelAccuracy{
			Label:    label,
			Total:    t.Total,
			Correct:  t.Correct,
			Accuracy: ComputeAccuracy(t.Total, t.Correct),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows
}

func recentForm(games []domain.GameRecord) RecentForm {
	if len(games) == 0 {
		return RecentForm{}
	}
	data := make(mstats.Float64Data, 0, len(games))
	for _, g := range games {
		data = append(data, float64(g.Percentage))
	}
	form := RecentForm{Games: len(games)}
	// errors only occur on empty input, which is excluded above
	mean, _ := data.Mean()
	median, _ := data.Median()
	best, _ := data.Max()
	form.Mean, _ = mstats.Round(mean, 1)
	form.Median = median
	form.Best = int(best)
	return form
}
