package stats

import (
	"time"

	"bilgi-quiz-service/internal/domain"
	"github.com/tidwall/gjson"
)

// Decode reads a stored statistics record field by field. Missing or
// mistyped counters read as 0, malformed tallies and history entries are
// skipped, and a body that is not a JSON object yields the zero state.
func Decode(data []byte) domain.UserStatistics {
	s := New()
	if !gjson.ValidBytes(data) {
		return s
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return s
	}

	s.TotalGamesPlayed = count(doc.Get("totalGamesPlayed"))
	s.TotalQuestionsAnswered = count(doc.Get("totalQuestionsAnswered"))
	s.CorrectAnswers = count(doc.Get("correctAnswers"))
	s.IncorrectAnswers = count(doc.Get("incorrectAnswers"))
	s.CategoryStats = tallies(doc.Get("categoryStats"))
	s.DifficultyStats = tallies(doc.Get("difficultyStats"))
	s.UpdatedAt = timestamp(doc.Get("updatedAt"))

	doc.Get("lastGames").ForEach(func(_, g gjson.Result) bool {
		if g.IsObject() {
			s.LastGames = append(s.LastGames, domain.GameRecord{
				Date:           timestamp(g.Get("date")),
				Score:          count(g.Get("score")),
				TotalQuestions: count(g.Get("totalQuestions")),
				Percentage:     count(g.Get("percentage")),
			})
		}
		return true
	})
	return s
}

// count accepts numbers and numeric strings.
func count(r gjson.Result) int {
	switch r.Type {
	case gjson.Number, gjson.String:
		return int(r.Int())
	default:
		return 0
	}
}

func tallies(r gjson.Result) map[string]domain.Tally {
	out := map[string]domain.Tally{}
	if !r.IsObject() {
		return out
	}
	r.ForEach(func(key, t gjson.Result) bool {
		if t.IsObject() {
			out[key.String()] = domain.Tally{Total: count(t.Get("total")), Correct: count(t.Get("correct"))}
		}
		return true
	})
	return out
}

// timestamp reads RFC 3339 strings and epoch milliseconds.
func timestamp(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.String:
		if t, err := time.Parse(time.RFC3339Nano, r.Str); err == nil {
			return t.UTC()
		}
	case gjson.Number:
		return time.UnixMilli(r.Int()).UTC()
	}
	return time.Time{}
}
