// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GamesRecorded counts games folded into statistics, by result.
	GamesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_games_recorded_total",
			Help: "Finished games merged into user statistics",
		},
		[]string{"status"}, // ok, error
	)

	// GamePercentage observes the score percentage of finished games.
	GamePercentage = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_game_percentage",
			Help:    "Score percentage of finished games",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// QuestionsRepaired counts seeded records whose correct flags were fixed.
	QuestionsRepaired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_questions_repaired_total",
			Help: "Seeded questions whose correct-answer flags were repaired before writing",
		},
		[]string{"repair"},
	)

	// QuestionWrites counts authoring operations.
	QuestionWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_question_writes_total",
			Help: "Question add/update/delete operations",
		},
		[]string{"op", "status"},
	)

	// StatisticsConflicts counts optimistic statistics updates that had to retry.
	StatisticsConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_statistics_conflicts_total",
			Help: "Statistics read-modify-write retries caused by concurrent writers",
		},
	)

	// ActiveGames tracks sessions currently being played.
	ActiveGames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_active_games",
			Help: "Games started and not yet finished or abandoned",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Status maps an error to the status label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
