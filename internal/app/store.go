package app

import (
	"context"
	"encoding/json"

	"bilgi-quiz-service/internal/domain"
)

// QuestionStore is the document store holding question records.
type QuestionStore interface {
	FetchAllQuestions(ctx context.Context) ([]domain.RawQuestion, error)
	// FetchQuestion returns domain.ErrQuestionNotFound for unknown IDs.
	FetchQuestion(ctx context.Context, id string) (domain.RawQuestion, error)
	AddQuestion(ctx context.Context, data json.RawMessage) (string, error)
	// UpdateQuestion returns domain.ErrQuestionNotFound for unknown IDs.
	UpdateQuestion(ctx context.Context, id string, data json.RawMessage) error
	DeleteQuestion(ctx context.Context, id string) error
	DeleteQuestions(ctx context.Context, ids []string) error
}

// QuestionFeed pushes the full question list whenever it changes.
// onChange may be called any number of times, from any goroutine, until the
// returned unsubscribe function is called.
type QuestionFeed interface {
	SubscribeToQuestions(ctx context.Context, onChange func([]domain.RawQuestion, error)) (unsubscribe func(), err error)
}

// StatisticsStore persists one statistics record per user.
type StatisticsStore interface {
	// FetchStatistics returns (nil, nil) when the user has no record yet.
	FetchStatistics(ctx context.Context, userID string) (*domain.UserStatistics, error)
	PersistStatistics(ctx context.Context, userID string, stats domain.UserStatistics) error
}

// AtomicStatisticsStore is implemented by stores that can run a
// read-modify-write of one user's record without losing concurrent updates.
type AtomicStatisticsStore interface {
	StatisticsStore
	UpdateStatistics(ctx context.Context, userID string, fn func(current *domain.UserStatistics) (domain.UserStatistics, error)) (domain.UserStatistics, error)
}

// EventPublisher announces finished games to other services.
type EventPublisher interface {
	PublishGameCompleted(ctx context.Context, event domain.GameCompleted) error
}

// GameSessionRepository keeps games that are being played.
type GameSessionRepository interface {
	Save(session *GameSession)
	Get(gameID string) (*GameSession, bool)
	Delete(gameID string)
}
