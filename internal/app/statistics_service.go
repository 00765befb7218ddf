package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/metrics"
	"bilgi-quiz-service/internal/stats"
)

// StatisticsService reads and updates per-user statistics. Merges for the same
// user never interleave within one process.
type StatisticsService struct {
	store     StatisticsStore
	publisher EventPublisher
	agg       *stats.Aggregator
	now       func() time.Time
	locks     *keyedMutex
}

// NewStatisticsService builds the service. publisher may be nil.
func NewStatisticsService(store StatisticsStore, publisher EventPublisher) *StatisticsService {
	return NewStatisticsServiceWithClock(store, publisher, time.Now)
}

// NewStatisticsServiceWithClock is used by tests for deterministic dates.
func NewStatisticsServiceWithClock(store StatisticsStore, publisher EventPublisher, now func() time.Time) *StatisticsService {
	return &StatisticsService{
		store:     store,
		publisher: publisher,
		agg:       stats.NewAggregatorWithClock(now),
		now:       now,
		locks:     newKeyedMutex(),
	}
}

// Get returns the user's statistics. A user without a record gets the zero
// state, which is persisted on this first read.
func (s *StatisticsService) Get(ctx context.Context, userID string) (domain.UserStatistics, error) {
	userID = userOrDefault(userID)
	stored, err := s.store.FetchStatistics(ctx, userID)
	if err != nil {
		return domain.UserStatistics{}, fmt.Errorf("fetch statistics for %s: %w", userID, err)
	}
	current := stats.LoadOrInitialize(stored)
	if stored == nil {
		current.UpdatedAt = s.now().UTC()
		if err := s.store.PersistStatistics(ctx, userID, current); err != nil {
			log.Printf("persist initial statistics for user %s: %v", userID, err)
		}
	}
	return current, nil
}

// Overview returns the derived accuracy and recent-form view of the user's statistics.
func (s *StatisticsService) Overview(ctx context.Context, userID string) (stats.Overview, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return stats.Overview{}, err
	}
	return stats.Summarize(current), nil
}

// Record folds one finished game into the user's statistics and returns the
// new record. The game.completed event is published best-effort afterwards.
func (s *StatisticsService) Record(ctx context.Context, userID, gameID string, summary domain.GameSummary) (domain.UserStatistics, error) {
	userID = userOrDefault(userID)
	unlock := s.locks.Lock(userID)
	defer unlock()

	next, err := s.merge(ctx, userID, summary)
	metrics.GamesRecorded.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		return domain.UserStatistics{}, err
	}

	percentage := stats.ComputeAccuracy(summary.TotalQuestions, summary.Score)
	metrics.GamePercentage.Observe(float64(percentage))
	log.Printf("recorded game %s for user %s: %d/%d", gameID, userID, summary.Score, summary.TotalQuestions)

	if s.publisher != nil {
		event := domain.GameCompleted{
			UserID:     userID,
			GameID:     gameID,
			Summary:    summary,
			Percentage: percentage,
			FinishedAt: s.now().UTC(),
		}
		if err := s.publisher.PublishGameCompleted(ctx, event); err != nil {
			log.Printf("publish game.completed for game %s: %v", gameID, err)
		}
	}
	return next, nil
}

func (s *StatisticsService) merge(ctx context.Context, userID string, summary domain.GameSummary) (domain.UserStatistics, error) {
	if atomic, ok := s.store.(AtomicStatisticsStore); ok {
		next, err := atomic.UpdateStatistics(ctx, userID, func(current *domain.UserStatistics) (domain.UserStatistics, error) {
			next := s.agg.Merge(stats.LoadOrInitialize(current), summary)
			next.UpdatedAt = s.now().UTC()
			return next, nil
		})
		if err != nil {
			return domain.UserStatistics{}, fmt.Errorf("update statistics for %s: %w", userID, err)
		}
		return next, nil
	}

	stored, err := s.store.FetchStatistics(ctx, userID)
	if err != nil {
		return domain.UserStatistics{}, fmt.Errorf("fetch statistics for %s: %w", userID, err)
	}
	next := s.agg.Merge(stats.LoadOrInitialize(stored), summary)
	next.UpdatedAt = s.now().UTC()
	if err := s.store.PersistStatistics(ctx, userID, next); err != nil {
		return domain.UserStatistics{}, fmt.Errorf("persist statistics for %s: %w", userID, err)
	}
	return next, nil
}

// Reset replaces the user's record with the zero state.
func (s *StatisticsService) Reset(ctx context.Context, userID string) (domain.UserStatistics, error) {
	userID = userOrDefault(userID)
	unlock := s.locks.Lock(userID)
	defer unlock()

	zero := stats.New()
	zero.UpdatedAt = s.now().UTC()
	if err := s.store.PersistStatistics(ctx, userID, zero); err != nil {
		return domain.UserStatistics{}, fmt.Errorf("reset statistics for %s: %w", userID, err)
	}
	log.Printf("statistics reset for user %s", userID)
	return zero, nil
}

func userOrDefault(userID string) string {
	if userID == "" {
		return domain.DefaultUserID
	}
	return userID
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
