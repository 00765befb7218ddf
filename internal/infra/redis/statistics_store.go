package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/metrics"
	"bilgi-quiz-service/internal/stats"
	"github.com/redis/go-redis/v9"
)

const maxStatisticsRetries = 10

// StatisticsStore keeps one JSON document per user at statistics:{userID}.
type StatisticsStore struct {
	client *redis.Client
}

func NewStatisticsStore(client *redis.Client) *StatisticsStore {
	return &StatisticsStore{client: client}
}

func (s *StatisticsStore) FetchStatistics(ctx context.Context, userID string) (*domain.UserStatistics, error) {
	return readStatistics(ctx, s.client, userID)
}

func (s *StatisticsStore) PersistStatistics(ctx context.Context, userID string, st domain.UserStatistics) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := s.client.Set(ctx, statisticsKey(userID), data, 0).Err(); err != nil {
		return unavailable("redis set statistics", err)
	}
	return nil
}

// UpdateStatistics runs fn inside WATCH/MULTI and retries when another writer
// changed the record first.
func (s *StatisticsStore) UpdateStatistics(ctx context.Context, userID string, fn func(*domain.UserStatistics) (domain.UserStatistics, error)) (domain.UserStatistics, error) {
	key := statisticsKey(userID)
	var (
		next  domain.UserStatistics
		fnErr error
	)

	txf := func(tx *redis.Tx) error {
		fnErr = nil
		current, err := readStatistics(ctx, tx, userID)
		if err != nil {
			return err
		}
		next, fnErr = fn(current)
		if fnErr != nil {
			return fnErr
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode statistics: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxStatisticsRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			metrics.StatisticsConflicts.Inc()
			continue
		}
		if fnErr != nil {
			return domain.UserStatistics{}, fnErr
		}
		return domain.UserStatistics{}, unavailable("redis update statistics", err)
	}
	return domain.UserStatistics{}, fmt.Errorf("statistics for %s: %w", userID, domain.ErrConflict)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readStatistics(ctx context.Context, c getter, userID string) (*domain.UserStatistics, error) {
	data, err := c.Get(ctx, statisticsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("redis get statistics", err)
	}
	st := stats.Decode(data)
	return &st, nil
}

func statisticsKey(userID string) string {
	return "statistics:" + userID
}
