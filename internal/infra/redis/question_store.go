package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"bilgi-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	questionsKey     = "questions"
	questionOrderKey = "questions:order"
	questionSeqKey   = "questions:seq"
	questionsChannel = "questions:changed"
)

// QuestionStore keeps question records in Redis.
// Bodies live in HSET questions {id} {json}; insertion order in the sorted set
// questions:order. Every write publishes on questions:changed.
type QuestionStore struct {
	client *redis.Client
}

func NewQuestionStore(client *redis.Client) *QuestionStore {
	return &QuestionStore{client: client}
}

func (s *QuestionStore) FetchAllQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	ids, err := s.client.ZRange(ctx, questionOrderKey, 0, -1).Result()
	if err != nil {
		return nil, unavailable("redis zrange", err)
	}
	if len(ids) == 0 {
		return []domain.RawQuestion{}, nil
	}
	values, err := s.client.HMGet(ctx, questionsKey, ids...).Result()
	if err != nil {
		return nil, unavailable("redis hmget", err)
	}
	out := make([]domain.RawQuestion, 0, len(ids))
	for i, v := range values {
		body, ok := v.(string)
		if !ok {
			// deleted between the two reads
			continue
		}
		out = append(out, domain.RawQuestion{ID: ids[i], Data: json.RawMessage(body)})
	}
	return out, nil
}

func (s *QuestionStore) FetchQuestion(ctx context.Context, id string) (domain.RawQuestion, error) {
	body, err := s.client.HGet(ctx, questionsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return domain.RawQuestion{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.RawQuestion{}, unavailable("redis hget", err)
	}
	return domain.RawQuestion{ID: id, Data: json.RawMessage(body)}, nil
}

func (s *QuestionStore) AddQuestion(ctx context.Context, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	seq, err := s.client.Incr(ctx, questionSeqKey).Result()
	if err != nil {
		return "", unavailable("redis incr", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, questionsKey, id, string(data))
		pipe.ZAdd(ctx, questionOrderKey, redis.Z{Score: float64(seq), Member: id})
		pipe.Publish(ctx, questionsChannel, "add")
		return nil
	})
	if err != nil {
		return "", unavailable("redis add question", err)
	}
	return id, nil
}

func (s *QuestionStore) UpdateQuestion(ctx context.Context, id string, data json.RawMessage) error {
	exists, err := s.client.HExists(ctx, questionsKey, id).Result()
	if err != nil {
		return unavailable("redis hexists", err)
	}
	if !exists {
		return domain.ErrQuestionNotFound
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, questionsKey, id, string(data))
		pipe.Publish(ctx, questionsChannel, "update")
		return nil
	})
	if err != nil {
		return unavailable("redis update question", err)
	}
	return nil
}

func (s *QuestionStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.DeleteQuestions(ctx, []string{id})
}

func (s *QuestionStore) DeleteQuestions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, questionsKey, ids...)
		pipe.ZRem(ctx, questionOrderKey, members...)
		pipe.Publish(ctx, questionsChannel, "delete")
		return nil
	})
	if err != nil {
		return unavailable("redis delete questions", err)
	}
	return nil
}

// SubscribeToQuestions sends the current list, then a fresh list after every
// message on questions:changed, from any instance writing to this Redis.
func (s *QuestionStore) SubscribeToQuestions(ctx context.Context, onChange func([]domain.RawQuestion, error)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, questionsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, unavailable("redis subscribe", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		onChange(s.FetchAllQuestions(ctx))
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				list, err := s.FetchAllQuestions(ctx)
				if ctx.Err() != nil {
					return
				}
				onChange(list, err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				log.Printf("close questions pubsub: %v", err)
			}
			<-done
		})
	}, nil
}
