package memory

import (
	"context"
	"encoding/json"
	"sync"

	"bilgi-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Store is an in-memory document store for questions and statistics. It
// implements app.QuestionStore, app.QuestionFeed and app.AtomicStatisticsStore.
type Store struct {
	mu          sync.RWMutex
	order       []string
	questions   map[string]json.RawMessage
	statistics  map[string]domain.UserStatistics
	subscribers map[int]func([]domain.RawQuestion, error)
	nextSub     int
	newID       func() string
}

func NewStore() *Store {
	return &Store{
		questions:   make(map[string]json.RawMessage),
		statistics:  make(map[string]domain.UserStatistics),
		subscribers: make(map[int]func([]domain.RawQuestion, error)),
		newID:       uuid.NewString,
	}
}

// PutRaw stores data under id as-is, replacing any record with that id.
// It is how tests and seeds plant records in historical shapes.
func (s *Store) PutRaw(id string, data json.RawMessage) {
	s.mu.Lock()
	if _, ok := s.questions[id]; !ok {
		s.order = append(s.order, id)
	}
	s.questions[id] = clone(data)
	snapshot, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snapshot)
}

func (s *Store) FetchAllQuestions(_ context.Context) ([]domain.RawQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, _ := s.snapshotLocked()
	return snapshot, nil
}

func (s *Store) FetchQuestion(_ context.Context, id string) (domain.RawQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.questions[id]
	if !ok {
		return domain.RawQuestion{}, domain.ErrQuestionNotFound
	}
	return domain.RawQuestion{ID: id, Data: clone(data)}, nil
}

func (s *Store) AddQuestion(_ context.Context, data json.RawMessage) (string, error) {
	id := s.newID()
	s.mu.Lock()
	s.order = append(s.order, id)
	s.questions[id] = clone(data)
	snapshot, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snapshot)
	return id, nil
}

func (s *Store) UpdateQuestion(_ context.Context, id string, data json.RawMessage) error {
	s.mu.Lock()
	if _, ok := s.questions[id]; !ok {
		s.mu.Unlock()
		return domain.ErrQuestionNotFound
	}
	s.questions[id] = clone(data)
	snapshot, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snapshot)
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.DeleteQuestions(ctx, []string{id})
}

func (s *Store) DeleteQuestions(_ context.Context, ids []string) error {
	s.mu.Lock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.questions[id]; ok {
			drop[id] = true
			delete(s.questions, id)
		}
	}
	if len(drop) == 0 {
		s.mu.Unlock()
		return nil
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	s.order = kept
	snapshot, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, snapshot)
	return nil
}

// SubscribeToQuestions calls onChange with the current list right away and
// again after every write.
func (s *Store) SubscribeToQuestions(_ context.Context, onChange func([]domain.RawQuestion, error)) (func(), error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = onChange
	snapshot, _ := s.snapshotLocked()
	s.mu.Unlock()

	onChange(snapshot, nil)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *Store) FetchStatistics(_ context.Context, userID string) (*domain.UserStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statistics[userID]
	if !ok {
		return nil, nil
	}
	st = copyStatistics(st)
	return &st, nil
}

func (s *Store) PersistStatistics(_ context.Context, userID string, st domain.UserStatistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statistics[userID] = copyStatistics(st)
	return nil
}

// UpdateStatistics runs fn under the store lock.
func (s *Store) UpdateStatistics(_ context.Context, userID string, fn func(*domain.UserStatistics) (domain.UserStatistics, error)) (domain.UserStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current *domain.UserStatistics
	if st, ok := s.statistics[userID]; ok {
		st = copyStatistics(st)
		current = &st
	}
	next, err := fn(current)
	if err != nil {
		return domain.UserStatistics{}, err
	}
	s.statistics[userID] = copyStatistics(next)
	return next, nil
}

func (s *Store) snapshotLocked() ([]domain.RawQuestion, []func([]domain.RawQuestion, error)) {
	out := make([]domain.RawQuestion, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, domain.RawQuestion{ID: id, Data: clone(s.questions[id])})
	}
	subs := make([]func([]domain.RawQuestion, error), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return out, subs
}

func notify(subs []func([]domain.RawQuestion, error), snapshot []domain.RawQuestion) {
	for _, fn := range subs {
		fn(snapshot, nil)
	}
}

func clone(data json.RawMessage) json.RawMessage {
	if data == nil {
		return nil
	}
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}

func copyStatistics(st domain.UserStatistics) domain.UserStatistics {
	out := st
	if st.CategoryStats != nil {
		out.CategoryStats = make(map[string]domain.Tally, len(st.CategoryStats))
		for k, v := range st.CategoryStats {
			out.CategoryStats[k] = v
		}
	}
	if st.DifficultyStats != nil {
		out.DifficultyStats = make(map[string]domain.Tally, len(st.DifficultyStats))
		for k, v := range st.DifficultyStats {
			out.DifficultyStats[k] = v
		}
	}
	if st.LastGames != nil {
		out.LastGames = append([]domain.GameRecord(nil), st.LastGames...)
	}
	return out
}
