package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/metrics"
	"bilgi-quiz-service/internal/normalize"
)

// QuestionService lists, authors and watches questions. Everything it returns
// is normalized.
type QuestionService struct {
	store QuestionStore
	feed  QuestionFeed
	now   func() time.Time
}

// NewQuestionService builds the service. feed may be nil when the store
// offers no live updates.
func NewQuestionService(store QuestionStore, feed QuestionFeed) *QuestionService {
	return &QuestionService{store: store, feed: feed, now: time.Now}
}

// CategoryCount is a category name with the number of stored questions in it.
type CategoryCount struct {
	Name      string `json:"name"`
	Questions int    `json:"questions"`
}

// List returns the normalized questions that match filter, in store order.
func (s *QuestionService) List(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	raws, err := s.store.FetchAllQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	all := normalize.NormalizeAll(raws)
	out := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if filter.Match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

// Get returns one normalized question.
func (s *QuestionService) Get(ctx context.Context, id string) (domain.Question, error) {
	raw, err := s.store.FetchQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if raw.ID == "" {
		raw.ID = id
	}
	return normalize.Normalize(raw), nil
}

// Categories returns the known categories followed by any other category
// found in the store, each with its question count.
func (s *QuestionService) Categories(ctx context.Context) ([]CategoryCount, error) {
	questions, err := s.List(ctx, domain.QuestionFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, q := range questions {
		counts[q.Category]++
	}

	out := make([]CategoryCount, 0, len(domain.DefaultCategories)+len(counts))
	for _, name := range domain.DefaultCategories {
		out = append(out, CategoryCount{Name: name, Questions: counts[name]})
		delete(counts, name)
	}
	extra := make([]string, 0, len(counts))
	for name := range counts {
		if name != "" {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, CategoryCount{Name: name, Questions: counts[name]})
	}
	return out, nil
}

// Add validates in and stores it as a new structured question.
func (s *QuestionService) Add(ctx context.Context, in domain.QuestionInput) (domain.Question, error) {
	if err := in.Validate(); err != nil {
		return domain.Question{}, err
	}
	q := normalize.FromInput(in)
	q.CreatedAt = s.now().UTC()

	id, err := s.store.AddQuestion(ctx, normalize.Encode(q).Data)
	metrics.QuestionWrites.WithLabelValues("add", metrics.Status(err)).Inc()
	if err != nil {
		return domain.Question{}, fmt.Errorf("add question: %w", err)
	}
	q.ID = id
	return q, nil
}

// Update replaces the question id with in, keeping its creation time.
func (s *QuestionService) Update(ctx context.Context, id string, in domain.QuestionInput) (domain.Question, error) {
	if err := in.Validate(); err != nil {
		return domain.Question{}, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}

	q := normalize.FromInput(in)
	q.ID = id
	q.CreatedAt = existing.CreatedAt
	q.UpdatedAt = s.now().UTC()

	err = s.store.UpdateQuestion(ctx, id, normalize.Encode(q).Data)
	metrics.QuestionWrites.WithLabelValues("update", metrics.Status(err)).Inc()
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question %s: %w", id, err)
	}
	return q, nil
}

// Delete removes one question. Deleting a missing question is not an error.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	err := s.store.DeleteQuestion(ctx, id)
	metrics.QuestionWrites.WithLabelValues("delete", metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("delete question %s: %w", id, err)
	}
	return nil
}

// DeleteMany removes several questions in one store call. Empty IDs are skipped.
func (s *QuestionService) DeleteMany(ctx context.Context, ids []string) (int, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return 0, nil
	}
	err := s.store.DeleteQuestions(ctx, clean)
	metrics.QuestionWrites.WithLabelValues("delete_many", metrics.Status(err)).Inc()
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}
	return len(clean), nil
}

// Seed stores records as new questions, normalizing each one first. With
// reset, every existing question is removed beforehand.
func (s *QuestionService) Seed(ctx context.Context, records []json.RawMessage, reset bool) (int, error) {
	if reset {
		existing, err := s.store.FetchAllQuestions(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetch questions: %w", err)
		}
		ids := make([]string, 0, len(existing))
		for _, raw := range existing {
			ids = append(ids, raw.ID)
		}
		if _, err := s.DeleteMany(ctx, ids); err != nil {
			return 0, err
		}
	}

	now := s.now().UTC()
	added := 0
	for _, rec := range records {
		q, report := normalize.Inspect(domain.RawQuestion{Data: rec})
		if report.Repair != normalize.RepairNone {
			metrics.QuestionsRepaired.WithLabelValues(report.Repair.String()).Inc()
		}
		q.ID = ""
		q.CreatedAt = now
		if _, err := s.store.AddQuestion(ctx, normalize.Encode(q).Data); err != nil {
			return added, fmt.Errorf("seed question %d: %w", added, err)
		}
		added++
	}
	metrics.QuestionWrites.WithLabelValues("seed", "ok").Add(float64(added))
	return added, nil
}

// QuestionsUpdate is one push of the live question list.
type QuestionsUpdate struct {
	Questions []domain.Question
	Err       error
}

// Subscription delivers question list updates until closed. Up to four
// updates are buffered; the oldest is dropped when the buffer is full.
type Subscription struct {
	updates     chan QuestionsUpdate
	unsubscribe func()
	once        sync.Once
	mu          sync.Mutex
	closed      bool
}

// Updates returns the update channel; it is closed by Close.
func (s *Subscription) Updates() <-chan QuestionsUpdate {
	return s.updates
}

// Close stops the subscription. Calling it more than once is safe.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.mu.Lock()
		s.closed = true
		close(s.updates)
		s.mu.Unlock()
		log.Printf("question subscription closed")
	})
}

func (s *Subscription) deliver(update QuestionsUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- update:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- update
	}
}

// Subscribe opens a live view of the question list. The caller must Close
// the returned subscription.
func (s *QuestionService) Subscribe(ctx context.Context) (*Subscription, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("live question updates: %w", domain.ErrStoreUnavailable)
	}
	sub := &Subscription{updates: make(chan QuestionsUpdate, 4)}
	unsubscribe, err := s.feed.SubscribeToQuestions(ctx, func(raws []domain.RawQuestion, err error) {
		if err != nil {
			sub.deliver(QuestionsUpdate{Questions: []domain.Question{}, Err: err})
			return
		}
		sub.deliver(QuestionsUpdate{Questions: normalize.NormalizeAll(raws)})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to questions: %w", err)
	}
	sub.mu.Lock()
	sub.unsubscribe = unsubscribe
	sub.mu.Unlock()
	log.Printf("question subscription opened")
	return sub, nil
}
