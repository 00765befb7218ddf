package memory

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const allQuestionsKey = "questions:all"

// QuestionCache keeps the full question list in memory for ttl to avoid
// repeated store reads. Writes go straight to the store and drop the cache.
type QuestionCache struct {
	app.QuestionStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu        sync.RWMutex
	cached    []domain.RawQuestion
	expiresAt time.Time
	gen       uint64
}

func NewQuestionCache(store app.QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		QuestionStore: store,
		ttl:           ttl,
		clock:         time.Now,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FetchAllQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	if list, ok := c.lookup(); ok {
		return list, nil
	}

	result, err, _ := c.sf.Do(allQuestionsKey, func() (interface{}, error) {
		if list, ok := c.lookup(); ok {
			return list, nil
		}
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		list, err := c.QuestionStore.FetchAllQuestions(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// a write during the load makes the result stale
		if gen == c.gen {
			c.cached = list
			c.expiresAt = c.clock().Add(c.ttlWithJitter())
		}
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return copyList(result.([]domain.RawQuestion)), nil
}

func (c *QuestionCache) AddQuestion(ctx context.Context, data json.RawMessage) (string, error) {
	defer c.Invalidate()
	return c.QuestionStore.AddQuestion(ctx, data)
}

func (c *QuestionCache) UpdateQuestion(ctx context.Context, id string, data json.RawMessage) error {
	defer c.Invalidate()
	return c.QuestionStore.UpdateQuestion(ctx, id, data)
}

func (c *QuestionCache) DeleteQuestion(ctx context.Context, id string) error {
	defer c.Invalidate()
	return c.QuestionStore.DeleteQuestion(ctx, id)
}

func (c *QuestionCache) DeleteQuestions(ctx context.Context, ids []string) error {
	defer c.Invalidate()
	return c.QuestionStore.DeleteQuestions(ctx, ids)
}

// Invalidate drops the cached list. Feeds call it when another writer changed the store.
func (c *QuestionCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.expiresAt = time.Time{}
	c.gen++
	c.mu.Unlock()
}

func (c *QuestionCache) lookup() ([]domain.RawQuestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil || !c.expiresAt.After(c.clock()) {
		return nil, false
	}
	return copyList(c.cached), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func copyList(list []domain.RawQuestion) []domain.RawQuestion {
	out := make([]domain.RawQuestion, len(list))
	copy(out, list)
	return out
}
