package postgres

import (
	"context"
	"fmt"
	"log"
	"sync"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Feed pushes the question list every time a NOTIFY arrives on
// ChangesChannel. Each subscription holds one pooled connection in LISTEN.
type Feed struct {
	pool  *pgxpool.Pool
	store app.QuestionStore
}

func NewFeed(pool *pgxpool.Pool, store app.QuestionStore) *Feed {
	return &Feed{pool: pool, store: store}
}

func (f *Feed) SubscribeToQuestions(ctx context.Context, onChange func([]domain.RawQuestion, error)) (func(), error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable("acquire listen connection", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+ChangesChannel); err != nil {
		conn.Release()
		return nil, unavailable("listen "+ChangesChannel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			// a cancelled wait leaves the connection closed; Release drops it from the pool
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}()

		onChange(f.store.FetchAllQuestions(ctx))
		for {
			if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
				if ctx.Err() == nil {
					log.Printf("wait for %s: %v", ChangesChannel, err)
					onChange([]domain.RawQuestion{}, fmt.Errorf("question feed: %w", domain.ErrStoreUnavailable))
				}
				return
			}
			list, err := f.store.FetchAllQuestions(ctx)
			if ctx.Err() != nil {
				return
			}
			onChange(list, err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
