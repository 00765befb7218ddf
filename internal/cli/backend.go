package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/config"
	"bilgi-quiz-service/internal/infra/memory"
	"bilgi-quiz-service/internal/infra/mongo"
	"bilgi-quiz-service/internal/infra/postgres"
	redisstore "bilgi-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend is the set of stores picked by config.
type backend struct {
	questions  app.QuestionStore
	feed       app.QuestionFeed
	statistics app.StatisticsStore
	sessions   app.GameSessionRepository
	closers    []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Printf("close backend: %v", err)
		}
	}
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, redisClient.Close)
	}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		b.questions, b.feed, b.statistics = store, store, store

	case config.DriverRedis:
		store := redisstore.NewQuestionStore(redisClient)
		b.questions, b.feed = store, store
		b.statistics = redisstore.NewStatisticsStore(redisClient)

	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			b.Close()
			return nil, err
		}
		db := postgres.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, db.Close)
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		store := postgres.NewStore(db)
		b.questions, b.statistics = store, store
		b.feed = postgres.NewFeed(pool, store)

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() error { return client.Disconnect(context.Background()) })
		store := mongo.NewStore(client.Database(cfg.Mongo.Database))
		b.questions, b.feed, b.statistics = store, store, store

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if redisClient != nil {
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		b.sessions = redisstore.NewSessionStore(redisClient, ttl)
	} else {
		b.sessions = memory.NewSessionStore()
	}
	log.Printf("using %s store", cfg.Store.Driver)
	return b, nil
}
