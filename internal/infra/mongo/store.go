// Package mongo stores question records and statistics in MongoDB.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/metrics"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxStatisticsRetries = 10

// Store keeps each question as {_id, seq, body} where body is the record in
// its stored shape, and each user's statistics as {_id, version, data}.
type Store struct {
	questions  *mongo.Collection
	statistics *mongo.Collection
	counters   *mongo.Collection
	now        func() time.Time
}

type questionDoc struct {
	ID   string `bson:"_id"`
	Seq  int64  `bson:"seq"`
	Body bson.D `bson:"body"`
}

type statisticsDoc struct {
	UserID    string    `bson:"_id"`
	Version   int64     `bson:"version"`
	Data      bson.D    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable("mongo connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable("mongo ping", err)
	}
	return client, nil
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		questions:  db.Collection("questions"),
		statistics: db.Collection("statistics"),
		counters:   db.Collection("counters"),
		now:        time.Now,
	}
}

func (s *Store) FetchAllQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	cur, err := s.questions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, unavailable("find questions", err)
	}
	defer cur.Close(ctx)

	out := []domain.RawQuestion{}
	for cur.Next(ctx) {
		var doc questionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		data, err := toJSON(doc.Body)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", doc.ID, err)
		}
		out = append(out, domain.RawQuestion{ID: doc.ID, Data: data})
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("iterate questions", err)
	}
	return out, nil
}

func (s *Store) FetchQuestion(ctx context.Context, id string) (domain.RawQuestion, error) {
	var doc questionDoc
	err := s.questions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.RawQuestion{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.RawQuestion{}, unavailable("find question "+id, err)
	}
	data, err := toJSON(doc.Body)
	if err != nil {
		return domain.RawQuestion{}, fmt.Errorf("question %s: %w", id, err)
	}
	return domain.RawQuestion{ID: doc.ID, Data: data}, nil
}

func (s *Store) AddQuestion(ctx context.Context, data json.RawMessage) (string, error) {
	body, err := fromJSON(data)
	if err != nil {
		return "", err
	}
	seq, err := s.nextSeq(ctx)
	if err != nil {
		return "", err
	}
	doc := questionDoc{ID: uuid.NewString(), Seq: seq, Body: body}
	if _, err := s.questions.InsertOne(ctx, doc); err != nil {
		return "", unavailable("insert question", err)
	}
	return doc.ID, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, id string, data json.RawMessage) error {
	body, err := fromJSON(data)
	if err != nil {
		return err
	}
	res, err := s.questions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"body": body}})
	if err != nil {
		return unavailable("update question "+id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.DeleteQuestions(ctx, []string{id})
}

func (s *Store) DeleteQuestions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.questions.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return unavailable("delete questions", err)
	}
	return nil
}

// SubscribeToQuestions watches the questions collection with a change stream,
// which needs a replica set or sharded cluster.
func (s *Store) SubscribeToQuestions(ctx context.Context, onChange func([]domain.RawQuestion, error)) (func(), error) {
	stream, err := s.questions.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, unavailable("watch questions", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		onChange(s.FetchAllQuestions(ctx))
		for stream.Next(ctx) {
			list, err := s.FetchAllQuestions(ctx)
			if ctx.Err() != nil {
				return
			}
			onChange(list, err)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("questions change stream: %v", err)
			onChange([]domain.RawQuestion{}, fmt.Errorf("question feed: %w", domain.ErrStoreUnavailable))
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

func (s *Store) FetchStatistics(ctx context.Context, userID string) (*domain.UserStatistics, error) {
	doc, err := s.findStatistics(ctx, userID)
	if err != nil || doc == nil {
		return nil, err
	}
	return decodeStatistics(doc.Data)
}

func (s *Store) PersistStatistics(ctx context.Context, userID string, st domain.UserStatistics) error {
	data, err := encodeStatistics(st)
	if err != nil {
		return err
	}
	_, err = s.statistics.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": bson.M{"data": data, "updatedAt": s.now().UTC()},
			"$inc": bson.M{"version": 1},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return unavailable("upsert statistics for "+userID, err)
	}
	return nil
}

// UpdateStatistics is an optimistic read-modify-write on the version field.
func (s *Store) UpdateStatistics(ctx context.Context, userID string, fn func(*domain.UserStatistics) (domain.UserStatistics, error)) (domain.UserStatistics, error) {
	for i := 0; i < maxStatisticsRetries; i++ {
		doc, err := s.findStatistics(ctx, userID)
		if err != nil {
			return domain.UserStatistics{}, err
		}
		var current *domain.UserStatistics
		if doc != nil {
			if current, err = decodeStatistics(doc.Data); err != nil {
				return domain.UserStatistics{}, err
			}
		}
		next, err := fn(current)
		if err != nil {
			return domain.UserStatistics{}, err
		}
		data, err := encodeStatistics(next)
		if err != nil {
			return domain.UserStatistics{}, err
		}

		ok, err := s.swapStatistics(ctx, userID, doc, data)
		if err != nil {
			return domain.UserStatistics{}, err
		}
		if ok {
			return next, nil
		}
		metrics.StatisticsConflicts.Inc()
	}
	return domain.UserStatistics{}, fmt.Errorf("statistics for %s: %w", userID, domain.ErrConflict)
}

func (s *Store) swapStatistics(ctx context.Context, userID string, prev *statisticsDoc, data bson.D) (bool, error) {
	now := s.now().UTC()
	if prev == nil {
		_, err := s.statistics.InsertOne(ctx, statisticsDoc{UserID: userID, Version: 1, Data: data, UpdatedAt: now})
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		if err != nil {
			return false, unavailable("insert statistics for "+userID, err)
		}
		return true, nil
	}
	res, err := s.statistics.UpdateOne(ctx,
		bson.M{"_id": userID, "version": prev.Version},
		bson.M{
			"$set": bson.M{"data": data, "updatedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, unavailable("update statistics for "+userID, err)
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) findStatistics(ctx context.Context, userID string) (*statisticsDoc, error) {
	var doc statisticsDoc
	err := s.statistics.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find statistics for "+userID, err)
	}
	return &doc, nil
}

func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "questions"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, unavailable("next question seq", err)
	}
	return counter.Seq, nil
}
