package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bilgi-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestQuestionStoreCRUD(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	store := NewQuestionStore(client)

	first, err := store.AddQuestion(ctx, json.RawMessage(`{"question":"a"}`))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := store.AddQuestion(ctx, json.RawMessage(`{"question":"b"}`))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	all, err := store.FetchAllQuestions(ctx)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 2 || all[0].ID != first || all[1].ID != second {
		t.Fatalf("expected insertion order, got %+v", all)
	}

	if err := store.UpdateQuestion(ctx, second, json.RawMessage(`{"question":"c"}`)); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.FetchQuestion(ctx, second)
	if err != nil || string(got.Data) != `{"question":"c"}` {
		t.Fatalf("fetch: %s %v", got.Data, err)
	}
	if err := store.UpdateQuestion(ctx, "missing", json.RawMessage(`{}`)); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.FetchQuestion(ctx, "missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.DeleteQuestions(ctx, []string{first, "missing"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = store.FetchAllQuestions(ctx)
	if len(all) != 1 || all[0].ID != second {
		t.Fatalf("unexpected after delete: %+v", all)
	}
}

func TestQuestionStoreFeed(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	store := NewQuestionStore(client)

	updates := make(chan int, 8)
	unsubscribe, err := store.SubscribeToQuestions(ctx, func(list []domain.RawQuestion, err error) {
		if err != nil {
			t.Errorf("feed error: %v", err)
			return
		}
		updates <- len(list)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	if n := waitLen(t, updates); n != 0 {
		t.Fatalf("expected empty initial list, got %d", n)
	}
	if _, err := store.AddQuestion(ctx, json.RawMessage(`{"question":"a"}`)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if n := waitLen(t, updates); n != 1 {
		t.Fatalf("expected one question after add, got %d", n)
	}

	unsubscribe()
	unsubscribe()
}

func waitLen(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for feed")
		return -1
	}
}
