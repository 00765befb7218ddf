package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/infra/memory"
	"bilgi-quiz-service/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() domain.QuestionInput {
	return domain.QuestionInput{
		Category:      "Bilim",
		Question:      "Suyun kimyasal formülü nedir?",
		Options:       []string{"H2O", "CO2", "O2", "NaCl"},
		CorrectAnswer: "H2O",
		Difficulty:    domain.DifficultyEasy,
		Explanation:   "İki hidrojen, bir oksijen.",
	}
}

func TestQuestionServiceListNormalizesAndFilters(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutRaw("legacy", json.RawMessage(`{"category":"Spor","question":"Kaç oyuncu?","options":["9","11"],"correctAnswer":"11"}`))
	store.PutRaw("structured", json.RawMessage(`{"category":"Tarih","question":"İstanbul'un fethi?","options":[{"text":"1453","isCorrect":true},{"text":"1071","isCorrect":false}],"difficulty":"Zor"}`))
	store.PutRaw("broken", json.RawMessage(`{"category":"Spor","question":"Hangi top?","options":[{"text":"a"},{"text":"b"}]}`))
	svc := app.NewQuestionService(store, store)

	all, err := svc.List(ctx, domain.QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "legacy", all[0].ID)
	assert.Equal(t, 1, all[0].CorrectIndex())
	assert.Equal(t, domain.DifficultyEasy, all[0].Difficulty)
	assert.Equal(t, 0, all[2].CorrectIndex())

	spor, err := svc.List(ctx, domain.QuestionFilter{Category: "Spor", Search: "TOP"})
	require.NoError(t, err)
	require.Len(t, spor, 1)
	assert.Equal(t, "broken", spor[0].ID)

	hard, err := svc.List(ctx, domain.QuestionFilter{Difficulty: domain.DifficultyHard})
	require.NoError(t, err)
	require.Len(t, hard, 1)
	assert.Equal(t, "structured", hard[0].ID)
}

func TestQuestionServiceAddValidates(t *testing.T) {
	svc := app.NewQuestionService(memory.NewStore(), nil)

	in := validInput()
	in.Explanation = ""
	_, err := svc.Add(context.Background(), in)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestQuestionServiceAddUpdateGet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := app.NewQuestionService(store, nil)

	added, err := svc.Add(ctx, validInput())
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)
	assert.False(t, added.CreatedAt.IsZero())
	assert.Equal(t, 0, added.CorrectIndex())

	got, err := svc.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.Text, got.Text)
	assert.True(t, got.CreatedAt.Equal(added.CreatedAt))

	in := validInput()
	in.CorrectAnswer = "CO2"
	updated, err := svc.Update(ctx, added.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CorrectIndex())
	assert.True(t, updated.CreatedAt.Equal(added.CreatedAt))
	assert.False(t, updated.UpdatedAt.IsZero())

	got, err = svc.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CorrectIndex())

	_, err = svc.Update(ctx, "missing", validInput())
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestQuestionServiceDeleteManySkipsEmptyIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutRaw("a", json.RawMessage(`{}`))
	store.PutRaw("b", json.RawMessage(`{}`))
	store.PutRaw("c", json.RawMessage(`{}`))
	svc := app.NewQuestionService(store, nil)

	n, err := svc.DeleteMany(ctx, []string{"a", "", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.DeleteMany(ctx, []string{"", ""})
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.Delete(ctx, "b"))
	require.NoError(t, svc.Delete(ctx, ""))

	left, err := svc.List(ctx, domain.QuestionFilter{})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestQuestionServiceCategories(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutRaw("1", json.RawMessage(`{"category":"Spor"}`))
	store.PutRaw("2", json.RawMessage(`{"category":"Spor"}`))
	store.PutRaw("3", json.RawMessage(`{"category":"Müzik"}`))
	store.PutRaw("4", json.RawMessage(`{}`))
	svc := app.NewQuestionService(store, nil)

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, len(domain.DefaultCategories)+1)
	for _, c := range cats {
		if c.Name == "Spor" {
			assert.Equal(t, 2, c.Questions)
		}
	}
	assert.Equal(t, app.CategoryCount{Name: "Müzik", Questions: 1}, cats[len(cats)-1])
}

func TestQuestionServiceSeed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutRaw("old", json.RawMessage(`{"question":"old"}`))
	svc := app.NewQuestionService(store, nil)

	records := []json.RawMessage{
		json.RawMessage(`{"question":"q1","options":["a","b"],"correctAnswer":"b","difficulty":2}`),
		json.RawMessage(`{"question":"q2","options":[{"text":"x","isCorrect":true},{"text":"y"}]}`),
	}
	n, err := svc.Seed(ctx, records, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := svc.List(ctx, domain.QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "q1", all[0].Text)
	assert.Equal(t, domain.DifficultyMedium, all[0].Difficulty)
	assert.Equal(t, 1, all[0].CorrectIndex())

	n, err = svc.Seed(ctx, records[:1], false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	all, _ = svc.List(ctx, domain.QuestionFilter{})
	assert.Len(t, all, 3)
}

func TestQuestionServiceCountsRepairsOnlyWhenSeeding(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutRaw("broken", json.RawMessage(`{"question":"kayıtlı","options":[{"text":"a"},{"text":"b"}]}`))
	svc := app.NewQuestionService(store, nil)
	noCorrect := metrics.QuestionsRepaired.WithLabelValues("no_correct")

	before := testutil.ToFloat64(noCorrect)
	for i := 0; i < 2; i++ {
		_, err := svc.List(ctx, domain.QuestionFilter{})
		require.NoError(t, err)
	}
	assert.Equal(t, before, testutil.ToFloat64(noCorrect))

	_, err := svc.Seed(ctx, []json.RawMessage{
		json.RawMessage(`{"question":"yeni","options":[{"text":"x"},{"text":"y"}]}`),
		json.RawMessage(`{"question":"sağlam","options":["x","y"],"correctAnswer":"x"}`),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(noCorrect))
}

func TestQuestionServiceSubscribe(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := app.NewQuestionService(store, store)

	sub, err := svc.Subscribe(ctx)
	require.NoError(t, err)

	first := receive(t, sub)
	assert.Empty(t, first.Questions)

	_, err = svc.Add(ctx, validInput())
	require.NoError(t, err)
	second := receive(t, sub)
	require.NoError(t, second.Err)
	require.Len(t, second.Questions, 1)
	assert.Equal(t, "H2O", second.Questions[0].Options[0].Text)

	sub.Close()
	sub.Close()
	_, ok := <-sub.Updates()
	assert.False(t, ok)

	_, err = svc.Add(ctx, validInput())
	require.NoError(t, err)
}

func TestQuestionServiceSubscribeWithoutFeed(t *testing.T) {
	svc := app.NewQuestionService(memory.NewStore(), nil)
	_, err := svc.Subscribe(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func receive(t *testing.T, sub *app.Subscription) app.QuestionsUpdate {
	t.Helper()
	select {
	case u := <-sub.Updates():
		return u
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
		return app.QuestionsUpdate{}
	}
}
