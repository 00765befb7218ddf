package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/infra/memory"
	redisstore "bilgi-quiz-service/internal/infra/redis"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

type testServer struct {
	*httptest.Server
	store    *memory.Store
	sessions *memory.SessionStore
}

// newTestServer plants n Bilim questions whose first option is correct.
func newTestServer(t *testing.T, n, perGame int, limit time.Duration) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	for i := 0; i < n; i++ {
		store.PutRaw(fmt.Sprintf("q%d", i), json.RawMessage(fmt.Sprintf(
			`{"category":"Bilim","question":"soru %d","options":["doğru","yanlış"],"correctAnswer":"doğru","difficulty":"Orta","explanation":"açıklama"}`, i)))
	}
	sessions := memory.NewSessionStore()
	questions := app.NewQuestionService(store, store)
	statistics := app.NewStatisticsService(store, nil)
	games := app.NewGameService(questions, statistics, sessions, app.GameOptions{
		QuestionsPerGame: perGame,
		TimeLimit:        limit,
		Rand:             rand.New(rand.NewSource(1)),
	})

	srv := httptest.NewServer(NewRouter(questions, statistics, games, RouterOptions{}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func validInput() map[string]any {
	return map[string]any{
		"category":      "Tarih",
		"question":      "İstanbul hangi yıl fethedildi?",
		"options":       []string{"1453", "1071", "1299", "1923"},
		"correctAnswer": "1453",
		"difficulty":    "Kolay",
		"explanation":   "Fatih Sultan Mehmet",
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, 0, 10, time.Minute)
	resp, body := srv.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, 0, 10, time.Minute)
	resp, body := srv.do(t, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status: %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "quiz_active_games") {
		t.Fatalf("expected quiz collectors in metrics output")
	}
}

func TestQuestionCRUD(t *testing.T) {
	srv := newTestServer(t, 2, 10, time.Minute)

	resp, body := srv.do(t, http.MethodPost, "/api/questions", validInput())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", resp.StatusCode, body)
	}
	var created struct {
		ID      string `json:"id"`
		Options []struct {
			Text      string `json:"text"`
			IsCorrect bool   `json:"isCorrect"`
		} `json:"options"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected id on created question")
	}
	if len(created.Options) != 4 || !created.Options[0].IsCorrect || created.Options[1].IsCorrect {
		t.Fatalf("unexpected options: %+v", created.Options)
	}

	update := validInput()
	update["correctAnswer"] = "1071"
	resp, body = srv.do(t, http.MethodPut, "/api/questions/"+created.ID, update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", resp.StatusCode, body)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/questions/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode fetched: %v", err)
	}
	if !created.Options[1].IsCorrect || created.Options[0].IsCorrect {
		t.Fatalf("update not applied: %+v", created.Options)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/questions?category=Tarih", nil)
	var listed []map[string]any
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(listed) != 1 {
		t.Fatalf("expected 1 Tarih question, got %d (status %d)", len(listed), resp.StatusCode)
	}

	resp, _ = srv.do(t, http.MethodDelete, "/api/questions/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp, _ = srv.do(t, http.MethodGet, "/api/questions/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestCreateQuestionValidation(t *testing.T) {
	srv := newTestServer(t, 0, 10, time.Minute)
	in := validInput()
	in["correctAnswer"] = "1500"

	resp, body := srv.do(t, http.MethodPost, "/api/questions", in)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var out struct {
		Error errorPayload `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if out.Error.Field != "correctAnswer" {
		t.Fatalf("expected correctAnswer field, got %+v", out.Error)
	}
}

func TestDeleteManyQuestions(t *testing.T) {
	srv := newTestServer(t, 3, 10, time.Minute)
	resp, body := srv.do(t, http.MethodPost, "/api/questions/delete", map[string]any{"ids": []string{"q0", "", "q2"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete many status %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", out.Deleted)
	}
	_, body = srv.do(t, http.MethodGet, "/api/questions", nil)
	var listed []map[string]any
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0]["id"] != "q1" {
		t.Fatalf("expected only q1 left, got %v", listed)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t, 4, 10, time.Minute)
	_, body := srv.do(t, http.MethodGet, "/api/categories", nil)
	var out []app.CategoryCount
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 9 {
		t.Fatalf("expected the nine default categories, got %d", len(out))
	}
	for _, c := range out {
		if c.Name == "Bilim" && c.Questions != 4 {
			t.Fatalf("expected 4 Bilim questions, got %d", c.Questions)
		}
	}
}

func TestStatisticsEndpoints(t *testing.T) {
	srv := newTestServer(t, 0, 10, time.Minute)

	resp, body := srv.do(t, http.MethodGet, "/api/statistics/u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	var st struct {
		TotalGamesPlayed int `json:"totalGamesPlayed"`
	}
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TotalGamesPlayed != 0 {
		t.Fatalf("expected fresh statistics, got %d games", st.TotalGamesPlayed)
	}

	resp, _ = srv.do(t, http.MethodGet, "/api/statistics/u1/overview", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("overview status %d", resp.StatusCode)
	}
	resp, _ = srv.do(t, http.MethodDelete, "/api/statistics/u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status %d", resp.StatusCode)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/statistics/u1/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "statistics-u1.xlsx") {
		t.Fatalf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
	// xlsx files are zip archives
	if len(body) < 2 || body[0] != 'P' || body[1] != 'K' {
		t.Fatalf("export is not an xlsx archive")
	}
}

func TestStoreOutageMapsToServiceUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	questionStore := redisstore.NewQuestionStore(client)
	questions := app.NewQuestionService(questionStore, questionStore)
	statistics := app.NewStatisticsService(redisstore.NewStatisticsStore(client), nil)
	games := app.NewGameService(questions, statistics, memory.NewSessionStore(), app.GameOptions{QuestionsPerGame: 10})
	srv := httptest.NewServer(NewRouter(questions, statistics, games, RouterOptions{}))
	t.Cleanup(srv.Close)
	ts := &testServer{Server: srv}

	mr.Close()

	for _, path := range []string{"/api/questions", "/api/statistics/u1"} {
		resp, body := ts.do(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("GET %s: expected 503, got %d: %s", path, resp.StatusCode, body)
		}
	}
	resp, _ := ts.do(t, http.MethodPost, "/api/questions", validInput())
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("POST /api/questions: expected 503, got %d", resp.StatusCode)
	}
}
