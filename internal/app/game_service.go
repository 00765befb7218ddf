package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/game"
	"bilgi-quiz-service/internal/metrics"
	"bilgi-quiz-service/internal/stats"
	"github.com/google/uuid"
)

const (
	DefaultQuestionsPerGame = 10
	DefaultTimeLimit        = 20 * time.Second
)

// GameOptions tunes GameService. Zero values fall back to the defaults above;
// a negative TimeLimit disables the per-question deadline.
type GameOptions struct {
	QuestionsPerGame int
	TimeLimit        time.Duration
	Now              func() time.Time
	Rand             *rand.Rand
}

// GameSession is a game being played together with its answer deadline.
type GameSession struct {
	mu       sync.Mutex
	session  *game.Session
	deadline time.Time
	done     bool
	// unrecorded is the final outcome of a finished game whose statistics
	// write failed; the next Answer or Timeout retries the write.
	unrecorded *game.Outcome
}

// NewGameSession wraps a session for storage in a GameSessionRepository.
func NewGameSession(session *game.Session) *GameSession {
	return &GameSession{session: session}
}

// ID returns the game ID.
func (g *GameSession) ID() string {
	return g.session.ID()
}

// QuestionView is what a player sees of a question: no correctness flags.
type QuestionView struct {
	GameID     string    `json:"gameId"`
	Index      int       `json:"index"`
	Total      int       `json:"total"`
	QuestionID string    `json:"questionId"`
	Category   string    `json:"category"`
	Difficulty string    `json:"difficulty"`
	Text       string    `json:"question"`
	Options    []string  `json:"options"`
	Score      int       `json:"score"`
	Deadline   time.Time `json:"deadline,omitempty"`
}

// GameResult is returned with the last turn of a game.
type GameResult struct {
	Summary    domain.GameSummary    `json:"summary"`
	Percentage int                   `json:"percentage"`
	Statistics domain.UserStatistics `json:"statistics"`
}

// Turn is the outcome of resolving one question. Exactly one of Next and
// Result is set.
type Turn struct {
	Outcome game.Outcome  `json:"outcome"`
	Next    *QuestionView `json:"next,omitempty"`
	Result  *GameResult   `json:"result,omitempty"`
}

// GameService runs timed games and records finished ones in the player's statistics.
type GameService struct {
	questions *QuestionService
	stats     *StatisticsService
	sessions  GameSessionRepository
	perGame   int
	limit     time.Duration
	now       func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewGameService(questions *QuestionService, statistics *StatisticsService, sessions GameSessionRepository, opts GameOptions) *GameService {
	if opts.QuestionsPerGame <= 0 {
		opts.QuestionsPerGame = DefaultQuestionsPerGame
	}
	if opts.TimeLimit == 0 {
		opts.TimeLimit = DefaultTimeLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &GameService{
		questions: questions,
		stats:     statistics,
		sessions:  sessions,
		perGame:   opts.QuestionsPerGame,
		limit:     opts.TimeLimit,
		now:       opts.Now,
		rnd:       opts.Rand,
	}
}

// TimeLimit is the time a player has for each question; zero or less means no limit.
func (s *GameService) TimeLimit() time.Duration {
	return s.limit
}

// Start picks random questions, optionally from one category, and returns the first one.
func (s *GameService) Start(ctx context.Context, userID, category string) (QuestionView, error) {
	pool, err := s.questions.List(ctx, domain.QuestionFilter{Category: category})
	if err != nil {
		return QuestionView{}, err
	}

	s.rndMu.Lock()
	picked := game.Select(pool, s.perGame, s.rnd)
	s.rndMu.Unlock()

	session := game.NewSession(uuid.NewString(), userOrDefault(userID), picked)
	if err := session.Start(); err != nil {
		return QuestionView{}, err
	}

	g := NewGameSession(session)
	g.mu.Lock()
	defer g.mu.Unlock()
	s.sessions.Save(g)
	metrics.ActiveGames.Inc()
	log.Printf("game %s started for user %s with %d questions", session.ID(), session.UserID(), session.Total())
	return s.view(g)
}

// Current returns the question awaiting an answer.
func (s *GameService) Current(_ context.Context, gameID string) (QuestionView, error) {
	g, err := s.get(gameID)
	if err != nil {
		return QuestionView{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return QuestionView{}, domain.ErrGameFinished
	}
	q, idx, err := g.session.Current()
	if err != nil {
		return QuestionView{}, err
	}
	return buildView(g, q, idx), nil
}

// Answer resolves the current question with option. An answer arriving after
// the deadline counts as a timeout.
func (s *GameService) Answer(ctx context.Context, gameID string, option int) (Turn, error) {
	g, err := s.get(gameID)
	if err != nil {
		return Turn{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return Turn{}, domain.ErrGameFinished
	}
	if g.unrecorded != nil {
		return s.finish(ctx, g, *g.unrecorded)
	}

	var out game.Outcome
	if s.expired(g) {
		out, err = g.session.Timeout()
	} else {
		out, err = g.session.Answer(option)
	}
	if err != nil {
		return Turn{}, err
	}
	return s.advance(ctx, g, out)
}

// Timeout resolves the current question as unanswered if its deadline has
// passed. The bool is false when the deadline is still ahead, which happens
// for timers that fire after the player already answered.
func (s *GameService) Timeout(ctx context.Context, gameID string) (Turn, bool, error) {
	g, err := s.get(gameID)
	if err != nil {
		return Turn{}, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return Turn{}, false, nil
	}
	if g.unrecorded != nil {
		turn, err := s.finish(ctx, g, *g.unrecorded)
		return turn, err == nil, err
	}
	if !s.expired(g) {
		return Turn{}, false, nil
	}
	out, err := g.session.Timeout()
	if err != nil {
		return Turn{}, false, err
	}
	turn, err := s.advance(ctx, g, out)
	return turn, true, err
}

// Abandon ends a game without touching statistics.
func (s *GameService) Abandon(_ context.Context, gameID string) error {
	g, err := s.get(gameID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	g.session.Abandon()
	s.close(g)
	log.Printf("game %s abandoned", gameID)
	return nil
}

func (s *GameService) get(gameID string) (*GameSession, error) {
	g, ok := s.sessions.Get(gameID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return g, nil
}

func (s *GameService) expired(g *GameSession) bool {
	return !g.deadline.IsZero() && !s.now().Before(g.deadline)
}

// advance runs with g.mu held.
func (s *GameService) advance(ctx context.Context, g *GameSession, out game.Outcome) (Turn, error) {
	if out.Finished {
		return s.finish(ctx, g, out)
	}
	next, err := s.view(g)
	if err != nil {
		return Turn{}, err
	}
	return Turn{Outcome: out, Next: &next}, nil
}

// finish records a finished game and closes it. When recording fails the
// session stays open with the outcome kept, so a retry records it once.
// g.mu must be held.
func (s *GameService) finish(ctx context.Context, g *GameSession, out game.Outcome) (Turn, error) {
	summary, err := g.session.Summary()
	if err != nil {
		return Turn{}, err
	}
	updated, err := s.stats.Record(ctx, g.session.UserID(), g.session.ID(), summary)
	if err != nil {
		g.unrecorded = &out
		return Turn{}, fmt.Errorf("record game %s: %w", g.session.ID(), err)
	}
	g.unrecorded = nil
	s.close(g)

	turn := Turn{Outcome: out}
	turn.Result = &GameResult{
		Summary:    summary,
		Percentage: stats.ComputeAccuracy(summary.TotalQuestions, summary.Score),
		Statistics: updated,
	}
	return turn, nil
}

// view resets the deadline for the current question; g.mu must be held.
func (s *GameService) view(g *GameSession) (QuestionView, error) {
	q, idx, err := g.session.Current()
	if err != nil {
		return QuestionView{}, err
	}
	if s.limit > 0 {
		g.deadline = s.now().Add(s.limit)
	}
	return buildView(g, q, idx), nil
}

func (s *GameService) close(g *GameSession) {
	g.done = true
	s.sessions.Delete(g.session.ID())
	metrics.ActiveGames.Dec()
}

func buildView(g *GameSession, q domain.Question, idx int) QuestionView {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = o.Text
	}
	return QuestionView{
		GameID:     g.session.ID(),
		Index:      idx,
		Total:      g.session.Total(),
		QuestionID: q.ID,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Text:       q.Text,
		Options:    opts,
		Score:      g.session.Score(),
		Deadline:   g.deadline,
	}
}
