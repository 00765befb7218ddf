package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/config"
	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/infra/memory"
	"bilgi-quiz-service/internal/infra/rabbitmq"
	transport "bilgi-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, origins)
		},
	}
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins (default any)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string, origins []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	questionStore := b.questions
	if ttl := config.TTLDuration(cfg.Quiz.CacheTTL, 0); ttl > 0 {
		cache := memory.NewQuestionCache(b.questions, ttl)
		questionStore = cache
		// writes from other instances arrive through the feed
		if b.feed != nil {
			unsubscribe, err := b.feed.SubscribeToQuestions(ctx, func([]domain.RawQuestion, error) {
				cache.Invalidate()
			})
			if err != nil {
				log.Printf("question cache runs without invalidation feed: %v", err)
			} else {
				defer unsubscribe()
			}
		}
	}

	var publisher app.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	} else {
		log.Println("RabbitMQ not configured, game.completed events will not be published")
	}

	questions := app.NewQuestionService(questionStore, b.feed)
	statistics := app.NewStatisticsService(b.statistics, publisher)
	games := app.NewGameService(questions, statistics, b.sessions, app.GameOptions{
		QuestionsPerGame: cfg.Quiz.QuestionsPerGame,
		TimeLimit:        config.TTLDuration(cfg.Quiz.QuestionTimeLimit, app.DefaultTimeLimit),
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(questions, statistics, games, transport.RouterOptions{AllowOrigins: origins}),
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
