package http

import (
	"net/http"
	"time"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins []string
}

// NewRouter mounts the REST API, the websocket endpoints, /healthz and /metrics.
func NewRouter(questions *app.QuestionService, statistics *app.StatisticsService, games *app.GameService, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	qh := NewQuestionHandler(questions)
	sh := NewStatisticsHandler(statistics)
	ws := NewWSHandler(games, questions)

	api := r.Group("/api")
	{
		api.GET("/questions", qh.List)
		api.POST("/questions", qh.Create)
		api.POST("/questions/delete", qh.DeleteMany)
		api.GET("/questions/:id", qh.Get)
		api.PUT("/questions/:id", qh.Update)
		api.DELETE("/questions/:id", qh.Delete)
		api.GET("/categories", qh.Categories)

		api.GET("/statistics/:userId", sh.Get)
		api.DELETE("/statistics/:userId", sh.Reset)
		api.GET("/statistics/:userId/overview", sh.Overview)
		api.GET("/statistics/:userId/export", sh.Export)
	}

	r.GET("/ws/play", ws.ServePlay)
	r.GET("/ws/questions", ws.ServeQuestions)
	return r
}
