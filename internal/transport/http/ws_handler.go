package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// timerRetry re-arms the question timer when it fires a little before the deadline.
const timerRetry = 50 * time.Millisecond

type WSHandler struct {
	games     *app.GameService
	questions *app.QuestionService
	upgrader  websocket.Upgrader
}

func NewWSHandler(games *app.GameService, questions *app.QuestionService) *WSHandler {
	return &WSHandler{
		games:     games,
		questions: questions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option *int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServePlay runs one game over a websocket: the server sends "question",
// the client replies with "answer", the server answers with "answerResult"
// and then the next "question" or "finished". Unanswered questions time out
// on the server. Closing the socket early abandons the game.
func (h *WSHandler) ServePlay(c *gin.Context) {
	userID := c.Query("userId")
	category := c.Query("category")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := context.WithoutCancel(c.Request.Context())
	view, err := h.games.Start(ctx, userID, category)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	gameID := view.GameID

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				failed = true
			}
		}
	}()

	inbound := make(chan inboundMessage)
	readerDone := make(chan struct{})
	go func() {
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-readerDone:
				return
			}
		}
	}()

	timer := time.NewTimer(h.timerDuration())
	defer timer.Stop()
	send <- outboundMessage[any]{Type: "question", Payload: view}

	finished := false
loop:
	for !finished {
		var (
			turn app.Turn
			err  error
		)
		select {
		case msg, ok := <-inbound:
			if !ok {
				break loop
			}
			if msg.Type != "answer" {
				send <- errorMessage(errors.New("unsupported message type"))
				continue
			}
			var payload answerPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Option == nil {
				send <- errorMessage(errors.New("invalid answer payload"))
				continue
			}
			turn, err = h.games.Answer(ctx, gameID, *payload.Option)
		case <-timer.C:
			var fired bool
			turn, fired, err = h.games.Timeout(ctx, gameID)
			if err == nil && !fired {
				timer.Reset(timerRetry)
				continue
			}
		}
		if err != nil {
			send <- errorMessage(err)
			if errors.Is(err, domain.ErrSessionNotFound) {
				break loop
			}
			continue
		}
		finished = h.sendTurn(send, turn)
		if !finished {
			resetTimer(timer, h.timerDuration())
		}
	}

	if !finished {
		if err := h.games.Abandon(ctx, gameID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			log.Printf("abandon game %s: %v", gameID, err)
		}
	}
	close(readerDone)
	close(send)
	<-writerDone
}

// sendTurn queues the messages for turn and reports whether the game is over.
func (h *WSHandler) sendTurn(send chan<- outboundMessage[any], turn app.Turn) bool {
	send <- outboundMessage[any]{Type: "answerResult", Payload: turn.Outcome}
	if turn.Result != nil {
		send <- outboundMessage[any]{Type: "finished", Payload: turn.Result}
		return true
	}
	if turn.Next != nil {
		send <- outboundMessage[any]{Type: "question", Payload: turn.Next}
	}
	return false
}

func (h *WSHandler) timerDuration() time.Duration {
	if d := h.games.TimeLimit(); d > 0 {
		return d
	}
	// no limit: park the timer
	return 24 * time.Hour
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// ServeQuestions streams the normalized question list on every change.
func (h *WSHandler) ServeQuestions(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub, err := h.questions.Subscribe(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer sub.Close()

	go func() {
		// the client sends nothing; a read error means it went away
		for {
			if _, _, err := conn.NextReader(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for update := range sub.Updates() {
		msg := outboundMessage[any]{Type: "questions", Payload: update.Questions}
		if update.Err != nil {
			msg = errorMessage(update.Err)
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
