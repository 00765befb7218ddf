package http

import (
	"errors"
	"net/http"

	"bilgi-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func statusFor(err error) int {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOption), errors.Is(err, domain.ErrGameFinished),
		errors.Is(err, domain.ErrGameNotStarted), errors.Is(err, domain.ErrNoQuestions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	payload := errorPayload{Message: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		payload.Field = ve.Field
	}
	c.JSON(statusFor(err), gin.H{"error": payload})
}
