package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuestionNotFound is returned when a question ID does not exist in the store.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionNotFound is returned when a game session is unknown or already closed.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrNoQuestions indicates a game cannot start because nothing matches.
	ErrNoQuestions = errors.New("no questions available")
	// ErrGameNotStarted is returned when answering a session that has not started.
	ErrGameNotStarted = errors.New("game not started")
	// ErrGameFinished is returned when acting on a finished or abandoned session.
	ErrGameFinished = errors.New("game already finished")
	// ErrInvalidOption indicates a submitted option index is out of range.
	ErrInvalidOption = errors.New("invalid option")
	// ErrStoreUnavailable wraps failures reaching the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict is returned when an optimistic update lost its race too many times.
	ErrConflict = errors.New("concurrent update conflict")
)

// ValidationError reports an authoring payload that fails the question form rules.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
