package postgres

import (
	"errors"
	"fmt"

	"bilgi-quiz-service/internal/domain"
)

// unavailable marks err as a failure of the backing store. Errors that
// already carry a domain sentinel are only annotated.
func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrQuestionNotFound) || errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
