package chat

import (
	"github.com/pkg/errors"

	"channel-service/internal/repositories"
)

var (
	// ErrUnauthorized means the caller is unknown or not active.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller may not access the channel.
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError rejects input before any store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// notFound maps repository sentinels onto ErrNotFound.
func notFound(err error, what string) error {
	switch {
	case errors.Is(err, repositories.ErrChannelNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrapf(err, "load %s", what)
}
