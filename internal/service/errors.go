package service

import (
	"errors"

	"github.com/shinyyama/support-chat/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConversationClosed = errors.New("conversation is closed")
)

// Outcome classifies the result of a service call for the transport layer.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeForbidden
	OutcomeInvalid
	OutcomeConflict
	OutcomeInternal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeInvalid:
		return "bad_request"
	case OutcomeConflict:
		return "conflict"
	default:
		return "internal_error"
	}
}

// OutcomeOf maps err, including wrapped sentinels, to an Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound), repository.IsNotFound(err):
		return OutcomeNotFound
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, ErrConversationClosed), errors.Is(err, repository.ErrConversationClosed):
		return OutcomeConflict
	default:
		return OutcomeInternal
	}
}
