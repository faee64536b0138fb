package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/betslipai/backend/internal/llm"
)

// Kind classifies a pipeline failure for the client.
type Kind string

const (
	KindAuthenticationRequired       Kind = "AuthenticationRequired"
	KindInvalidInput                 Kind = "InvalidInput"
	KindInsufficientCredits          Kind = "InsufficientCredits"
	KindNoFixturesAvailable          Kind = "NoFixturesAvailable"
	KindNoFutureFixtures             Kind = "NoFutureFixtures"
	KindGenerationServiceUnavailable Kind = "GenerationServiceUnavailable"
	KindInvalidGenerationOutput      Kind = "InvalidGenerationOutput"
	KindUnexpectedOutputStructure    Kind = "UnexpectedOutputStructure"
	KindInternalError                Kind = "InternalError"
)

var (
	ErrAuthenticationRequired    = errors.New("authentication required")
	ErrInvalidInput              = errors.New("invalid input")
	ErrInsufficientCredits       = errors.New("insufficient credits")
	ErrNoFixturesAvailable       = errors.New("no fixtures available")
	ErrNoFutureFixtures          = errors.New("no upcoming fixtures")
	ErrInvalidGenerationOutput   = errors.New("generation output is not valid JSON")
	ErrUnexpectedOutputStructure = errors.New("generation output has no betslips")
	ErrInternal                  = errors.New("internal error")
)

// InsufficientCreditsError carries the balance seen at denial time.
type InsufficientCreditsError struct {
	Balance  int
	Required int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d, required %d", e.Balance, e.Required)
}

func (e *InsufficientCreditsError) Is(target error) bool { return target == ErrInsufficientCredits }

// KindOf maps any error to its client-facing kind. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthenticationRequired):
		return KindAuthenticationRequired
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return KindInvalidInput
	case errors.Is(err, ErrInsufficientCredits):
		return KindInsufficientCredits
	case errors.Is(err, ErrNoFixturesAvailable):
		return KindNoFixturesAvailable
	case errors.Is(err, ErrNoFutureFixtures):
		return KindNoFutureFixtures
	case errors.Is(err, llm.ErrUnavailable):
		return KindGenerationServiceUnavailable
	case errors.Is(err, ErrInvalidGenerationOutput):
		return KindInvalidGenerationOutput
	case errors.Is(err, ErrUnexpectedOutputStructure):
		return KindUnexpectedOutputStructure
	default:
		return KindInternalError
	}
}

// HTTPStatus returns the response status for a kind.
func HTTPStatus(k Kind) int {
	switch k {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInsufficientCredits:
		return http.StatusForbidden
	case KindNoFixturesAvailable, KindNoFutureFixtures:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the only text a client sees for a failure.
func userMessage(k Kind) string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication required"
	case KindInvalidInput:
		return "targetOdd must be a number greater than 1"
	case KindInsufficientCredits:
		return "insufficient credits"
	case KindNoFixturesAvailable:
		return "no fixtures available"
	case KindNoFutureFixtures:
		return "no upcoming fixtures available"
	case KindGenerationServiceUnavailable:
		return "betslip generation is temporarily unavailable"
	case KindInvalidGenerationOutput:
		return "generated output could not be read"
	case KindUnexpectedOutputStructure:
		return "generated output had an unexpected shape"
	default:
		return "internal error"
	}
}
