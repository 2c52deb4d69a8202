package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is against these.
var (
	// ErrValidation marks malformed or missing input (title, name, question structure).
	ErrValidation = errors.New("invalid input")
	// ErrNotFound marks an unknown quiz or participant, or a participant with nothing left to answer.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied is returned when the requester's IP is blacklisted.
	ErrAccessDenied = errors.New("access denied")
	// ErrAccessRestricted is returned when a non-empty whitelist does not include the requester's IP.
	ErrAccessRestricted = errors.New("access restricted to whitelisted addresses")
)

var (
	ErrQuizNotFound        = fmt.Errorf("quiz %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	// ErrQuizCompleted is returned when a participant submits past the last question.
	ErrQuizCompleted = fmt.Errorf("no remaining question: %w", ErrNotFound)

	ErrEmptyTitle  = fmt.Errorf("%w: title is required", ErrValidation)
	ErrEmptyName   = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNoQuestions = fmt.Errorf("%w: at least one question is required", ErrValidation)
)
