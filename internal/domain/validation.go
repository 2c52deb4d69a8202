package domain

import (
	"fmt"
	"strings"
)

// Normalize checks an authoring request and returns a copy with trimmed title
// and deduplicated, sorted correct indices.
func (d QuizDraft) Normalize() (QuizDraft, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return QuizDraft{}, ErrEmptyTitle
	}
	if len(d.Questions) == 0 {
		return QuizDraft{}, ErrNoQuestions
	}

	questions := make([]Question, len(d.Questions))
	for i, q := range d.Questions {
		normalized, err := normalizeQuestion(q)
		if err != nil {
			return QuizDraft{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions[i] = normalized
	}
	return QuizDraft{Title: title, Questions: questions}, nil
}

func normalizeQuestion(q Question) (Question, error) {
	if strings.TrimSpace(q.Text) == "" {
		return Question{}, fmt.Errorf("%w: missing text", ErrValidation)
	}
	if len(q.Options) == 0 {
		return Question{}, fmt.Errorf("%w: missing options", ErrValidation)
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return Question{}, fmt.Errorf("%w: option %d has no text", ErrValidation, i)
		}
	}
	if len(q.Correct) == 0 {
		return Question{}, fmt.Errorf("%w: missing correct answer", ErrValidation)
	}
	for _, idx := range q.Correct {
		if idx < 0 || idx >= len(q.Options) {
			return Question{}, fmt.Errorf("%w: correct index %d is out of range for %d options", ErrValidation, idx, len(q.Options))
		}
	}

	options := make([]Option, len(q.Options))
	copy(options, q.Options)
	return Question{
		Text:    q.Text,
		Image:   q.Image,
		Options: options,
		Correct: NormalizeSelection(q.Correct, len(q.Options)),
	}, nil
}
