package accesslevel

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNoAccessLevel is returned when a token grants no access level at all.
var ErrNoAccessLevel = errors.New("no access level granted")

// Choice is the outcome of an access level prompt: either a chosen level or a
// dismissal without a choice.
type Choice struct {
	Level     Level
	Dismissed bool
}

// Chosen returns a Choice for the given level.
func Chosen(level Level) Choice { return Choice{Level: level} }

// Dismissed returns a Choice representing a prompt closed without a pick.
func Dismissed() Choice { return Choice{Dismissed: true} }

// Prompt asks the user to pick one of several access levels. Implementations may
// block on user input for as long as ctx allows.
type Prompt interface {
	RequestAccessLevelChoice(ctx context.Context, candidates Set) (Choice, error)
}

// PromptFunc adapts a function to the Prompt interface.
type PromptFunc func(ctx context.Context, candidates Set) (Choice, error)

func (f PromptFunc) RequestAccessLevelChoice(ctx context.Context, candidates Set) (Choice, error) {
	return f(ctx, candidates)
}

// DismissPrompt never asks; every request is dismissed so the default applies.
type DismissPrompt struct{}

func (DismissPrompt) RequestAccessLevelChoice(context.Context, Set) (Choice, error) {
	return Dismissed(), nil
}

// Selector resolves which of a login's access levels becomes current.
type Selector struct {
	prompt Prompt
	logger zerolog.Logger
}

type SelectorOption func(*Selector)

func WithSelectorLogger(logger zerolog.Logger) SelectorOption {
	return func(s *Selector) {
		s.logger = logger
	}
}

// NewSelector creates a Selector. A nil prompt behaves as DismissPrompt.
func NewSelector(prompt Prompt, options ...SelectorOption) *Selector {
	if prompt == nil {
		prompt = DismissPrompt{}
	}
	s := &Selector{prompt: prompt, logger: log.Logger}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Resolve returns exactly one level out of levels. A single level is returned
// without prompting; several levels cause exactly one prompt request. A dismissed
// prompt, or a pick that is not a candidate, falls back to levels.First().
func (s *Selector) Resolve(ctx context.Context, levels Set) (Level, error) {
	switch len(levels) {
	case 0:
		return None, ErrNoAccessLevel
	case 1:
		return levels[0], nil
	}

	choice, err := s.prompt.RequestAccessLevelChoice(ctx, levels)
	if err != nil {
		return None, fmt.Errorf("access level prompt: %w", err)
	}
	if choice.Dismissed {
		return levels.First(), nil
	}
	if !levels.Contains(choice.Level) {
		s.logger.Warn().Str("choice", choice.Level.String()).Strs("candidates", levels.Strings()).
			Msg("Access level choice is not a candidate, using default")
		return levels.First(), nil
	}
	return choice.Level, nil
}
