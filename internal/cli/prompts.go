package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"

	"github.com/jrsteele09/go-estate-session/accesslevel"
)

// Prompter asks the user for whatever a command cannot take from its flags.
type Prompter interface {
	accesslevel.Prompt
	Login(ctx context.Context) (string, error)
	Password(ctx context.Context, login string) ([]byte, error)
}

var levelDescriptions = map[accesslevel.Level]string{
	accesslevel.Owner:   "Owner",
	accesslevel.Manager: "Manager",
	accesslevel.Admin:   "Administrator",
}

// huhPrompter renders prompts in the terminal.
type huhPrompter struct{}

func (huhPrompter) Login(ctx context.Context) (string, error) {
	var login string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Login").
				Value(&login).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("login is required")
					}
					return nil
				}),
		),
	).RunWithContext(ctx)
	return strings.TrimSpace(login), err
}

func (huhPrompter) Password(ctx context.Context, login string) ([]byte, error) {
	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password for " + login).
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	).RunWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(password), nil
}

// RequestAccessLevelChoice shows the granted levels in token order. Escaping
// the prompt dismisses it, which selects the default level.
func (huhPrompter) RequestAccessLevelChoice(ctx context.Context, candidates accesslevel.Set) (accesslevel.Choice, error) {
	options := make([]huh.Option[accesslevel.Level], 0, len(candidates))
	for _, l := range candidates {
		label := levelDescriptions[l]
		if label == "" {
			label = l.String()
		}
		options = append(options, huh.NewOption(label, l))
	}

	level := candidates.First()
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[accesslevel.Level]().
				Title("Select access level").
				Description("Use ↑/↓ to select, Enter to confirm, Esc for the default").
				Options(options...).
				Value(&level),
		),
	).WithKeyMap(dismissKeyMap()).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return accesslevel.Dismissed(), nil
	}
	if err != nil {
		return accesslevel.Choice{}, err
	}
	return accesslevel.Chosen(level), nil
}

// dismissKeyMap lets Esc abort the form as well as ctrl+c.
func dismissKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c", "esc"))
	return km
}
