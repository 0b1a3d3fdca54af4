// Package setup holds the first-run wizard. It runs when no usable
// provider credential is configured, and on demand via the setup flag.
package setup

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/billybjork/pixel-toaster/internal/config"
)

// Answers is what the wizard collects. Kept separate from the form so
// applying them to a config can be tested without a terminal.
type Answers struct {
	Provider string
	APIKey   string
	Model    string
}

// Needed reports whether the wizard must run before anything else: the
// active provider is HTTP-backed and has no key inline or in its
// environment variable.
func Needed(cfg config.Config) bool {
	pc, ok := cfg.Providers[cfg.Provider]
	if !ok {
		return true
	}
	if pc.Type != "openai" {
		return false
	}
	return pc.ResolveAPIKey() == ""
}

// Run walks the user through provider, credential, and model, then
// applies the answers. A non-empty preselected provider skips the
// provider question, for callers that already ran a picker. The caller
// persists the config afterwards.
func Run(cfg *config.Config, preselected string) error {
	answers := Answers{
		Provider: cfg.Provider,
	}
	if preselected != "" {
		if _, ok := cfg.Providers[preselected]; !ok {
			return fmt.Errorf("unknown provider %q", preselected)
		}
		answers.Provider = preselected
	}
	if pc, ok := cfg.Providers[answers.Provider]; ok {
		answers.Model = pc.Model
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Command generator").
				Description("Which service should turn your words into commands?").
				Options(providerOptions(*cfg)...).
				Value(&answers.Provider),
		).WithHideFunc(func() bool {
			return preselected != ""
		}),
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("Stored in your config file with owner-only permissions. Leave empty to read it from the environment.").
				EchoMode(huh.EchoModePassword).
				Value(&answers.APIKey),
			huh.NewInput().
				Title("Model").
				Placeholder("gpt-4o-mini").
				Value(&answers.Model),
		).WithHideFunc(func() bool {
			pc, ok := cfg.Providers[answers.Provider]
			return ok && pc.Type != "openai"
		}),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("setup cancelled")
		}
		return fmt.Errorf("setup form: %w", err)
	}

	return Apply(cfg, answers)
}

// Apply writes the answers into the config. Empty answers leave the
// existing values alone so re-running setup never wipes a credential.
func Apply(cfg *config.Config, answers Answers) error {
	provider := strings.TrimSpace(answers.Provider)
	if provider != "" {
		if _, ok := cfg.Providers[provider]; !ok {
			return fmt.Errorf("unknown provider %q", provider)
		}
		cfg.Provider = provider
	}

	pc := cfg.Providers[cfg.Provider]
	if key := strings.TrimSpace(answers.APIKey); key != "" {
		pc.APIKey = key
	}
	if model := strings.TrimSpace(answers.Model); model != "" {
		pc.Model = model
	}
	cfg.Providers[cfg.Provider] = pc
	return nil
}

func providerOptions(cfg config.Config) []huh.Option[string] {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	options := make([]huh.Option[string], 0, len(names))
	for _, name := range names {
		pc := cfg.Providers[name]
		label := fmt.Sprintf("%s (%s)", name, pc.Model)
		options = append(options, huh.NewOption(label, name))
	}
	return options
}
