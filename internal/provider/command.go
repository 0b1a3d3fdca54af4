package provider

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/prompt"
)

// CommandAdapter drives a local agent CLI (claude, codex) instead of an
// HTTP API. The system and user texts are concatenated into a single
// prompt argument because these CLIs take one free-form prompt.
type CommandAdapter struct {
	name string
	cfg  config.ProviderConfig
}

func NewCommandAdapter(name string, cfg config.ProviderConfig) (Adapter, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = name
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = name
	}
	if strings.TrimSpace(cfg.ModelFlag) == "" {
		cfg.ModelFlag = "--model"
	}
	return &CommandAdapter{name: name, cfg: cfg}, nil
}

func (a *CommandAdapter) Name() string { return a.name }

func (a *CommandAdapter) Type() string { return "command" }

func (a *CommandAdapter) HealthCheck() error {
	if _, err := exec.LookPath(a.cfg.Command); err != nil {
		return fmt.Errorf("command not found in PATH: %s", a.cfg.Command)
	}
	return nil
}

func (a *CommandAdapter) Generate(ctx context.Context, payload prompt.Payload) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	combined := strings.TrimSpace(payload.System + "\n\n" + payload.User)
	if combined == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	invocation := a.buildInvocation(combined)
	cmd := exec.CommandContext(ctx, invocation[0], invocation[1:]...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("provider command failed (%s): %w; stderr=%s",
			a.cfg.Command, err, truncateStderr(stderr.String()))
	}
	return stdout.String(), nil
}

func (a *CommandAdapter) buildInvocation(promptText string) []string {
	if len(a.cfg.Args) > 0 {
		args := make([]string, 0, len(a.cfg.Args)+1)
		hasPromptPlaceholder := false
		for _, templateArg := range a.cfg.Args {
			if strings.Contains(templateArg, "{prompt}") {
				hasPromptPlaceholder = true
			}
			rendered := strings.ReplaceAll(templateArg, "{model}", a.cfg.Model)
			rendered = strings.ReplaceAll(rendered, "{prompt}", promptText)
			if strings.TrimSpace(rendered) == "" {
				continue
			}
			args = append(args, rendered)
		}
		if !hasPromptPlaceholder {
			args = append(args, promptText)
		}
		return append([]string{a.cfg.Command}, args...)
	}

	args := make([]string, 0, 4)
	if a.cfg.ModelFlag != "" && a.cfg.Model != "" {
		args = append(args, a.cfg.ModelFlag, a.cfg.Model)
	}
	args = append(args, promptText)
	return append([]string{a.cfg.Command}, args...)
}

func truncateStderr(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= 800 {
		return trimmed
	}
	return trimmed[:800] + "..."
}
