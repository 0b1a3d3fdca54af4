package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/billybjork/pixel-toaster/internal/prompt"
	"github.com/billybjork/pixel-toaster/internal/provider"
)

// Error marks a failure of the reasoning service itself: unreachable,
// rate limited, or a malformed/empty response. It is retriable like an
// execution failure but never spawned a process.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("command synthesis failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Synthesizer struct {
	adapter provider.Adapter
}

func New(adapter provider.Adapter) *Synthesizer {
	return &Synthesizer{adapter: adapter}
}

// Synthesize performs one provider round trip and cleans the result
// into an executable command line. An empty cleaned result is reported
// as a synthesis failure rather than handed to the executor.
func (s *Synthesizer) Synthesize(ctx context.Context, payload prompt.Payload) (string, error) {
	raw, err := s.adapter.Generate(ctx, payload)
	if err != nil {
		return "", &Error{Err: err}
	}
	command := Clean(raw)
	if command == "" {
		return "", &Error{Err: fmt.Errorf("provider returned an empty command")}
	}
	return command, nil
}

// Clean normalizes a raw service response into a command string:
// markdown fences and shell prompt markers are stripped, backslash
// continuations are joined, and interior newlines survive so loop
// constructs stay intact. Clean is idempotent.
func Clean(raw string) string {
	out := cleanOnce(raw)
	for {
		next := cleanOnce(out)
		if next == out {
			return out
		}
		out = next
	}
}

// cleanOnce is one pass of the pipeline; Clean iterates it to a fixed
// point so nested wrappings (a fence inside a JSON envelope, a prompt
// marker in front of a fence) cannot survive.
func cleanOnce(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	for {
		next := extractLegacyJSONCommand(stripFences(text))
		if next == text {
			break
		}
		text = next
	}

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		stripped := strings.TrimLeft(trimmed, " \t")
		if strings.HasPrefix(stripped, "$ ") || strings.HasPrefix(stripped, "> ") {
			for strings.HasPrefix(stripped, "$ ") || strings.HasPrefix(stripped, "> ") {
				stripped = strings.TrimLeft(stripped[2:], " \t")
			}
			cleaned = append(cleaned, stripped)
			continue
		}
		cleaned = append(cleaned, trimmed)
	}

	text = joinContinuations(cleaned)
	return strings.TrimSpace(text)
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractLegacyJSONCommand tolerates providers that answer with the
// old {"command": "..."} envelope despite the plain-text contract.
func extractLegacyJSONCommand(text string) string {
	if !strings.HasPrefix(text, "{") {
		return text
	}
	var envelope struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return text
	}
	if strings.TrimSpace(envelope.Command) == "" {
		return text
	}
	return strings.TrimSpace(envelope.Command)
}

func joinContinuations(lines []string) string {
	joined := make([]string, 0, len(lines))
	pending := ""
	for i, line := range lines {
		if pending != "" {
			line = pending + " " + strings.TrimLeft(line, " \t")
			pending = ""
		}
		line = strings.TrimRight(line, " \t")
		// A trailing backslash on the final line has nothing to continue
		// into, so it is kept verbatim.
		if strings.HasSuffix(line, "\\") && i < len(lines)-1 {
			pending = strings.TrimRight(strings.TrimSuffix(line, "\\"), " \t")
			continue
		}
		joined = append(joined, line)
	}

	// Interior blank lines are noise; loops keep their own newlines.
	out := joined[:0]
	for _, line := range joined {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
